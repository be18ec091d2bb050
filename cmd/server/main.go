package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/iliyamo/deal-redemption/internal/config"
	"github.com/iliyamo/deal-redemption/internal/database"
	"github.com/iliyamo/deal-redemption/internal/handler"
	"github.com/iliyamo/deal-redemption/internal/middleware"
	"github.com/iliyamo/deal-redemption/internal/pin"
	"github.com/iliyamo/deal-redemption/internal/queue"
	"github.com/iliyamo/deal-redemption/internal/repository"
	"github.com/iliyamo/deal-redemption/internal/router"
	"github.com/iliyamo/deal-redemption/internal/service"
)

// appStore is what the services and the auth handler need from storage.
type appStore interface {
	service.Store
	handler.UserAccounts
	handler.RefreshTokens
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "deal-redemption").Logger()
	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(ctx, cfg)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn().Msg("redis unavailable, using in-process limiter and lock")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		if cfg.RunConsumer {
			go func() {
				cctx := logger.WithContext(ctx)
				if err := queue.StartRedemptionConsumer(cctx, cfg.AMQPURL, cfg.ConsumerLogDir); err != nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("redemption consumer stopped")
				}
			}()
		}
	}

	pinCfg := config.LoadPinConfig()
	codec := pinCfg.Codec()
	rotator := pinCfg.Rotator()

	claims := service.NewClaimService(store, pin.NewVerifier(codec, rotator), pinCfg.Policy(), newLocker(rdb), events)
	pins := service.NewPinService(store, codec, rotator)
	deals := service.NewDealService(store)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, store, store), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(deals), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, handler.NewCustomerHandler(claims), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterVendor(e, handler.NewVendorHandler(pins), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("stopped")
}

func openStore(ctx context.Context, cfg config.Config) appStore {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore()
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.Migrate(mctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	return repository.NewSQLStore(db)
}

func newLocker(rdb *redis.Client) service.Locker {
	if rdb == nil {
		return service.NewKeyedMutex()
	}
	return service.NewRedisLocker(rdb, "lock")
}
