package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// redemptionLogFile is the file, under the consumer's log directory, that
// receives one line per consumed event.
const redemptionLogFile = "redemption.log"

// StartRedemptionConsumer connects to RabbitMQ, declares the deal.redeemed
// and claim.completed queues and appends each message to
// <logDir>/redemption.log in a single-line format.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.
func StartRedemptionConsumer(ctx context.Context, url, logDir string) error {
	log := zerolog.Ctx(ctx).With().Str("component", "redemption-consumer").Logger()

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("set QoS failed")
	}

	redeemed, err := subscribe(ch, DealRedeemedQueue)
	if err != nil {
		return err
	}
	completed, err := subscribe(ch, ClaimCompletedQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-redeemed:
		case d, ok = <-completed:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := handleMessage(logDir, d.RoutingKey, d.Body); err != nil {
			log.Error().Err(err).Str("queue", d.RoutingKey).Msg("handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

func handleMessage(logDir, queue string, body []byte) error {
	line, err := formatLine(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, redemptionLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(queue string, body []byte) (string, error) {
	switch queue {
	case DealRedeemedQueue:
		var ev DealRedeemedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Deal redeemed | claim_id=%d | deal_id=%d | user_id=%d | deal=%q | discount=%d%% | savings=%.2f | scheme=%s | redemptions=%d\n",
			ev.RedeemedAt, ev.ClaimID, ev.DealID, ev.UserID, ev.DealTitle, ev.DiscountPercentage, ev.SavingsAmount, ev.Scheme, ev.CurrentRedemptions), nil
	case ClaimCompletedQueue:
		var ev ClaimCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Claim completed | claim_id=%d | deal_id=%d | user_id=%d | bill=%.2f | savings=%.2f | total_savings=%.2f\n",
			ev.CompletedAt, ev.ClaimID, ev.DealID, ev.UserID, ev.BillAmount, ev.ActualSavings, ev.NewTotalSavings), nil
	default:
		return "", fmt.Errorf("unknown queue %q", queue)
	}
}
