package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends events to RabbitMQ.  Each publish dials the broker,
// declares the durable queue and sends a persistent message.  Errors are
// logged and returned so callers can discard them without interrupting
// the request.
type Publisher struct {
	URL string
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url}
}

// PublishDealRedeemed publishes to the deal.redeemed queue.
func (p *Publisher) PublishDealRedeemed(ctx context.Context, ev DealRedeemedEvent) error {
	return p.publish(ctx, DealRedeemedQueue, ev)
}

// PublishClaimCompleted publishes to the claim.completed queue.
func (p *Publisher) PublishClaimCompleted(ctx context.Context, ev ClaimCompletedEvent) error {
	return p.publish(ctx, ClaimCompletedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	log := zerolog.Ctx(ctx).With().Str("queue", queue).Logger()

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// NopPublisher discards every event.  It is used when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishDealRedeemed(context.Context, DealRedeemedEvent) error     { return nil }
func (NopPublisher) PublishClaimCompleted(context.Context, ClaimCompletedEvent) error { return nil }
