package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Sink receives decoded reservation events.
type Sink interface {
	Deliver(ctx context.Context, ev ReservationEvent) error
}

// Consumer reads the reservation events queue and hands each event to
// every sink once per event id.  A sink error is logged; it does not
// reject the message, since the notification row is already stored.
type Consumer struct {
	url   string
	queue string
	sinks []Sink
	dedup Deduper
}

func NewConsumer(url, queue string, sinks ...Sink) *Consumer {
	return &Consumer{url: url, queue: queue, sinks: sinks, dedup: newRecentIDs(4096)}
}

// WithDeduper replaces the in-process seen-id set, e.g. with a
// RedisDeduper shared by several replicas.
func (c *Consumer) WithDeduper(d Deduper) *Consumer {
	if d != nil {
		c.dedup = d
	}
	return c
}

// Run keeps a consumer attached, redialing with backoff, until ctx ends.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("event consumer: dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("event consumer: loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("event consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info().Str("queue", c.queue).Msg("event consumer attached")

	for d := range msgs {
		if err := c.Handle(ctx, d.Body); err != nil {
			log.Error().Err(err).Str("message_id", d.MessageId).Msg("event consumer: bad message")
			_ = d.Nack(false, false) // do not requeue a message that cannot be decoded
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message body and fans it out.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.EventID != "" {
		seen, err := c.dedup.Seen(ctx, ev.EventID)
		if err != nil {
			log.Warn().Err(err).Str("event_id", ev.EventID).Msg("event dedup check failed; delivering")
		} else if seen {
			log.Debug().Str("event_id", ev.EventID).Msg("duplicate event dropped")
			return nil
		}
	}
	for _, s := range c.sinks {
		if err := s.Deliver(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event_id", ev.EventID).Msg("event sink failed")
		}
	}
	return nil
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
