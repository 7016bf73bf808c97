package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/fishing-club-booking/internal/metrics"
)

// EventPublisher is the broker side of the outbox relay.
type EventPublisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

// OutboxRelay moves committed outbox rows to the broker.  A row that
// fails to publish stays pending and is retried on a later tick until it
// reaches maxAttempts.
type OutboxRelay struct {
	store       Storage
	pub         EventPublisher
	interval    time.Duration
	batch       int
	maxAttempts int
	now         func() time.Time
}

func NewOutboxRelay(store Storage, pub EventPublisher, interval time.Duration, batch, maxAttempts int) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	return &OutboxRelay{store: store, pub: pub, interval: interval, batch: batch, maxAttempts: maxAttempts, now: time.Now}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	log.Info().Dur("interval", r.interval).Msg("outbox relay started")
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("outbox flush failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay stopped")
			return
		case <-t.C:
		}
	}
}

// Flush publishes one batch and reports how many events were delivered.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	sent := 0
	err := r.store.InTx(ctx, func(repos Repos) error {
		events, err := repos.Outbox.ClaimPending(ctx, r.batch, r.maxAttempts)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := r.pub.Publish(ctx, ev.Topic, ev.EventID, ev.Payload); err != nil {
				metrics.OutboxPublished.WithLabelValues("error").Inc()
				log.Warn().Err(err).Str("event_id", ev.EventID).Int("attempts", ev.Attempts+1).Msg("outbox publish failed")
				if err := repos.Outbox.MarkFailed(ctx, ev.ID); err != nil {
					return err
				}
				continue
			}
			if err := repos.Outbox.MarkPublished(ctx, ev.ID, r.now()); err != nil {
				return err
			}
			metrics.OutboxPublished.WithLabelValues("ok").Inc()
			sent++
		}
		return nil
	})
	return sent, err
}
