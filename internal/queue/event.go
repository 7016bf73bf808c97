// Package queue carries reservation events over RabbitMQ: the payload
// type, a publisher used by the outbox relay and the consumer that fans
// events out to live clients and push.
package queue

import (
	"time"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// ReservationEvent is published for every committed lifecycle action.  It
// embeds the notification row written in the same transaction so
// consumers can deliver it without reading the database.
type ReservationEvent struct {
	EventID       string             `json:"event_id"`
	Action        string             `json:"action"`
	ReservationID uint64             `json:"reservation_id"`
	ClubID        uint64             `json:"club_id"`
	FisherID      uint64             `json:"fisher_id"`
	State         string             `json:"state"`
	Date          string             `json:"date,omitempty"`
	TotalCents    int64              `json:"total_cents"`
	Notification  model.Notification `json:"notification"`
	OccurredAt    time.Time          `json:"occurred_at"`
}
