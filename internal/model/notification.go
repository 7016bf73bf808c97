package model

import "time"

// Notification types.
const (
    NotifyReservation          = "reservation"
    NotifyReservationConfirmed = "reservation_confirmed"
    NotifyReservationCancelled = "reservation_cancelled"
    NotifyReservationModified  = "reservation_modified"
)

// Notification is a message directed at one user of a role, created as a
// side effect of a reservation transition.
type Notification struct {
    ID            uint64    `json:"id"`             // notifications.id
    TargetRole    string    `json:"target_role"`    // notifications.target_role (CLUB | FISHER)
    TargetID      uint64    `json:"target_id"`      // notifications.target_id
    Title         string    `json:"title"`          // notifications.title
    Message       string    `json:"message"`        // notifications.message
    Type          string    `json:"type"`           // notifications.type
    ReservationID uint64    `json:"reservation_id"` // notifications.reservation_id
    Read          bool      `json:"read"`           // notifications.is_read
    CreatedAt     time.Time `json:"created_at"`     // notifications.created_at
}

// OutboxEvent is a pending broker message written in the same
// transaction as the state change it describes.
type OutboxEvent struct {
    ID          uint64     // outbox_events.id
    EventID     string     // outbox_events.event_id (uuid)
    Topic       string     // outbox_events.topic (queue name)
    Payload     []byte     // outbox_events.payload (JSON)
    Attempts    int        // outbox_events.attempts
    CreatedAt   time.Time  // outbox_events.created_at
    PublishedAt *time.Time // outbox_events.published_at (nullable)
}
