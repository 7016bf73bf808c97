package model

import (
    "strings"
    "time"
)

// Reservation states.  CANCELLED is terminal.
const (
    StatePending   = "PENDING"
    StateConfirmed = "CONFIRMED"
    StateCancelled = "CANCELLED"
)

// NormalizeState maps the labels accepted from clients (including the
// legacy Spanish ones) onto the canonical state values.  ok is false for
// unknown input.  "ALL" and "TODAS" return an empty state with ok=true.
func NormalizeState(raw string) (state string, ok bool) {
    switch strings.ToUpper(strings.TrimSpace(raw)) {
    case "", "ALL", "TODAS":
        return "", true
    case "PENDING", "PENDIENTE":
        return StatePending, true
    case "CONFIRMED", "CONFIRMADA":
        return StateConfirmed, true
    case "CANCELLED", "CANCELED", "CANCELADA", "ELIMINADA", "ELIMINATED", "DELETED":
        return StateCancelled, true
    }
    return "", false
}

// IsActiveState reports whether a reservation in the given state occupies
// a boat unit on its date.
func IsActiveState(state string) bool {
    return state == StatePending || state == StateConfirmed
}

// Reservation is a fisher's request for one boat unit of a club on a
// calendar date.  Prices are snapshotted at creation so later catalog
// edits never change Total.
//
// Fields:
//  ID             – primary key identifier.
//  ClubID         – club that owns the boat.
//  ClubName       – club name at creation time (denormalized).
//  FisherID       – user who made the reservation.
//  ContactName    – contact name given by the fisher.
//  ContactEmail   – contact email.
//  ContactPhone   – contact phone.
//  BoatKind       – catalog kind reserved.
//  Capacity       – catalog capacity reserved; with BoatKind it identifies the boat type.
//  PartySize      – number of persons (1..Capacity).
//  BaitPacks      – bait packs ordered (0..100).
//  Date           – calendar date of the outing; zero when absent on legacy rows.
//  State          – PENDING, CONFIRMED or CANCELLED.
//  Message        – last note written by the club to the fisher.
//  BoatPriceCents – boat price at creation.
//  BaitPriceCents – bait price per pack at creation.
//  TotalCents     – BoatPriceCents + BaitPriceCents*BaitPacks.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Reservation struct {
    ID             uint64           `json:"id"`               // reservations.id
    ClubID         uint64           `json:"club_id"`          // reservations.club_id
    ClubName       string           `json:"club_name"`        // reservations.club_name
    FisherID       uint64           `json:"fisher_id"`        // reservations.fisher_id
    ContactName    string           `json:"contact_name"`     // reservations.contact_name
    ContactEmail   string           `json:"contact_email"`    // reservations.contact_email
    ContactPhone   string           `json:"contact_phone"`    // reservations.contact_phone
    BoatKind       string           `json:"boat_kind"`        // reservations.boat_kind
    Capacity       int              `json:"capacity"`         // reservations.capacity
    PartySize      int              `json:"party_size"`       // reservations.party_size
    BaitPacks      int              `json:"bait_packs"`       // reservations.bait_packs
    Date           time.Time        `json:"date"`             // reservations.date (nullable)
    State          string           `json:"state"`            // reservations.state
    Message        string           `json:"message"`          // reservations.message
    BoatPriceCents int64            `json:"boat_price_cents"` // reservations.boat_price_cents
    BaitPriceCents int64            `json:"bait_price_cents"` // reservations.bait_price_cents
    TotalCents     int64            `json:"total_cents"`      // reservations.total_cents
    CreatedAt      time.Time        `json:"created_at"`       // reservations.created_at
    UpdatedAt      time.Time        `json:"updated_at"`       // reservations.updated_at
    History        []HistoryEntry   `json:"history,omitempty"`
}

// HasDate reports whether the reservation carries a calendar date.
func (r Reservation) HasDate() bool { return !r.Date.IsZero() }

// History actions.
const (
    ActionCreated           = "created"
    ActionConfirmed         = "confirmed"
    ActionCancelledByClub   = "cancelled_by_club"
    ActionCancelledByFisher = "cancelled_by_fisher"
    ActionModified          = "modified"
)

// HistoryEntry is one append-only mutation record of a reservation.
// Details holds a JSON document describing the change (for example the
// before/after values of a modification).
type HistoryEntry struct {
    ID            uint64    `json:"id"`             // reservation_history.id
    ReservationID uint64    `json:"reservation_id"` // reservation_history.reservation_id
    Action        string    `json:"action"`         // reservation_history.action
    ActorRole     string    `json:"actor_role"`     // reservation_history.actor_role
    ActorID       uint64    `json:"actor_id"`       // reservation_history.actor_id
    FromState     string    `json:"from_state"`     // reservation_history.from_state
    ToState       string    `json:"to_state"`       // reservation_history.to_state
    Details       string    `json:"details,omitempty"`
    CreatedAt     time.Time `json:"created_at"`     // reservation_history.created_at
}
