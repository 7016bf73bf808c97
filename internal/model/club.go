package model

import "time"

// Club is a fishing club listing boats and bait.  The club's id is the id
// of the CLUB user account that registered it.
//
// Fields:
//  ID            – primary key, equal to users.id of the owning account.
//  Name          – display name.
//  Location      – free-text location used for weather lookups.
//  Phone         – contact phone.
//  LogoURL       – public URL of the uploaded logo (empty when none).
//  AverageRating – mean rating score rounded to one decimal.
//  RatingCount   – number of stored ratings.
type Club struct {
    ID            uint64    `json:"id"`             // clubs.id
    Name          string    `json:"name"`           // clubs.name
    Location      string    `json:"location"`       // clubs.location
    Phone         string    `json:"phone"`          // clubs.phone
    LogoURL       string    `json:"logo_url"`       // clubs.logo_url
    AverageRating float64   `json:"average_rating"` // clubs.average_rating
    RatingCount   int       `json:"rating_count"`   // clubs.rating_count
    CreatedAt     time.Time `json:"created_at"`     // clubs.created_at
    UpdatedAt     time.Time `json:"updated_at"`     // clubs.updated_at
}

// BoatType is a catalog entry of a club.  A boat type is identified by
// its (Kind, Capacity) pair within the club.
type BoatType struct {
    Kind       string `json:"kind"`        // boat_types.kind
    Capacity   int    `json:"capacity"`    // boat_types.capacity (persons per unit)
    Count      int    `json:"count"`       // boat_types.unit_count
    PriceCents int64  `json:"price_cents"` // boat_types.price_cents
}

// Key returns the identity of the boat type inside its club's catalog.
func (b BoatType) Key() BoatKey { return BoatKey{Kind: b.Kind, Capacity: b.Capacity} }

// BoatKey identifies a boat type inside a club catalog.
type BoatKey struct {
    Kind     string `json:"kind"`
    Capacity int    `json:"capacity"`
}

// BaitOffer is the per-club bait switch.  Availability is manual; no
// quantity is tracked.
type BaitOffer struct {
    Available  bool  `json:"available"`   // bait_offers.available
    PriceCents int64 `json:"price_cents"` // bait_offers.price_cents (per pack)
}

// Default boat kinds seeded into every new club catalog.
const (
    KindMotor   = "motor"
    KindNoMotor = "no_motor"
    KindTracker = "tracker"
)

// DefaultCatalog returns the catalog a freshly registered club starts with.
func DefaultCatalog() []BoatType {
    return []BoatType{
        {Kind: KindMotor, Capacity: 3},
        {Kind: KindNoMotor, Capacity: 3},
        {Kind: KindTracker, Capacity: 4},
        {Kind: KindTracker, Capacity: 5},
    }
}
