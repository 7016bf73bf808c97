package model

import "time"

// Rating is a fisher's score for a club.  At most one rating exists per
// (FisherID, ClubID); a second submission overwrites the first.
type Rating struct {
    FisherID   uint64    `json:"fisher_id"`   // ratings.fisher_id
    ClubID     uint64    `json:"club_id"`     // ratings.club_id
    FisherName string    `json:"fisher_name"` // users.name, joined on read
    Score      int       `json:"score"`       // ratings.score (1..5)
    Comment    string    `json:"comment"`     // ratings.comment
    CreatedAt  time.Time `json:"created_at"`  // ratings.created_at
    UpdatedAt  time.Time `json:"updated_at"`  // ratings.updated_at
}

// ClubRanking is one row of the public club ranking.
type ClubRanking struct {
    ClubID        uint64  `json:"club_id"`
    Name          string  `json:"name"`
    LogoURL       string  `json:"logo_url"`
    AverageRating float64 `json:"average_rating"`
    RatingCount   int     `json:"rating_count"`
}
