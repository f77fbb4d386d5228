package models

import "time"

// Candidate is a contest entrant. Candidate rows are seeded out of band and
// are read-only through the API.
type Candidate struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Bio        string    `json:"bio" db:"bio"`
	Category   string    `json:"category" db:"category"`
	Image      string    `json:"image" db:"image"`
	TotalVotes int64     `json:"totalVotes" db:"total_votes"` // cached; ledger is authoritative
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// GiftType enumerates the redeemable gift catalog.
type GiftType string

const (
	GiftStar    GiftType = "star"
	GiftCrown   GiftType = "crown"
	GiftGold    GiftType = "gold"
	GiftSilver  GiftType = "silver"
	GiftLove    GiftType = "love"
	GiftDiamond GiftType = "diamond"
)

// Gift is an immutable catalog entry: redeeming one charges Price and
// grants VoteValue units of vote weight.
type Gift struct {
	Type      GiftType `json:"type"`
	Name      string   `json:"name"`
	VoteValue int64    `json:"voteValue"`
	Price     int64    `json:"price"`
	Icon      string   `json:"icon"`
	Color     string   `json:"color"`
}
