package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Vote kinds
const (
	VoteKindMoney = "money"
	VoteKindGift  = "gift"
)

// Vote is one committed ledger record. Records are append-only: once
// written they are never mutated or deleted, and candidate totals are
// always recomputed from them.
type Vote struct {
	ID          int64     `json:"id" db:"id"`
	VoteID      string    `json:"voteId" db:"vote_id"`
	VoterID     int       `json:"voterId" db:"voter_id"`
	CandidateID int       `json:"candidateId" db:"candidate_id"`
	Kind        string    `json:"kind" db:"kind"` // money | gift
	GiftType    *GiftType `json:"giftType,omitempty" db:"gift_type"`
	Amount      int64     `json:"amount" db:"amount"`        // charged, minor units
	VoteValue   int64     `json:"voteValue" db:"vote_value"` // weight snapshotted at cast time
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Weight returns the record's contribution to a candidate's total.
func (v *Vote) Weight() int64 {
	return v.VoteValue
}

// Metadata type for JSONB fields
type Metadata map[string]any

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
