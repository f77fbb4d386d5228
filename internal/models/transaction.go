package models

import "time"

// Wallet transaction types
const (
	TxTypeDeposit = "deposit"
	TxTypeVote    = "vote"
	TxTypeGift    = "gift"
	TxTypeRefund  = "refund"
)

// Wallet transaction statuses
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// WalletTransaction is a display-history row for a wallet movement. It is
// written in the same database transaction as the movement it describes.
type WalletTransaction struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int       `json:"userId" db:"user_id"`
	Type        string    `json:"type" db:"type"`     // deposit | vote | gift | refund
	Amount      int64     `json:"amount" db:"amount"` // signed: credits positive, debits negative
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	Reference   string    `json:"reference,omitempty" db:"reference"`
	Metadata    Metadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// SettlementMovement is the unit pushed onto the settlement queue after a
// wallet movement commits.
type SettlementMovement struct {
	Reference string    `json:"reference" validate:"required"`
	UserID    int       `json:"userId" validate:"required,gt=0"`
	AccountID string    `json:"accountId" validate:"required"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount" validate:"required,gt=0"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
