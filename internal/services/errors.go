package services

import (
	"errors"
	"net/http"
)

// Ledger failure kinds. Handlers map these to distinct response codes so the
// presentation layer never has to show a generic failure for a funds
// shortfall versus a bad selection.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrInvalidGiftType   = errors.New("invalid gift type")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrLedgerAppend      = errors.New("failed to record vote")
)

// ErrorCode returns the machine code for a ledger error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, ErrCandidateNotFound):
		return "CANDIDATE_NOT_FOUND"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInvalidGiftType):
		return "INVALID_GIFT_TYPE"
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrLedgerAppend):
		return "LEDGER_APPEND_FAILURE"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps a ledger error to its response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrCandidateNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrInvalidGiftType), errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the user-facing message for a ledger error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "Insufficient wallet balance"
	case errors.Is(err, ErrCandidateNotFound):
		return "Candidate not found"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrInvalidGiftType):
		return "Please select a valid gift"
	case errors.Is(err, ErrInvalidAmount):
		return "Amount must be positive"
	default:
		return "Failed to process vote"
	}
}
