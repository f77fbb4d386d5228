package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type TestStruct struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,email"`
	Age   int    `validate:"required,gte=18"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := TestStruct{
			Name:  "John Doe",
			Email: "john@example.com",
			Age:   25,
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("invalid struct - missing required fields", func(t *testing.T) {
		invalid := TestStruct{
			Name: "J", // Too short
			// Email missing
			Age: 16, // Too young
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3) // Name, Email, Age errors
	})

	t.Run("invalid email format", func(t *testing.T) {
		invalid := TestStruct{
			Name:  "John Doe",
			Email: "invalid-email",
			Age:   25,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain message", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something failed", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Something failed", resp.Error)
		assert.Empty(t, resp.Details)
	})

	t.Run("validation details included", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&TestStruct{})
		assert.Error(t, err)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Details)
	})
}

func TestSendDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ErrInsufficientFunds, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{ErrCandidateNotFound, http.StatusNotFound, "CANDIDATE_NOT_FOUND"},
		{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{ErrInvalidGiftType, http.StatusBadRequest, "INVALID_GIFT_TYPE"},
		{ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{ErrLedgerAppend, http.StatusInternalServerError, "LEDGER_APPEND_FAILURE"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()

			SendDomainError(w, tc.err)

			assert.Equal(t, tc.status, w.Code)

			var resp ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}

	t.Run("wrapped errors keep their kind", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendDomainError(w, fmt.Errorf("%w: insert failed", ErrLedgerAppend))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "LEDGER_APPEND_FAILURE", resp.Code)
	})
}
