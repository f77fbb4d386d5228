package services

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestWalletService_DebitTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("successful debit", func(t *testing.T) {
		userID := 1
		amount := int64(200)

		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM wallets WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(userID, 5000, 1, time.Now()))

		mock.ExpectExec("UPDATE wallets SET balance = \\$1, version = version \\+ 1, updated_at = \\$2 WHERE user_id = \\$3 AND version = \\$4").
			WithArgs(int64(4800), sqlmock.AnyArg(), userID, 1).
			WillReturnResult(sqlmock.NewResult(1, 1))

		newBalance, err := service.DebitTx(tx, userID, amount)
		assert.NoError(t, err)
		assert.Equal(t, int64(4800), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		userID := 1
		amount := int64(6000) // More than available balance

		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM wallets WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(userID, 5000, 1, time.Now()))

		_, err := service.DebitTx(tx, userID, amount)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wallet not found", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM wallets WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}))

		_, err := service.DebitTx(tx, 99, 200)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		_, err := service.DebitTx(tx, 1, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = service.DebitTx(tx, 1, -100)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestWalletService_CreditTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("successful credit", func(t *testing.T) {
		userID := 1
		amount := int64(1000)

		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT user_id, balance, version, updated_at FROM wallets WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "version", "updated_at"}).
				AddRow(userID, 500, 3, time.Now()))

		mock.ExpectExec("UPDATE wallets SET balance = \\$1, version = version \\+ 1, updated_at = \\$2 WHERE user_id = \\$3 AND version = \\$4").
			WithArgs(int64(1500), sqlmock.AnyArg(), userID, 3).
			WillReturnResult(sqlmock.NewResult(1, 1))

		newBalance, err := service.CreditTx(tx, userID, amount)
		assert.NoError(t, err)
		assert.Equal(t, int64(1500), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletService_updateWalletBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("optimistic lock failure", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectExec("UPDATE wallets SET balance = \\$1, version = version \\+ 1, updated_at = \\$2 WHERE user_id = \\$3 AND version = \\$4").
			WithArgs(int64(4000), sqlmock.AnyArg(), 1, 1).
			WillReturnResult(sqlmock.NewResult(1, 0)) // No rows affected

		err := service.updateWalletBalance(tx, 1, 4000, 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "optimistic lock failed")
	})
}

func TestWalletService_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("existing wallet", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM wallets WHERE user_id = \\$1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(4400))

		balance, err := service.GetBalance(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(4400), balance)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM wallets WHERE user_id = \\$1").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := service.GetBalance(context.Background(), 42)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestWalletService_BalanceEnquiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("reports balance in the configured currency", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM wallets WHERE user_id = \\$1").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(4400))

		r := httptest.NewRequest("GET", "/wallet/balance", nil)
		r = r.WithContext(context.WithValue(r.Context(), "userID", "7"))
		w := httptest.NewRecorder()

		service.BalanceEnquiry(w, r)

		assert.Equal(t, 200, w.Code)
		var resp map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(4400), resp["balance"])
		assert.Equal(t, service.currency, resp["currency"])
		assert.Equal(t, "NGN", resp["currency"]) // default when VOTE_CURRENCY is unset
	})
}
