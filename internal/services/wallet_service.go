package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/votearena/backend/internal/audit"
	"github.com/votearena/backend/internal/config"
	"github.com/votearena/backend/internal/models"
)

// WalletService is the account ledger. A wallet balance is never negative:
// debits check funds under a row lock and no partial debit is possible.
type WalletService struct {
	db       *sql.DB
	audit    *audit.Logger
	currency string
}

func NewWalletService(db *sql.DB) *WalletService {
	return &WalletService{
		db:       db,
		audit:    audit.NewLogger(),
		currency: config.LoadVotingConfig().Currency,
	}
}

// GetBalance returns the user's current balance.
func (s *WalletService) GetBalance(ctx context.Context, userID int) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT balance FROM wallets WHERE user_id = $1
	`, userID).Scan(&balance)

	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitTx decreases the user's balance by amount inside the caller's
// transaction. The wallet row is locked for the remainder of the
// transaction, which serializes concurrent debits against the same user.
// Returns the new balance.
func (s *WalletService) DebitTx(tx *sql.Tx, userID int, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	wallet, err := s.lockWallet(tx, userID)
	if err != nil {
		return 0, err
	}

	if wallet.Balance < amount {
		return 0, ErrInsufficientFunds
	}

	newBalance := wallet.Balance - amount
	if err := s.updateWalletBalance(tx, userID, newBalance, wallet.Version); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// CreditTx increases the user's balance by amount inside the caller's
// transaction. Used by the funding and refund paths, never by voting.
func (s *WalletService) CreditTx(tx *sql.Tx, userID int, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	wallet, err := s.lockWallet(tx, userID)
	if err != nil {
		return 0, err
	}

	newBalance := wallet.Balance + amount
	if err := s.updateWalletBalance(tx, userID, newBalance, wallet.Version); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// Credit applies a standalone credit in its own transaction.
func (s *WalletService) Credit(ctx context.Context, userID int, amount int64, reference string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	newBalance, err := s.CreditTx(tx, userID, amount)
	if err != nil {
		s.audit.LogError(reference, userID, err)
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(reference, userID, err)
		return 0, err
	}

	s.audit.LogCredit(reference, userID, amount, "SUCCESS")
	return newBalance, nil
}

// RecordTransactionTx writes a wallet history row in the caller's
// transaction. Debits carry a negative amount.
func (s *WalletService) RecordTransactionTx(tx *sql.Tx, wt *models.WalletTransaction) error {
	if wt.Status == "" {
		wt.Status = models.TxStatusCompleted
	}
	wt.CreatedAt = time.Now()

	_, err := tx.Exec(`
		INSERT INTO wallet_transactions (user_id, type, amount, description, status, reference, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, wt.UserID, wt.Type, wt.Amount, wt.Description, wt.Status, wt.Reference, wt.Metadata, wt.CreatedAt)

	return err
}

func (s *WalletService) lockWallet(tx *sql.Tx, userID int) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.QueryRow(`
		SELECT user_id, balance, version, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE`, userID).Scan(&wallet.UserID, &wallet.Balance, &wallet.Version, &wallet.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *WalletService) updateWalletBalance(tx *sql.Tx, userID int, newBalance int64, version int) error {
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE user_id = $3 AND version = $4`,
		newBalance, time.Now(), userID, version)

	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for wallet %d", userID)
	}

	return nil
}

// BalanceEnquiry returns the authenticated user's wallet balance
// @Summary Get wallet balance
// @Description Retrieve the authenticated user's wallet balance
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=int64,currency=string}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /wallet/balance [get]
func (s *WalletService) BalanceEnquiry(w http.ResponseWriter, r *http.Request) {
	userID, ok := contextUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := s.GetBalance(r.Context(), userID)
	if err != nil {
		log.Printf("[WALLET] Balance enquiry failed for user %d: %v", userID, err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"balance":  balance,
		"currency": s.currency,
	})
}

// ListTransactions returns the authenticated user's wallet history
// @Summary List wallet transactions
// @Description Get the authenticated user's wallet movement history
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of rows to return (default 20, max 100)"
// @Success 200 {object} object{transactions=[]models.WalletTransaction,count=int}
// @Failure 401 {object} ErrorResponse
// @Router /wallet/transactions [get]
func (s *WalletService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := contextUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, user_id, type, amount, description, status, COALESCE(reference, ''), created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		log.Printf("[WALLET] Failed to fetch transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.WalletTransaction{}
	for rows.Next() {
		var wt models.WalletTransaction
		if err := rows.Scan(&wt.ID, &wt.UserID, &wt.Type, &wt.Amount, &wt.Description, &wt.Status, &wt.Reference, &wt.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
			return
		}
		transactions = append(transactions, wt)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// contextUserID extracts the authenticated user id set by the auth
// middleware.
func contextUserID(r *http.Request) (int, bool) {
	raw, ok := r.Context().Value("userID").(string)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}
