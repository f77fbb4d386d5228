package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/votearena/backend/internal/audit"
	"github.com/votearena/backend/internal/config"
	"github.com/votearena/backend/internal/models"
)

var (
	ErrInvalidReference    = errors.New("invalid funding reference")
	ErrReferenceUsed       = errors.New("funding reference already used")
	ErrReferenceExpired    = errors.New("funding reference expired")
	ErrFundingRateLimited  = errors.New("funding rate limit exceeded")
	ErrFundingAmountBounds = errors.New("funding amount out of bounds")
)

// FundingReference is a single-use top-up reference handed to the payment
// channel. Only a hash of the reference is stored.
type FundingReference struct {
	Reference string    `json:"reference"`
	UserID    int       `json:"userId"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Expired   bool      `json:"expired"`
	Used      bool      `json:"used"`
}

type FundingService struct {
	db       *sql.DB
	redis    *redis.Client
	wallet   *WalletService
	audit    *audit.Logger
	config   *config.FundingConfig
	currency string
}

func NewFundingService(db *sql.DB, redisClient *redis.Client, wallet *WalletService) *FundingService {
	return &FundingService{
		db:       db,
		redis:    redisClient,
		wallet:   wallet,
		audit:    audit.NewLogger(),
		config:   config.LoadFundingConfig(),
		currency: config.LoadVotingConfig().Currency,
	}
}

// InitiateFunding issues a fresh single-use reference for a wallet top-up.
// The caller presents the reference to the payment channel; the channel's
// webhook later confirms it.
func (s *FundingService) InitiateFunding(ctx context.Context, userID int, amount int64) (string, time.Time, error) {
	log.Printf("[FundingService] InitiateFunding - userID: %d, amount: %d", userID, amount)

	if amount < s.config.MinAmount || amount > s.config.MaxAmount {
		return "", time.Time{}, ErrFundingAmountBounds
	}

	if err := s.checkRateLimit(ctx, userID); err != nil {
		log.Printf("[FundingService] InitiateFunding - Rate limit error: %v", err)
		return "", time.Time{}, err
	}

	reference := s.generateReference()
	hashedRef := s.hashReference(reference)
	expiresAt := time.Now().Add(s.config.ReferenceTimeout)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO funding_references (reference_hash, user_id, amount, expires_at, used)
		VALUES ($1, $2, $3, $4, false)
	`, hashedRef, userID, amount, expiresAt)

	if err != nil {
		log.Printf("[FundingService] InitiateFunding - DB insert error: %v", err)
		return "", time.Time{}, fmt.Errorf("failed to store funding reference: %w", err)
	}

	s.incrementRateLimit(ctx, userID)

	log.Printf("[FundingService] InitiateFunding - Success, expires: %v", expiresAt)
	return reference, expiresAt, nil
}

// ConfirmFunding consumes the reference and credits the wallet in one
// database transaction. The row lock keeps concurrent confirmations of the
// same reference single-use.
func (s *FundingService) ConfirmFunding(ctx context.Context, reference string) (*FundingReference, int64, error) {
	hashedRef := s.hashReference(reference)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var ref FundingReference
	var used bool
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, amount, expires_at, used
		FROM funding_references
		WHERE reference_hash = $1
		FOR UPDATE
	`, hashedRef).Scan(&ref.UserID, &ref.Amount, &ref.ExpiresAt, &used)

	if err == sql.ErrNoRows {
		return nil, 0, ErrInvalidReference
	}
	if err != nil {
		return nil, 0, err
	}

	if used {
		return nil, 0, ErrReferenceUsed
	}

	if time.Now().After(ref.ExpiresAt) {
		return nil, 0, ErrReferenceExpired
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE funding_references
		SET used = true, used_at = $1
		WHERE reference_hash = $2
	`, time.Now(), hashedRef)
	if err != nil {
		return nil, 0, err
	}

	newBalance, err := s.wallet.CreditTx(tx, ref.UserID, ref.Amount)
	if err != nil {
		s.audit.LogError(reference, ref.UserID, err)
		return nil, 0, err
	}

	err = s.wallet.RecordTransactionTx(tx, &models.WalletTransaction{
		UserID:      ref.UserID,
		Type:        models.TxTypeDeposit,
		Amount:      ref.Amount,
		Description: "Wallet top-up",
		Reference:   reference,
	})
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}

	ref.Reference = reference
	ref.Used = true
	ref.Currency = s.currency

	s.audit.LogCredit(reference, ref.UserID, ref.Amount, "SUCCESS")
	log.Printf("[FundingService] ConfirmFunding - Credited user %d with %d, balance: %d", ref.UserID, ref.Amount, newBalance)
	return &ref, newBalance, nil
}

// GetUserReferences lists the caller's funding references, most recent
// first, with the reference itself masked.
func (s *FundingService) GetUserReferences(ctx context.Context, userID int) ([]FundingReference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, amount, expires_at, created_at, used
		FROM funding_references
		WHERE user_id = $1
		ORDER BY expires_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []FundingReference
	for rows.Next() {
		var ref FundingReference
		var used bool
		if err := rows.Scan(&ref.UserID, &ref.Amount, &ref.ExpiresAt, &ref.CreatedAt, &used); err != nil {
			return nil, err
		}

		ref.Expired = time.Now().After(ref.ExpiresAt) || used
		ref.Used = used
		ref.Currency = s.currency
		ref.Reference = "***" // Masked for security
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func (s *FundingService) CleanupExpiredReferences(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM funding_references
		WHERE expires_at < $1 OR (used = true AND used_at < $2)
	`, time.Now(), time.Now().Add(-24*time.Hour))
	return err
}

func (s *FundingService) generateReference() string {
	const charset = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	code := make([]byte, s.config.ReferenceLength)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := range code {
		n, _ := rand.Int(rand.Reader, charsetLen)
		code[i] = charset[n.Int64()]
	}

	return s.config.ReferencePrefix + "-" + string(code)
}

func (s *FundingService) hashReference(reference string) string {
	hash := sha256.Sum256([]byte(reference))
	return hex.EncodeToString(hash[:])
}

func (s *FundingService) checkRateLimit(ctx context.Context, userID int) error {
	// Rate limiting is skipped when Redis is down rather than blocking
	// top-ups.
	if s.redis == nil {
		return nil
	}

	key := fmt.Sprintf("funding:ratelimit:%d", userID)
	count, err := s.redis.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return err
	}

	if count >= s.config.MaxInitiatesPerUser {
		return ErrFundingRateLimited
	}

	return nil
}

func (s *FundingService) incrementRateLimit(ctx context.Context, userID int) {
	if s.redis == nil {
		return
	}

	key := fmt.Sprintf("funding:ratelimit:%d", userID)
	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.config.RateLimitWindow)
	pipe.Exec(ctx)
}
