package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/votearena/backend/internal/audit"
	"github.com/votearena/backend/internal/config"
	"github.com/votearena/backend/internal/models"
)

// VotingService orchestrates vote casting: funds check, wallet debit,
// ledger append and counter maintenance are committed as one database
// transaction, so a debit can never outlive a failed append.
type VotingService struct {
	db      *sql.DB
	redis   *redis.Client
	wallet  *WalletService
	ledger  *VoteLedgerService
	catalog *CatalogService
	audit   *audit.Logger
	helper  *ValidationHelper
	cfg     *config.VotingConfig
}

func NewVotingService(db *sql.DB, redisClient *redis.Client, wallet *WalletService, ledger *VoteLedgerService, catalog *CatalogService) *VotingService {
	return &VotingService{
		db:      db,
		redis:   redisClient,
		wallet:  wallet,
		ledger:  ledger,
		catalog: catalog,
		audit:   audit.NewLogger(),
		helper:  NewValidationHelper(),
		cfg:     config.LoadVotingConfig(),
	}
}

// CastVote commits a single vote. Validation failures are rejected before
// any mutation; after the debit succeeds, the append and counter updates
// share its transaction, so any later failure rolls the debit back too.
func (s *VotingService) CastVote(ctx context.Context, voterID, candidateID int, kind string, giftType *models.GiftType) (*models.Vote, error) {
	if err := s.resolveVoter(ctx, voterID); err != nil {
		return nil, err
	}

	if _, err := s.catalog.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}

	amount, voteValue, err := s.priceFor(kind, giftType)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.wallet.DebitTx(tx, voterID, amount); err != nil {
		return nil, err
	}

	record := &models.Vote{
		VoterID:     voterID,
		CandidateID: candidateID,
		Kind:        kind,
		GiftType:    giftType,
		Amount:      amount,
		VoteValue:   voteValue,
	}

	if err := s.ledger.AppendTx(tx, record); err != nil {
		// Rollback undoes the debit as well.
		s.audit.LogError(record.VoteID, voterID, err)
		return nil, fmt.Errorf("%w: %v", ErrLedgerAppend, err)
	}

	if err := s.recordHistoryTx(tx, record); err != nil {
		s.audit.LogError(record.VoteID, voterID, err)
		return nil, fmt.Errorf("%w: %v", ErrLedgerAppend, err)
	}

	if err := s.bumpCountersTx(tx, record); err != nil {
		s.audit.LogError(record.VoteID, voterID, err)
		return nil, fmt.Errorf("%w: %v", ErrLedgerAppend, err)
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(record.VoteID, voterID, err)
		return nil, fmt.Errorf("%w: %v", ErrLedgerAppend, err)
	}

	s.audit.LogVote(record.VoteID, voterID, candidateID, amount, voteValue, "SUCCESS")

	// Post-commit bookkeeping: cache invalidation and settlement queueing
	// are best-effort, the ledger is already durable.
	s.invalidateTotal(ctx, candidateID)
	if err := s.queueForSettlement(ctx, record); err != nil {
		log.Printf("[VOTE] Failed to queue vote %s for settlement: %v", record.VoteID, err)
	}

	return record, nil
}

// priceFor snapshots the charge and vote weight for the request kind. Gift
// price and value are read once here, so a later catalog change never
// affects a vote already in flight.
func (s *VotingService) priceFor(kind string, giftType *models.GiftType) (amount, voteValue int64, err error) {
	switch kind {
	case models.VoteKindMoney:
		return s.cfg.VotePrice, 1, nil
	case models.VoteKindGift:
		if giftType == nil {
			return 0, 0, ErrInvalidGiftType
		}
		gift, err := s.catalog.GetGift(*giftType)
		if err != nil {
			return 0, 0, err
		}
		return gift.Price, gift.VoteValue, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown vote kind %q", ErrInvalidGiftType, kind)
	}
}

func (s *VotingService) resolveVoter(ctx context.Context, voterID int) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, voterID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

func (s *VotingService) recordHistoryTx(tx *sql.Tx, record *models.Vote) error {
	txType := models.TxTypeVote
	description := "Money vote"
	if record.Kind == models.VoteKindGift {
		txType = models.TxTypeGift
		description = fmt.Sprintf("%s gift", *record.GiftType)
	}

	return s.wallet.RecordTransactionTx(tx, &models.WalletTransaction{
		UserID:      record.VoterID,
		Type:        txType,
		Amount:      -record.Amount,
		Description: fmt.Sprintf("%s for candidate %d", description, record.CandidateID),
		Reference:   record.VoteID,
	})
}

// bumpCountersTx maintains the denormalized vote counters. These are
// display caches; aggregation always recomputes from the ledger.
func (s *VotingService) bumpCountersTx(tx *sql.Tx, record *models.Vote) error {
	if _, err := tx.Exec(`
		UPDATE users SET total_votes_given = total_votes_given + $1, updated_at = $2 WHERE id = $3
	`, record.VoteValue, time.Now(), record.VoterID); err != nil {
		return err
	}

	_, err := tx.Exec(`
		UPDATE candidates SET total_votes = total_votes + $1 WHERE id = $2
	`, record.VoteValue, record.CandidateID)
	return err
}

func (s *VotingService) invalidateTotal(ctx context.Context, candidateID int) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, totalsCacheKey(candidateID)).Err(); err != nil {
		log.Printf("[VOTE] Failed to invalidate totals cache for candidate %d: %v", candidateID, err)
	}
}

func (s *VotingService) queueForSettlement(ctx context.Context, record *models.Vote) error {
	if s.redis == nil {
		return nil
	}

	movement := models.SettlementMovement{
		Reference: record.VoteID,
		UserID:    record.VoterID,
		AccountID: fmt.Sprintf("%010d", record.VoterID),
		Type:      record.Kind,
		Amount:    record.Amount,
		Currency:  s.cfg.Currency,
		Status:    "COMPLETED",
		CreatedAt: record.CreatedAt,
	}
	data, err := json.Marshal(movement)
	if err != nil {
		return err
	}

	return s.redis.RPush(ctx, settlementQueueKey, data).Err()
}

// CastVoteRequest is the cast-vote payload
// @Description Cast vote request structure
type CastVoteRequest struct {
	CandidateID int              `json:"candidateId" validate:"required,gt=0"`
	Kind        string           `json:"kind" validate:"required,oneof=money gift"`
	GiftType    *models.GiftType `json:"giftType,omitempty"`
}

// CastVoteHandler casts a single vote
// @Summary Cast a vote
// @Description Cast a money-vote or redeem a gift for a candidate
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CastVoteRequest true "Vote request"
// @Success 201 {object} object{success=bool,vote=models.Vote}
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /votes [post]
func (s *VotingService) CastVoteHandler(w http.ResponseWriter, r *http.Request) {
	voterID, ok := contextUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CastVoteRequest

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.helper.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	vote, err := s.CastVote(r.Context(), voterID, req.CandidateID, req.Kind, req.GiftType)
	if err != nil {
		log.Printf("[VOTE] Cast failed for voter %d, candidate %d: %v", voterID, req.CandidateID, err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"vote":    vote,
	})
}

// BulkVoteRequest is the bulk money-vote payload
// @Description Bulk vote request structure
type BulkVoteRequest struct {
	CandidateID int `json:"candidateId" validate:"required,gt=0"`
	Count       int `json:"count" validate:"required,gt=0"`
}

// BulkVoteHandler casts N money-votes as independent units
// @Summary Cast money-votes in bulk
// @Description Cast N money-votes; each unit is validated and charged individually, so a shortfall on the k-th unit keeps the first k-1 committed
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BulkVoteRequest true "Bulk vote request"
// @Success 200 {object} object{committed=[]models.Vote,summary=object}
// @Failure 400 {object} ErrorResponse
// @Router /votes/bulk [post]
func (s *VotingService) BulkVoteHandler(w http.ResponseWriter, r *http.Request) {
	voterID, ok := contextUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req BulkVoteRequest

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.helper.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if req.Count > s.cfg.BulkMaxVotes {
		SendErrorResponse(w, fmt.Sprintf("Bulk size exceeds limit (%d)", s.cfg.BulkMaxVotes), http.StatusBadRequest, nil)
		return
	}

	committed := []models.Vote{}
	failed := []map[string]any{}

	for i := 0; i < req.Count; i++ {
		vote, err := s.CastVote(r.Context(), voterID, req.CandidateID, models.VoteKindMoney, nil)
		if err != nil {
			failed = append(failed, map[string]any{
				"unit":  i + 1,
				"error": UserMessage(err),
				"code":  ErrorCode(err),
			})
			continue
		}
		committed = append(committed, *vote)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"committed": committed,
		"failed":    failed,
		"summary": map[string]int{
			"total":     req.Count,
			"succeeded": len(committed),
			"failed":    len(failed),
		},
	})
}

// ListMyVotes returns the authenticated user's vote history
// @Summary List my votes
// @Description Get the authenticated user's vote history in append order
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{votes=[]models.Vote,count=int}
// @Failure 401 {object} ErrorResponse
// @Router /votes [get]
func (s *VotingService) ListMyVotes(w http.ResponseWriter, r *http.Request) {
	voterID, ok := contextUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	votes, err := s.ledger.QueryByVoter(r.Context(), voterID)
	if err != nil {
		log.Printf("[VOTE] Failed to fetch votes for voter %d: %v", voterID, err)
		SendErrorResponse(w, "Failed to fetch votes", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"votes": votes,
		"count": len(votes),
	})
}
