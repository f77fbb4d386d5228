package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/votearena/backend/internal/models"
)

// VoteLedgerService owns the append-only vote ledger, the sole source of
// truth for candidate totals. Records are inserted inside the voting
// transaction and never touched again.
type VoteLedgerService struct {
	db      *sql.DB
	catalog *CatalogService
}

func NewVoteLedgerService(db *sql.DB, catalog *CatalogService) *VoteLedgerService {
	return &VoteLedgerService{db: db, catalog: catalog}
}

// AppendTx validates and inserts a vote record in the caller's transaction.
// The candidate must resolve in the catalog, checked here rather than left
// to the caller. The serial id assigned by the database gives records a
// monotonically increasing order. Assigns a vote uuid and timestamp when
// absent.
func (s *VoteLedgerService) AppendTx(tx *sql.Tx, record *models.Vote) error {
	if record.Amount <= 0 {
		return ErrInvalidAmount
	}

	if record.Kind == models.VoteKindGift {
		if record.GiftType == nil {
			return ErrInvalidGiftType
		}
		if _, err := s.catalog.GetGift(*record.GiftType); err != nil {
			return err
		}
	}

	var exists bool
	if err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM candidates WHERE id = $1)
	`, record.CandidateID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrCandidateNotFound
	}

	if record.VoteID == "" {
		record.VoteID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	var giftType any
	if record.GiftType != nil {
		giftType = string(*record.GiftType)
	}

	err := tx.QueryRow(`
		INSERT INTO votes (vote_id, voter_id, candidate_id, kind, gift_type, amount, vote_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, record.VoteID, record.VoterID, record.CandidateID, record.Kind, giftType,
		record.Amount, record.VoteValue, record.CreatedAt).Scan(&record.ID)

	return err
}

// QueryByCandidate returns the candidate's full vote history in append
// order. Each call is a fresh read of current history.
func (s *VoteLedgerService) QueryByCandidate(ctx context.Context, candidateID int) ([]models.Vote, error) {
	return s.query(ctx, `
		SELECT id, vote_id, voter_id, candidate_id, kind, gift_type, amount, vote_value, created_at
		FROM votes
		WHERE candidate_id = $1
		ORDER BY id
	`, candidateID)
}

// QueryByVoter returns the voter's full vote history in append order.
func (s *VoteLedgerService) QueryByVoter(ctx context.Context, voterID int) ([]models.Vote, error) {
	return s.query(ctx, `
		SELECT id, vote_id, voter_id, candidate_id, kind, gift_type, amount, vote_value, created_at
		FROM votes
		WHERE voter_id = $1
		ORDER BY id
	`, voterID)
}

func (s *VoteLedgerService) query(ctx context.Context, q string, arg any) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		var giftType sql.NullString
		if err := rows.Scan(&v.ID, &v.VoteID, &v.VoterID, &v.CandidateID, &v.Kind, &giftType,
			&v.Amount, &v.VoteValue, &v.CreatedAt); err != nil {
			return nil, err
		}
		if giftType.Valid {
			gt := models.GiftType(giftType.String)
			v.GiftType = &gt
		}
		votes = append(votes, v)
	}

	return votes, rows.Err()
}
