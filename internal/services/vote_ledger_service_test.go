package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/votearena/backend/internal/models"
)

func TestVoteLedgerService_AppendTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	catalog := NewCatalogService(db)
	service := NewVoteLedgerService(db, catalog)

	t.Run("assigns id, uuid and timestamp on insert", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		record := &models.Vote{
			VoterID:     1,
			CandidateID: 2,
			Kind:        models.VoteKindMoney,
			Amount:      200,
			VoteValue:   1,
		}

		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM candidates WHERE id = \\$1\\)").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		mock.ExpectQuery("INSERT INTO votes").
			WithArgs(sqlmock.AnyArg(), 1, 2, models.VoteKindMoney, nil, int64(200), int64(1), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		err := service.AppendTx(tx, record)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), record.ID)
		assert.NotEmpty(t, record.VoteID)
		assert.False(t, record.CreatedAt.IsZero())
	})

	t.Run("unresolvable candidate rejected before insert", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM candidates WHERE id = \\$1\\)").
			WithArgs(424242).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := service.AppendTx(tx, &models.Vote{
			VoterID:     1,
			CandidateID: 424242,
			Kind:        models.VoteKindMoney,
			Amount:      200,
			VoteValue:   1,
		})
		assert.ErrorIs(t, err, ErrCandidateNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		err := service.AppendTx(tx, &models.Vote{Amount: 0})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("gift record requires a known gift type", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		err := service.AppendTx(tx, &models.Vote{
			Kind:   models.VoteKindGift,
			Amount: 1000,
		})
		assert.ErrorIs(t, err, ErrInvalidGiftType)

		unknown := models.GiftType("meteor")
		err = service.AppendTx(tx, &models.Vote{
			Kind:     models.VoteKindGift,
			GiftType: &unknown,
			Amount:   1000,
		})
		assert.ErrorIs(t, err, ErrInvalidGiftType)
	})
}

func TestVoteLedgerService_QueryByCandidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	catalog := NewCatalogService(db)
	service := NewVoteLedgerService(db, catalog)

	t.Run("returns records in append order", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT id, vote_id, voter_id, candidate_id, kind, gift_type, amount, vote_value, created_at FROM votes WHERE candidate_id = \\$1 ORDER BY id").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "vote_id", "voter_id", "candidate_id", "kind", "gift_type", "amount", "vote_value", "created_at"}).
				AddRow(1, "v-1", 1, 2, "money", nil, 200, 1, now).
				AddRow(2, "v-2", 3, 2, "gift", "star", 1000, 300, now))

		votes, err := service.QueryByCandidate(context.Background(), 2)
		assert.NoError(t, err)
		assert.Len(t, votes, 2)
		assert.Equal(t, int64(1), votes[0].ID)
		assert.Nil(t, votes[0].GiftType)
		assert.NotNil(t, votes[1].GiftType)
		assert.Equal(t, models.GiftStar, *votes[1].GiftType)
		assert.Equal(t, int64(300), votes[1].Weight())
	})

	t.Run("empty history yields empty slice", func(t *testing.T) {
		mock.ExpectQuery("FROM votes WHERE candidate_id = \\$1 ORDER BY id").
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"id", "vote_id", "voter_id", "candidate_id", "kind", "gift_type", "amount", "vote_value", "created_at"}))

		votes, err := service.QueryByCandidate(context.Background(), 9)
		assert.NoError(t, err)
		assert.NotNil(t, votes)
		assert.Empty(t, votes)
	})
}
