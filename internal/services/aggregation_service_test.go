package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestAggregationService_TotalVotes(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewAggregationService(db, redisClient)

	t.Run("cache miss sums the ledger and caches the result", func(t *testing.T) {
		candidateID := 2

		redisMock.ExpectGet(totalsCacheKey(candidateID)).RedisNil()

		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(vote_value\\), 0\\) FROM votes WHERE candidate_id = \\$1").
			WithArgs(candidateID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(4400))

		redisMock.ExpectSet(totalsCacheKey(candidateID), int64(4400), service.cfg.TotalsCacheTTL).SetVal("OK")

		total, err := service.TotalVotes(context.Background(), candidateID)
		assert.NoError(t, err)
		assert.Equal(t, int64(4400), total)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cache hit skips the ledger", func(t *testing.T) {
		candidateID := 2

		redisMock.ExpectGet(totalsCacheKey(candidateID)).SetVal("4400")

		total, err := service.TotalVotes(context.Background(), candidateID)
		assert.NoError(t, err)
		assert.Equal(t, int64(4400), total)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("empty ledger totals zero", func(t *testing.T) {
		candidateID := 9

		redisMock.ExpectGet(totalsCacheKey(candidateID)).RedisNil()

		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(vote_value\\), 0\\) FROM votes WHERE candidate_id = \\$1").
			WithArgs(candidateID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))

		redisMock.ExpectSet(totalsCacheKey(candidateID), int64(0), service.cfg.TotalsCacheTTL).SetVal("OK")

		total, err := service.TotalVotes(context.Background(), candidateID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestAggregationService_Ranked(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAggregationService(db, nil)

	t.Run("orders by total descending with id breaking ties", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY total DESC, c.id ASC").
			WithArgs(service.cfg.LeaderboardMax).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "image", "total"}).
				AddRow(3, "Chi Eze", "dance", "chi.png", 5000).
				AddRow(1, "Ada Obi", "music", "ada.png", 3000).
				AddRow(2, "Bola Ade", "comedy", "bola.png", 3000))

		ranked, err := service.Ranked(context.Background(), 0)
		assert.NoError(t, err)
		assert.Len(t, ranked, 3)
		assert.Equal(t, 3, ranked[0].CandidateID)
		assert.Equal(t, 1, ranked[0].Rank)
		// Equal totals come back in id order; ranks stay distinct.
		assert.Equal(t, 1, ranked[1].CandidateID)
		assert.Equal(t, 2, ranked[2].CandidateID)
		assert.Equal(t, 3, ranked[2].Rank)
	})

	t.Run("no candidates yields empty slice", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY total DESC, c.id ASC").
			WithArgs(service.cfg.LeaderboardMax).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "image", "total"}))

		ranked, err := service.Ranked(context.Background(), 0)
		assert.NoError(t, err)
		assert.Empty(t, ranked)
	})
}

func TestAggregationService_MaxVotes(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAggregationService(db, nil)

	t.Run("returns the top total", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY total DESC, c.id ASC").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "image", "total"}).
				AddRow(3, "Chi Eze", "dance", "chi.png", 5000))

		max, err := service.MaxVotes(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(5000), max)
	})

	t.Run("zero when there are no candidates", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY total DESC, c.id ASC").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "image", "total"}))

		max, err := service.MaxVotes(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(0), max)
	})
}

func TestAggregationService_TopVoters(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAggregationService(db, nil)

	t.Run("ranks voters by weight given", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY total DESC, u.id ASC").
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "full_name", "total"}).
				AddRow(5, "ada", "Ada Obi", 900).
				AddRow(8, "bola", "Bola Ade", 400))

		voters, err := service.TopVoters(context.Background(), 10)
		assert.NoError(t, err)
		assert.Len(t, voters, 2)
		assert.Equal(t, 5, voters[0].UserID)
		assert.Equal(t, int64(900), voters[0].TotalVotes)
		assert.Equal(t, 2, voters[1].Rank)
	})
}
