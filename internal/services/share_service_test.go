package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestShareService_GenerateShareLink(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	catalog := NewCatalogService(db)
	service := NewShareService(db, redisClient, catalog)

	t.Run("issues a token, URL and QR image", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, bio, category, image, total_votes, created_at FROM candidates WHERE id = \\$1").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "bio", "category", "image", "total_votes", "created_at"}).
				AddRow(2, "Ada Obi", "Singer", "music", "ada.png", 0, time.Now()))

		redisMock.Regexp().ExpectSet(`share:.+`, `.+`, 24*time.Hour).SetVal("OK")

		token, shareURL, qrImage, err := service.GenerateShareLink(context.Background(), 2)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Contains(t, shareURL, "/vote/2?ref=")
		assert.NotEmpty(t, qrImage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown candidate", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, bio, category, image, total_votes, created_at FROM candidates WHERE id = \\$1").
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "bio", "category", "image", "total_votes", "created_at"}))

		_, _, _, err := service.GenerateShareLink(context.Background(), 99)
		assert.ErrorIs(t, err, ErrCandidateNotFound)
	})
}

func TestShareService_ResolveShareToken(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	catalog := NewCatalogService(db)
	service := NewShareService(db, redisClient, catalog)

	t.Run("resolves a live token", func(t *testing.T) {
		token := "test-token"
		redisMock.ExpectGet("share:" + token).SetVal(`{"candidateId":2,"candidateName":"Ada Obi"}`)

		result, err := service.ResolveShareToken(context.Background(), token)
		assert.NoError(t, err)
		assert.Equal(t, float64(2), result["candidateId"])
		assert.Equal(t, "Ada Obi", result["candidateName"])
	})

	t.Run("expired or unknown token", func(t *testing.T) {
		redisMock.ExpectGet("share:ghost").RedisNil()

		_, err := service.ResolveShareToken(context.Background(), "ghost")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid or expired")
	})
}

func TestShareService_WithoutTokenStore(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewShareService(db, nil, NewCatalogService(db))

	t.Run("generation reports unavailability instead of panicking", func(t *testing.T) {
		_, _, _, err := service.GenerateShareLink(context.Background(), 2)
		assert.ErrorIs(t, err, ErrShareUnavailable)
	})

	t.Run("resolution reports unavailability instead of panicking", func(t *testing.T) {
		_, err := service.ResolveShareToken(context.Background(), "any")
		assert.ErrorIs(t, err, ErrShareUnavailable)
	})
}
