package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/viper"
)

// ErrShareUnavailable is returned when the token store is down. Share
// links have no database fallback.
var ErrShareUnavailable = errors.New("share links temporarily unavailable")

// ShareService issues scannable share links for candidate profiles. The
// token resolves to the candidate's voting page for as long as it lives
// in Redis.
type ShareService struct {
	db      *sql.DB
	redis   *redis.Client
	catalog *CatalogService
}

func NewShareService(db *sql.DB, redisClient *redis.Client, catalog *CatalogService) *ShareService {
	return &ShareService{
		db:      db,
		redis:   redisClient,
		catalog: catalog,
	}
}

// GenerateShareLink builds a share token for the candidate and renders it
// as a QR code image.
func (s *ShareService) GenerateShareLink(ctx context.Context, candidateID int) (string, string, string, error) {
	if s.redis == nil {
		return "", "", "", ErrShareUnavailable
	}

	candidate, err := s.catalog.GetCandidate(ctx, candidateID)
	if err != nil {
		return "", "", "", err
	}

	shareData := map[string]any{
		"candidateId":   candidate.ID,
		"candidateName": candidate.Name,
		"timestamp":     time.Now().Unix(),
		"nonce":         s.generateNonce(),
	}

	jsonData, err := json.Marshal(shareData)
	if err != nil {
		return "", "", "", err
	}

	token := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("share:%s", token)
	if err := s.redis.Set(ctx, key, jsonData, 24*time.Hour).Err(); err != nil {
		return "", "", "", err
	}

	baseURL := viper.GetString("app.base_url")
	if baseURL == "" {
		baseURL = "https://votearena.app"
	}
	shareURL := fmt.Sprintf("%s/vote/%d?ref=%s", baseURL, candidate.ID, token)

	qr, err := qrcode.New(shareURL, qrcode.Medium)
	if err != nil {
		return "", "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return token, shareURL, qrImage, nil
}

// ResolveShareToken looks up a share token and returns the candidate it
// points at. Tokens survive resolution so a shared link keeps working.
func (s *ShareService) ResolveShareToken(ctx context.Context, token string) (map[string]any, error) {
	if s.redis == nil {
		return nil, ErrShareUnavailable
	}

	key := fmt.Sprintf("share:%s", token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired share token")
	}
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *ShareService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
