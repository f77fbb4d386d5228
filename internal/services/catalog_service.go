package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/votearena/backend/internal/models"
)

// giftCatalog is the fixed gift catalog. Order is the display order.
var giftCatalog = []models.Gift{
	{Type: models.GiftStar, Name: "Star", VoteValue: 300, Price: 1000, Icon: "⭐", Color: "#FFD700"},
	{Type: models.GiftCrown, Name: "Crown", VoteValue: 5000, Price: 15000, Icon: "👑", Color: "#FFD700"},
	{Type: models.GiftGold, Name: "Gold", VoteValue: 2000, Price: 6000, Icon: "🥇", Color: "#FFD700"},
	{Type: models.GiftSilver, Name: "Silver", VoteValue: 700, Price: 2000, Icon: "🥈", Color: "#C0C0C0"},
	{Type: models.GiftLove, Name: "Love", VoteValue: 3000, Price: 9000, Icon: "💖", Color: "#FF69B4"},
	{Type: models.GiftDiamond, Name: "Diamond", VoteValue: 4000, Price: 12000, Icon: "💎", Color: "#00CED1"},
}

// CatalogService answers candidate and gift lookups. It is read-only: the
// gift catalog is compiled in and candidate rows are seeded out of band.
type CatalogService struct {
	db    *sql.DB
	gifts map[models.GiftType]models.Gift
}

func NewCatalogService(db *sql.DB) *CatalogService {
	gifts := make(map[models.GiftType]models.Gift, len(giftCatalog))
	for _, g := range giftCatalog {
		gifts[g.Type] = g
	}
	return &CatalogService{db: db, gifts: gifts}
}

// GetGift resolves a gift definition by type.
func (s *CatalogService) GetGift(giftType models.GiftType) (models.Gift, error) {
	gift, ok := s.gifts[giftType]
	if !ok {
		return models.Gift{}, ErrInvalidGiftType
	}
	return gift, nil
}

// ListGifts returns the catalog in its fixed display order.
func (s *CatalogService) ListGifts() []models.Gift {
	out := make([]models.Gift, len(giftCatalog))
	copy(out, giftCatalog)
	return out
}

// GetCandidate resolves a candidate by id.
func (s *CatalogService) GetCandidate(ctx context.Context, id int) (*models.Candidate, error) {
	var c models.Candidate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, bio, category, image, total_votes, created_at
		FROM candidates
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Bio, &c.Category, &c.Image, &c.TotalVotes, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCandidates returns all candidates ordered by id.
func (s *CatalogService) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, bio, category, image, total_votes, created_at
		FROM candidates
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Bio, &c.Category, &c.Image, &c.TotalVotes, &c.CreatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ListCandidatesHandler lists contest candidates
// @Summary List candidates
// @Description Get all contest candidates
// @Tags catalog
// @Produce json
// @Success 200 {object} object{candidates=[]models.Candidate,count=int}
// @Failure 500 {object} ErrorResponse
// @Router /candidates [get]
func (s *CatalogService) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.ListCandidates(r.Context())
	if err != nil {
		log.Printf("[CATALOG] Failed to list candidates: %v", err)
		SendErrorResponse(w, "Failed to fetch candidates", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// GetCandidateHandler fetches one candidate
// @Summary Get candidate
// @Description Get a candidate by id
// @Tags catalog
// @Produce json
// @Param candidateId path int true "Candidate ID"
// @Success 200 {object} models.Candidate
// @Failure 404 {object} ErrorResponse
// @Router /candidates/{candidateId} [get]
func (s *CatalogService) GetCandidateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "candidateId"))
	if err != nil {
		SendErrorResponse(w, "Invalid candidate id", http.StatusBadRequest, nil)
		return
	}

	candidate, err := s.GetCandidate(r.Context(), id)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(candidate)
}

// ListGiftsHandler lists the gift catalog
// @Summary List gifts
// @Description Get the gift catalog in display order
// @Tags catalog
// @Produce json
// @Success 200 {object} object{gifts=[]models.Gift}
// @Router /gifts [get]
func (s *CatalogService) ListGiftsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"gifts": s.ListGifts(),
	})
}
