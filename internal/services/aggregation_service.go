package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/votearena/backend/internal/config"
)

const settlementQueueKey = "settlement_queue"

func totalsCacheKey(candidateID int) string {
	return "votes:total:" + strconv.Itoa(candidateID)
}

// RankedCandidate is one leaderboard row.
type RankedCandidate struct {
	CandidateID int    `json:"candidateId"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	TotalVotes  int64  `json:"totalVotes"`
	Rank        int    `json:"rank"`
}

// RankedVoter is one top-voters row.
type RankedVoter struct {
	UserID     int    `json:"userId"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	TotalVotes int64  `json:"totalVotes"`
	Rank       int    `json:"rank"`
}

// AggregationService derives totals and rankings from the vote ledger on
// demand. Cached candidate counters are never consulted here; the ledger is
// recomputed every time, through a short-lived Redis cache.
type AggregationService struct {
	db    *sql.DB
	redis *redis.Client
	cfg   *config.VotingConfig
}

func NewAggregationService(db *sql.DB, redisClient *redis.Client) *AggregationService {
	return &AggregationService{
		db:    db,
		redis: redisClient,
		cfg:   config.LoadVotingConfig(),
	}
}

// TotalVotes returns the candidate's total vote weight, summed from ledger
// records. Repeated calls without an intervening cast return the same value.
func (s *AggregationService) TotalVotes(ctx context.Context, candidateID int) (int64, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, totalsCacheKey(candidateID)).Result(); err == nil {
			if total, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return total, nil
			}
		}
	}

	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(vote_value), 0) FROM votes WHERE candidate_id = $1
	`, candidateID).Scan(&total)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, totalsCacheKey(candidateID), total, s.cfg.TotalsCacheTTL).Err(); err != nil {
			log.Printf("[AGGREGATION] Failed to cache total for candidate %d: %v", candidateID, err)
		}
	}

	return total, nil
}

// Ranked returns all candidates ordered by total vote weight descending.
// Equal totals are broken by candidate id ascending, so the order is
// deterministic.
func (s *AggregationService) Ranked(ctx context.Context, limit int) ([]RankedCandidate, error) {
	if limit <= 0 || limit > s.cfg.LeaderboardMax {
		limit = s.cfg.LeaderboardMax
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.category, c.image, COALESCE(SUM(v.vote_value), 0) AS total
		FROM candidates c
		LEFT JOIN votes v ON v.candidate_id = c.id
		GROUP BY c.id, c.name, c.category, c.image
		ORDER BY total DESC, c.id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranked := []RankedCandidate{}
	for rows.Next() {
		var rc RankedCandidate
		if err := rows.Scan(&rc.CandidateID, &rc.Name, &rc.Category, &rc.Image, &rc.TotalVotes); err != nil {
			return nil, err
		}
		rc.Rank = len(ranked) + 1
		ranked = append(ranked, rc)
	}

	return ranked, rows.Err()
}

// MaxVotes returns the highest candidate total, 0 when there are no
// candidates, so percentage displays never divide by zero.
func (s *AggregationService) MaxVotes(ctx context.Context) (int64, error) {
	ranked, err := s.Ranked(ctx, 1)
	if err != nil {
		return 0, err
	}
	if len(ranked) == 0 {
		return 0, nil
	}
	return ranked[0].TotalVotes, nil
}

// TopVoters ranks voters by total vote weight given, from the ledger.
func (s *AggregationService) TopVoters(ctx context.Context, limit int) ([]RankedVoter, error) {
	if limit <= 0 || limit > s.cfg.LeaderboardMax {
		limit = s.cfg.LeaderboardMax
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.full_name, COALESCE(SUM(v.vote_value), 0) AS total
		FROM users u
		INNER JOIN votes v ON v.voter_id = u.id
		GROUP BY u.id, u.username, u.full_name
		ORDER BY total DESC, u.id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voters := []RankedVoter{}
	for rows.Next() {
		var rv RankedVoter
		if err := rows.Scan(&rv.UserID, &rv.Username, &rv.FullName, &rv.TotalVotes); err != nil {
			return nil, err
		}
		rv.Rank = len(voters) + 1
		voters = append(voters, rv)
	}

	return voters, rows.Err()
}

// LeaderboardHandler returns the candidate leaderboard
// @Summary Candidate leaderboard
// @Description Get candidates ranked by total vote weight, ties broken by candidate id ascending
// @Tags leaderboard
// @Produce json
// @Param limit query int false "Number of rows to return"
// @Success 200 {object} object{leaderboard=[]RankedCandidate,maxVotes=int64}
// @Failure 500 {object} ErrorResponse
// @Router /leaderboard [get]
func (s *AggregationService) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	ranked, err := s.Ranked(r.Context(), limit)
	if err != nil {
		log.Printf("[AGGREGATION] Failed to build leaderboard: %v", err)
		SendErrorResponse(w, "Failed to build leaderboard", http.StatusInternalServerError, nil)
		return
	}

	var maxVotes int64
	if len(ranked) > 0 {
		maxVotes = ranked[0].TotalVotes
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"leaderboard": ranked,
		"maxVotes":    maxVotes,
	})
}

// VotersLeaderboardHandler returns the top-voters leaderboard
// @Summary Top voters
// @Description Get voters ranked by total vote weight given
// @Tags leaderboard
// @Produce json
// @Param limit query int false "Number of rows to return"
// @Success 200 {object} object{voters=[]RankedVoter}
// @Failure 500 {object} ErrorResponse
// @Router /leaderboard/voters [get]
func (s *AggregationService) VotersLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	voters, err := s.TopVoters(r.Context(), limit)
	if err != nil {
		log.Printf("[AGGREGATION] Failed to rank voters: %v", err)
		SendErrorResponse(w, "Failed to rank voters", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"voters": voters,
	})
}

// CandidateTotalsHandler returns one candidate's total
// @Summary Candidate vote total
// @Description Get a candidate's total vote weight recomputed from the ledger
// @Tags leaderboard
// @Produce json
// @Param candidateId path int true "Candidate ID"
// @Success 200 {object} object{candidateId=int,totalVotes=int64}
// @Failure 400 {object} ErrorResponse
// @Router /candidates/{candidateId}/votes [get]
func (s *AggregationService) CandidateTotalsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "candidateId"))
	if err != nil {
		SendErrorResponse(w, "Invalid candidate id", http.StatusBadRequest, nil)
		return
	}

	total, err := s.TotalVotes(r.Context(), id)
	if err != nil {
		log.Printf("[AGGREGATION] Failed to total candidate %d: %v", id, err)
		SendErrorResponse(w, "Failed to compute total", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"candidateId": id,
		"totalVotes":  total,
	})
}
