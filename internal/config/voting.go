package config

import (
	"os"
	"strconv"
	"time"
)

type VotingConfig struct {
	VotePrice      int64         // flat charge per money-vote, minor units
	Currency       string
	BulkMaxVotes   int           // per-request cap on bulk casting
	TotalsCacheTTL time.Duration // redis cache of per-candidate totals
	LeaderboardMax int
}

func LoadVotingConfig() *VotingConfig {
	return &VotingConfig{
		VotePrice:      getEnvAsInt64("VOTE_PRICE", 200),
		Currency:       getEnv("VOTE_CURRENCY", "NGN"),
		BulkMaxVotes:   getEnvAsInt("VOTE_BULK_MAX", 100),
		TotalsCacheTTL: getEnvAsDuration("VOTE_TOTALS_CACHE_TTL", 30*time.Second),
		LeaderboardMax: getEnvAsInt("LEADERBOARD_MAX", 50),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
