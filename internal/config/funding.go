package config

import "time"

type FundingConfig struct {
	ReferenceLength     int
	ReferenceTimeout    time.Duration
	MaxInitiatesPerUser int
	RateLimitWindow     time.Duration
	ReferencePrefix     string
	MinAmount           int64
	MaxAmount           int64
}

func LoadFundingConfig() *FundingConfig {
	return &FundingConfig{
		ReferenceLength:     getEnvAsInt("FUNDING_REF_LENGTH", 12),
		ReferenceTimeout:    getEnvAsDuration("FUNDING_REF_TIMEOUT", 15*time.Minute),
		MaxInitiatesPerUser: getEnvAsInt("FUNDING_MAX_INITIATES_PER_USER", 5),
		RateLimitWindow:     getEnvAsDuration("FUNDING_RATE_LIMIT_WINDOW", 1*time.Hour),
		ReferencePrefix:     getEnv("FUNDING_REF_PREFIX", "FND"),
		MinAmount:           getEnvAsInt64("FUNDING_MIN_AMOUNT", 100),
		MaxAmount:           getEnvAsInt64("FUNDING_MAX_AMOUNT", 1_000_000),
	}
}
