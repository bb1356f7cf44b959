package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for M42.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	ReferralTokenSecret string
	TokenTTL            time.Duration

	ClearingInterval       time.Duration
	MinPayoutAmount        float64
	ClickVelocityThreshold int
	ClickVelocityWindow    time.Duration
	IdempotencyTTL         time.Duration
	PayoutMaxRetries       int
	PayoutBackoff          time.Duration

	PayoutProviderMode    string
	PayoutProviderURL     string
	PayoutProviderAPIKey  string
	PayoutProviderTimeout time.Duration

	ListingServiceTarget string

	KafkaBrokers []string
	TopicPrefix  string

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL   string   `yaml:"postgres_url"`
		RedisURL      string   `yaml:"redis_url"`
		KafkaBrokers  []string `yaml:"kafka_brokers"`
		ListingTarget string   `yaml:"listing_service_target"`
	} `yaml:"dependencies"`
	Referral struct {
		TokenSecret            string  `yaml:"token_secret"`
		TokenTTLDays           int     `yaml:"token_ttl_days"`
		ClearingIntervalDays   int     `yaml:"clearing_interval_days"`
		MinPayoutAmount        float64 `yaml:"min_payout_amount"`
		ClickVelocityThreshold int     `yaml:"click_velocity_threshold"`
	} `yaml:"referral"`
	Payout struct {
		Mode           string `yaml:"mode"`
		ProviderURL    string `yaml:"provider_url"`
		ProviderAPIKey string `yaml:"provider_api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"payout"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:              "M42-Referral-Commission-Service",
		HTTPPort:               8080,
		GRPCPort:               9090,
		TokenTTL:               30 * 24 * time.Hour,
		ClearingInterval:       7 * 24 * time.Hour,
		MinPayoutAmount:        25,
		ClickVelocityThreshold: 30,
		ClickVelocityWindow:    time.Hour,
		IdempotencyTTL:         7 * 24 * time.Hour,
		PayoutMaxRetries:       1,
		PayoutBackoff:          2 * time.Second,
		PayoutProviderMode:     "sandbox",
		PayoutProviderTimeout:  10 * time.Second,
		MaxDBConns:             20,
		OutboxPollInterval:     2 * time.Second,
		OutboxBatchSize:        100,
		OutboxClaimTTL:         30 * time.Second,
		OutboxMaxRetries:       5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.ListingTarget != "" {
			cfg.ListingServiceTarget = f.Dependencies.ListingTarget
		}
		if f.Referral.TokenSecret != "" {
			cfg.ReferralTokenSecret = f.Referral.TokenSecret
		}
		if f.Referral.TokenTTLDays > 0 {
			cfg.TokenTTL = time.Duration(f.Referral.TokenTTLDays) * 24 * time.Hour
		}
		if f.Referral.ClearingIntervalDays > 0 {
			cfg.ClearingInterval = time.Duration(f.Referral.ClearingIntervalDays) * 24 * time.Hour
		}
		if f.Referral.MinPayoutAmount > 0 {
			cfg.MinPayoutAmount = f.Referral.MinPayoutAmount
		}
		if f.Referral.ClickVelocityThreshold > 0 {
			cfg.ClickVelocityThreshold = f.Referral.ClickVelocityThreshold
		}
		if f.Payout.Mode != "" {
			cfg.PayoutProviderMode = f.Payout.Mode
		}
		if f.Payout.ProviderURL != "" {
			cfg.PayoutProviderURL = f.Payout.ProviderURL
		}
		if f.Payout.ProviderAPIKey != "" {
			cfg.PayoutProviderAPIKey = f.Payout.ProviderAPIKey
		}
		if f.Payout.TimeoutSeconds > 0 {
			cfg.PayoutProviderTimeout = time.Duration(f.Payout.TimeoutSeconds) * time.Second
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.ReferralTokenSecret = envOrDefault("REFERRAL_TOKEN_SECRET", cfg.ReferralTokenSecret)
	cfg.PayoutProviderMode = strings.ToLower(strings.TrimSpace(envOrDefault("PAYOUT_PROVIDER_MODE", cfg.PayoutProviderMode)))
	cfg.PayoutProviderURL = envOrDefault("PAYOUT_PROVIDER_URL", cfg.PayoutProviderURL)
	cfg.PayoutProviderAPIKey = envOrDefault("PAYOUT_PROVIDER_API_KEY", cfg.PayoutProviderAPIKey)
	cfg.ListingServiceTarget = envOrDefault("LISTING_SERVICE_TARGET", cfg.ListingServiceTarget)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.TopicPrefix = envOrDefault("KAFKA_TOPIC_PREFIX", cfg.TopicPrefix)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.ClickVelocityThreshold = envInt("CLICK_VELOCITY_THRESHOLD", cfg.ClickVelocityThreshold)
	cfg.PayoutMaxRetries = envInt("PAYOUT_MAX_RETRIES", cfg.PayoutMaxRetries)

	cfg.TokenTTL = time.Duration(envInt("REFERRAL_TOKEN_TTL_DAYS", int(cfg.TokenTTL.Hours()/24))) * 24 * time.Hour
	cfg.ClearingInterval = time.Duration(envInt("CLEARING_INTERVAL_DAYS", int(cfg.ClearingInterval.Hours()/24))) * 24 * time.Hour
	cfg.ClickVelocityWindow = time.Duration(envInt("CLICK_VELOCITY_WINDOW_SECONDS", int(cfg.ClickVelocityWindow.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.PayoutBackoff = time.Duration(envInt("PAYOUT_BACKOFF_SECONDS", int(cfg.PayoutBackoff.Seconds()))) * time.Second
	cfg.PayoutProviderTimeout = time.Duration(envInt("PAYOUT_TIMEOUT_SECONDS", int(cfg.PayoutProviderTimeout.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.ReferralTokenSecret == "" {
		return Config{}, fmt.Errorf("missing REFERRAL_TOKEN_SECRET")
	}
	if cfg.PayoutProviderMode == "live" && cfg.PayoutProviderURL == "" {
		return Config{}, fmt.Errorf("missing PAYOUT_PROVIDER_URL for live payout mode")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
