package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// LogConfig selects the slog handler and minimum level.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// EnrichmentConfig configures the outbound enrichment service and its webhook.
type EnrichmentConfig struct {
	ServiceURL    string        `yaml:"service_url" env:"ENRICHMENT_SERVICE_URL" env-default:"http://localhost:5678/webhook/enrich-contact"`
	CallbackURL   string        `yaml:"callback_url" env:"ENRICHMENT_CALLBACK_URL" env-default:"http://localhost:8080/webhooks/enrichment"`
	Timeout       time.Duration `yaml:"timeout" env:"ENRICHMENT_TIMEOUT" env-default:"10s"`
	MaxRetries    int           `yaml:"max_retries" env:"ENRICHMENT_MAX_RETRIES" env-default:"3"`
	UseIDToken    bool          `yaml:"use_id_token" env:"ENRICHMENT_USE_ID_TOKEN" env-default:"false"`
	WebhookSecret string        `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	PendingAfter  time.Duration `yaml:"pending_after" env:"RECONCILE_PENDING_AFTER" env-default:"24h"`
	PhoneRegion   string        `yaml:"phone_region" env:"DEFAULT_PHONE_REGION" env-default:"US"`
}

// PoolConfig sizes the pgx connection pool.
type PoolConfig struct {
	MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" env-default:"15m"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"false"`
}

// MatchConfig holds the fuzzy matching tunables.
type MatchConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" env:"MATCH_FUZZY_THRESHOLD" env-default:"0.7"`
	FuzzyWeight    float64 `yaml:"fuzzy_weight" env:"MATCH_FUZZY_WEIGHT" env-default:"0.8"`
}

// AlertConfig sets the metric alert thresholds. Rates are percentages, costs are cents.
type AlertConfig struct {
	MaxErrorRate         float64 `yaml:"max_error_rate" env:"ALERT_MAX_ERROR_RATE" env-default:"10"`
	MinMatchRate         float64 `yaml:"min_match_rate" env:"ALERT_MIN_MATCH_RATE" env-default:"50"`
	MaxAvgCost           float64 `yaml:"max_avg_cost" env:"ALERT_MAX_AVG_COST" env-default:"300"`
	MaxLowConfidenceRate float64 `yaml:"max_low_confidence_rate" env:"ALERT_MAX_LOW_CONFIDENCE_RATE" env-default:"20"`
	MaxDailyCost         int     `yaml:"max_daily_cost" env:"ALERT_MAX_DAILY_COST" env-default:"5000"`
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL        string           `yaml:"database_url" env:"DATABASE_URL"`
	JWTSecret          string           `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret"`
	Port               string           `yaml:"port" env:"PORT" env-default:"8080"`
	TokenTTL           time.Duration    `yaml:"jwt_ttl" env:"JWT_TTL" env-default:"24h"`
	RateLimitEnrichRaw string           `yaml:"rate_limit_enrich" env:"RATE_LIMIT_ENRICH" env-default:"5/min"`
	MetricsDefaultDays int              `yaml:"metrics_default_days" env:"METRICS_DEFAULT_DAYS" env-default:"30"`
	Pool               PoolConfig       `yaml:"pool"`
	Log                LogConfig        `yaml:"log"`
	Enrichment         EnrichmentConfig `yaml:"enrichment"`
	Match              MatchConfig      `yaml:"match"`
	Alerts             AlertConfig      `yaml:"alerts"`

	RateLimitEnrich RateLimitConfig `yaml:"-"`
}

// Load reads configuration from an optional YAML file (CONFIG_PATH) and the environment.
func Load() (*Config, error) {
	var cfg Config

	if path := getEnv("CONFIG_PATH", ""); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}

	rl, err := parseRateLimit(cfg.RateLimitEnrichRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_ENRICH value: %w", err)
	}
	cfg.RateLimitEnrich = rl

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects tunables outside their meaningful ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Match.FuzzyThreshold < 0 || c.Match.FuzzyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("MATCH_FUZZY_THRESHOLD must be in [0,1), got %v", c.Match.FuzzyThreshold))
	}
	if c.Match.FuzzyWeight <= 0 || c.Match.FuzzyWeight >= 1 {
		errs = append(errs, fmt.Errorf("MATCH_FUZZY_WEIGHT must be in (0,1), got %v", c.Match.FuzzyWeight))
	}
	if c.Enrichment.Timeout <= 0 {
		errs = append(errs, errors.New("ENRICHMENT_TIMEOUT must be positive"))
	}
	if c.Enrichment.MaxRetries < 0 {
		errs = append(errs, errors.New("ENRICHMENT_MAX_RETRIES must not be negative"))
	}
	if c.Enrichment.PendingAfter <= 0 {
		errs = append(errs, errors.New("RECONCILE_PENDING_AFTER must be positive"))
	}
	if c.Pool.MinConns < 0 || c.Pool.MaxConns < c.Pool.MinConns {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Pool.MaxConns, c.Pool.MinConns))
	}
	if c.MetricsDefaultDays <= 0 {
		errs = append(errs, errors.New("METRICS_DEFAULT_DAYS must be positive"))
	}
	for name, rate := range map[string]float64{
		"ALERT_MAX_ERROR_RATE":          c.Alerts.MaxErrorRate,
		"ALERT_MIN_MATCH_RATE":          c.Alerts.MinMatchRate,
		"ALERT_MAX_LOW_CONFIDENCE_RATE": c.Alerts.MaxLowConfidenceRate,
	} {
		if rate < 0 || rate > 100 {
			errs = append(errs, fmt.Errorf("%s must be in [0,100], got %v", name, rate))
		}
	}
	if c.Alerts.MaxAvgCost < 0 {
		errs = append(errs, errors.New("ALERT_MAX_AVG_COST must not be negative"))
	}
	if c.Alerts.MaxDailyCost < 0 {
		errs = append(errs, errors.New("ALERT_MAX_DAILY_COST must not be negative"))
	}
	return errors.Join(errs...)
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
