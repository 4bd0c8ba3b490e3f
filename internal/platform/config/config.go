// Package config builds typed configuration from environment variables so
// main stays lean. Scoring weights are configuration, not constants: source
// policies disagree on exact splits, so the engine validates them at startup
// instead of hard-coding one.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// Postgres configures the event and ledger stores. Empty URL selects the
// in-memory stores (single-node development mode).
type Postgres struct {
	URL string
}

// Redis configures the verdict stats counters. Empty URL selects the
// in-memory counter store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the alert publisher. Empty broker list disables publishing;
// alerts are then only logged.
type Kafka struct {
	Brokers    []string
	AlertTopic string
}

// Analyzer holds usage pattern thresholds and flag weights.
type Analyzer struct {
	FrequencyThreshold int           // events within FrequencyWindow before the flag fires
	FrequencyWindow    time.Duration // trailing window, current event inclusive
	DormancyGap        time.Duration // gap to previous event that counts as reactivation

	FrequencyWeight    float64
	ReuseWeight        float64
	ReactivationWeight float64
}

// Quality holds interpreter weights and thresholds. The three axis weights
// must sum to 1.0.
type Quality struct {
	LivenessWeight    float64
	ClarityWeight     float64
	TextureWeight     float64
	DistortionPenalty float64 // risk points added per distinct distortion flag
	ReasonThreshold   float64 // per-axis deficit in [0,1] above which a reason code fires

	IndicatorDigestKey string // keyed digest secret; indicator is never persisted raw
}

// Fusion holds the combination weights and classification bands. UsageWeight
// and QualityWeight must sum to 1.0. Scores ascend with risk: 0 safest, 100
// riskiest; band boundaries belong to the severer band.
type Fusion struct {
	UsageWeight   float64
	QualityWeight float64
	SuspiciousAt  float64
	HighAt        float64
}

// Classifier configures the liveness/quality collaborator call.
type Classifier struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	// Required controls degraded mode: when false, classifier failure yields a
	// usage-only verdict flagged quality_unavailable; when true the analysis
	// is rejected with service_unavailable.
	Required bool
}

// Identity configures the identity/case collaborator call.
type Identity struct {
	BaseURL string
	Timeout time.Duration
}

// Config aggregates all component configuration.
type Config struct {
	Server     Server
	Postgres   Postgres
	Redis      Redis
	Kafka      Kafka
	Analyzer   Analyzer
	Quality    Quality
	Fusion     Fusion
	Classifier Classifier
	Identity   Identity
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envStr("PRINTTRACE_ADDR", ":8080"),
			ReadTimeout:   envDuration("PRINTTRACE_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  envDuration("PRINTTRACE_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:   envDuration("PRINTTRACE_IDLE_TIMEOUT", 120*time.Second),
			JWTSigningKey: envStr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envStr("JWT_ISSUER", "printtrace"),
			JWTAudience:   envStr("JWT_AUDIENCE", "investigators"),
		},
		Postgres: Postgres{
			URL: os.Getenv("POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    envList("KAFKA_BROKERS"),
			AlertTopic: envStr("KAFKA_ALERT_TOPIC", "printtrace.alerts"),
		},
		Analyzer: Analyzer{
			FrequencyThreshold: envInt("ANALYZER_FREQUENCY_THRESHOLD", 5),
			FrequencyWindow:    envDuration("ANALYZER_FREQUENCY_WINDOW", 24*time.Hour),
			DormancyGap:        envDuration("ANALYZER_DORMANCY_GAP", 30*24*time.Hour),
			FrequencyWeight:    envFloat("ANALYZER_FREQUENCY_WEIGHT", 30),
			ReuseWeight:        envFloat("ANALYZER_REUSE_WEIGHT", 40),
			ReactivationWeight: envFloat("ANALYZER_REACTIVATION_WEIGHT", 30),
		},
		Quality: Quality{
			LivenessWeight:     envFloat("QUALITY_LIVENESS_WEIGHT", 0.5),
			ClarityWeight:      envFloat("QUALITY_CLARITY_WEIGHT", 0.25),
			TextureWeight:      envFloat("QUALITY_TEXTURE_WEIGHT", 0.25),
			DistortionPenalty:  envFloat("QUALITY_DISTORTION_PENALTY", 5),
			ReasonThreshold:    envFloat("QUALITY_REASON_THRESHOLD", 0.5),
			IndicatorDigestKey: envStr("INDICATOR_DIGEST_KEY", "dev-indicator-key"),
		},
		Fusion: Fusion{
			UsageWeight:   envFloat("FUSION_USAGE_WEIGHT", 0.4),
			QualityWeight: envFloat("FUSION_QUALITY_WEIGHT", 0.6),
			SuspiciousAt:  envFloat("FUSION_SUSPICIOUS_AT", 40),
			HighAt:        envFloat("FUSION_HIGH_AT", 70),
		},
		Classifier: Classifier{
			BaseURL:  os.Getenv("CLASSIFIER_URL"),
			Timeout:  envDuration("CLASSIFIER_TIMEOUT", 3*time.Second),
			Retries:  envInt("CLASSIFIER_RETRIES", 2),
			Backoff:  envDuration("CLASSIFIER_BACKOFF", 200*time.Millisecond),
			Required: os.Getenv("CLASSIFIER_REQUIRED") == "true",
		},
		Identity: Identity{
			BaseURL: os.Getenv("IDENTITY_URL"),
			Timeout: envDuration("IDENTITY_TIMEOUT", 3*time.Second),
		},
	}
}

// Validate checks the invariants the fusion and quality math depend on.
// A failed validation must abort startup.
func (c Config) Validate() error {
	if err := mustSumToOne("fusion usage/quality weights", c.Fusion.UsageWeight, c.Fusion.QualityWeight); err != nil {
		return err
	}
	if err := mustSumToOne("quality axis weights", c.Quality.LivenessWeight, c.Quality.ClarityWeight, c.Quality.TextureWeight); err != nil {
		return err
	}
	if c.Fusion.SuspiciousAt <= 0 || c.Fusion.HighAt <= c.Fusion.SuspiciousAt || c.Fusion.HighAt > 100 {
		return fmt.Errorf("config: classification bands must satisfy 0 < suspicious_at < high_at <= 100 (got %.1f, %.1f)",
			c.Fusion.SuspiciousAt, c.Fusion.HighAt)
	}
	if c.Analyzer.FrequencyThreshold < 1 {
		return fmt.Errorf("config: frequency threshold must be at least 1")
	}
	for name, w := range map[string]float64{
		"frequency":    c.Analyzer.FrequencyWeight,
		"reuse":        c.Analyzer.ReuseWeight,
		"reactivation": c.Analyzer.ReactivationWeight,
	} {
		if w < 0 || w > 100 {
			return fmt.Errorf("config: analyzer %s weight must be in [0,100]", name)
		}
	}
	if c.Quality.DistortionPenalty < 0 {
		return fmt.Errorf("config: distortion penalty must be non-negative")
	}
	if c.Classifier.Retries < 0 {
		return fmt.Errorf("config: classifier retries must be non-negative")
	}
	return nil
}

func mustSumToOne(what string, weights ...float64) error {
	var sum float64
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("config: %s must be non-negative", what)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("config: %s must sum to 1.0, got %.4f", what, sum)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
