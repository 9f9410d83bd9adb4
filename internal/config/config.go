// Package config holds all configuration for the scoring engine,
// loaded from a YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Behavioral   BehavioralConfig   `yaml:"behavioral"`
	Fraud        FraudConfig        `yaml:"fraud"`
	Grid         GridConfig         `yaml:"grid"`
	Timing       TimingConfig       `yaml:"timing"`
	Composite    CompositeConfig    `yaml:"composite"`
	Ingest       IngestConfig       `yaml:"ingest"`
	TextCache    TextCacheConfig    `yaml:"text_cache"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, honoring a container-environment override.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection settings used by the distributed
// lock. Addr may be empty, in which case the process falls back to
// in-process-only coordination.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ClassifierConfig configures the TextClassifier collaborator (§6.2).
type ClassifierConfig struct {
	Provider          string `yaml:"provider"` // "openai" or "stub"
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	TimeoutMS         int    `yaml:"timeout_ms"`
	Retries           int    `yaml:"retries"`
	MinResponseLength int    `yaml:"min_response_length_chars"`
	QueueCapacity     int    `yaml:"queue_capacity"`
	RatePerSecond     float64 `yaml:"rate_per_second"`
}

// Timeout returns the configured classifier timeout as a Duration.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TextCacheConfig configures the content-addressed classifier cache.
type TextCacheConfig struct {
	Capacity int `yaml:"capacity"`
	TTLSec   int `yaml:"ttl_s"`
}

// TTL returns the configured cache TTL as a Duration.
func (c TextCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// BehavioralConfig holds thresholds for the five behavioral analyzers (§4.2).
type BehavioralConfig struct {
	MinKeystrokeEvents int     `yaml:"min_keystroke_events"`
	MinMouseEvents     int     `yaml:"min_mouse_events"`
	MinTimingEvents    int     `yaml:"min_timing_events"`

	KeystrokeRegularMS    float64 `yaml:"keystroke_regular_ms"`
	KeystrokeFastMS       float64 `yaml:"keystroke_fast_ms"`
	KeystrokeSlowMS       float64 `yaml:"keystroke_slow_ms"`
	KeystrokeRoundShare   float64 `yaml:"keystroke_round_share"`

	MouseMaxSpeedPxS      float64 `yaml:"mouse_max_speed_px_s"`
	MousePerfectPrecision float64 `yaml:"mouse_perfect_precision"`
	MouseDistanceStddevPx float64 `yaml:"mouse_distance_stddev_px"`

	SessionMinDurationS      float64 `yaml:"session_min_duration_s"`
	SessionMaxRateEvS        float64 `yaml:"session_max_rate_ev_s"`
	SessionIntervalStddevS   float64 `yaml:"session_interval_stddev_s"`

	BotResolutions [][2]int `yaml:"bot_resolutions"`

	BehavioralBotThreshold float64 `yaml:"behavioral_bot_threshold"`

	Weights BehavioralWeights `yaml:"weights"`
}

// BehavioralWeights are the per-method weights summing to the
// behavioral_confidence (§4.2.6).
type BehavioralWeights struct {
	Keystroke float64 `yaml:"keystroke"`
	Mouse     float64 `yaml:"mouse"`
	Timing    float64 `yaml:"timing"`
	Device    float64 `yaml:"device"`
	Network   float64 `yaml:"network"`
}

// FraudConfig holds the FraudAnalyzer thresholds and weights (§4.4).
type FraudConfig struct {
	Weights            FraudWeights      `yaml:"weights"`
	DuplicateThreshold float64           `yaml:"duplicate_threshold"`
	SimilarityMetric   string            `yaml:"similarity_metric"`
	VelocityBands      []VelocityBand    `yaml:"velocity_bands"`
	IPReuseThreshold       float64 `yaml:"ip_reuse_threshold"`
	DeviceReuseThreshold   float64 `yaml:"device_reuse_threshold"`
	DuplicateFlagThreshold float64 `yaml:"duplicate_flag_threshold"`
	GeoFlagThreshold       float64 `yaml:"geo_flag_threshold"`
	VelocityFlagThreshold  float64 `yaml:"velocity_flag_threshold"`

	// GeoDBPath points at a MaxMind GeoLite2 City database. Empty
	// disables IP geolocation; the geo component then always returns
	// unavailable rather than guessing.
	GeoDBPath string `yaml:"geo_db_path"`
}

// FraudWeights are the per-component weights summing to 1 (§4.4, §6.4).
type FraudWeights struct {
	IP        float64 `yaml:"ip"`
	Device    float64 `yaml:"device"`
	Duplicate float64 `yaml:"duplicate"`
	Geo       float64 `yaml:"geo"`
	Velocity  float64 `yaml:"velocity"`
}

// VelocityBand maps a per-hour response rate to a velocity sub-score.
type VelocityBand struct {
	ThresholdPerHour float64 `yaml:"threshold_per_hour"`
	Score            float64 `yaml:"score"`
}

// GridConfig holds GridAnalyzer thresholds (§4.5).
type GridConfig struct {
	StraightlineShare float64 `yaml:"straightline_share"`
	MinRows           int     `yaml:"min_rows"`
	PatternMinRows    int     `yaml:"pattern_min_rows"`
}

// TimingConfig holds per-response TimingAnalyzer thresholds (§4.6).
type TimingConfig struct {
	SpeederMS        int64   `yaml:"speeder_ms"`
	FlatlinerMS      int64   `yaml:"flatliner_ms"`
	AnomalyZ         float64 `yaml:"anomaly_z"`
	AdaptiveEnabled  bool    `yaml:"adaptive_timing_enabled"`
	AdaptiveK        float64 `yaml:"adaptive_timing_k"`
}

// CompositeConfig holds CompositeScorer weights and decision bands (§4.7).
type CompositeConfig struct {
	Weights             CompositeWeights `yaml:"weights"`
	BotThreshold        float64          `yaml:"bot_threshold"`
	RiskBands           []RiskBand       `yaml:"risk_bands"`
	HumanLowTrustCutoff float64          `yaml:"human_low_trust_cutoff"`
}

// CompositeWeights are the four blending cases of §4.7.
type CompositeWeights struct {
	FullBehavioral float64 `yaml:"full_behavioral"`
	FullText       float64 `yaml:"full_text"`
	FullFraud      float64 `yaml:"full_fraud"`

	NoTextBehavioral float64 `yaml:"no_text_behavioral"`
	NoTextFraud      float64 `yaml:"no_text_fraud"`

	NoFraudBehavioral float64 `yaml:"no_fraud_behavioral"`
	NoFraudText       float64 `yaml:"no_fraud_text"`
}

// RiskBand maps a minimum composite score to a risk level label.
type RiskBand struct {
	GE    float64 `yaml:"ge"`
	Level string  `yaml:"level"`
}

// IngestConfig holds Ingest validation limits.
type IngestConfig struct {
	EventCountCap int `yaml:"event_count_cap"`
}

// Default returns a Config populated with the documented defaults of
// spec §6.4. Callers typically start from Default() then apply Load/
// LoadFromEnv overrides on top.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, Host: "0.0.0.0"},
		Database: DatabaseConfig{MaxOpenConns: 20, MaxIdleConns: 5},
		Classifier: ClassifierConfig{
			Provider:          "stub",
			Model:             "gpt-4o",
			TimeoutMS:         10000,
			Retries:           3,
			MinResponseLength: 10,
			QueueCapacity:     64,
			RatePerSecond:     10,
		},
		TextCache: TextCacheConfig{Capacity: 10000, TTLSec: 86400},
		Behavioral: BehavioralConfig{
			MinKeystrokeEvents:     5,
			MinMouseEvents:         3,
			MinTimingEvents:        5,
			KeystrokeRegularMS:     10,
			KeystrokeFastMS:        50,
			KeystrokeSlowMS:        2000,
			KeystrokeRoundShare:    0.80,
			MouseMaxSpeedPxS:       1000,
			MousePerfectPrecision:  0.99,
			MouseDistanceStddevPx:  5,
			SessionMinDurationS:    10,
			SessionMaxRateEvS:      50,
			SessionIntervalStddevS: 0.1,
			BotResolutions:         [][2]int{{1920, 1080}, {1366, 768}, {1440, 900}},
			BehavioralBotThreshold: 0.70,
			Weights: BehavioralWeights{
				Keystroke: 0.30, Mouse: 0.25, Timing: 0.20, Device: 0.15, Network: 0.10,
			},
		},
		Fraud: FraudConfig{
			Weights:                FraudWeights{IP: 0.25, Device: 0.25, Duplicate: 0.20, Geo: 0.15, Velocity: 0.15},
			DuplicateThreshold:     0.70,
			SimilarityMetric:       "trigram-jaccard",
			IPReuseThreshold:       0.60,
			DeviceReuseThreshold:   0.50,
			DuplicateFlagThreshold: 0.60,
			GeoFlagThreshold:       0.70,
			VelocityFlagThreshold:  0.60,
			GeoDBPath:              "",
			VelocityBands: []VelocityBand{
				{ThresholdPerHour: 20, Score: 1.00},
				{ThresholdPerHour: 10, Score: 0.80},
				{ThresholdPerHour: 5, Score: 0.60},
				{ThresholdPerHour: 3, Score: 0.40},
			},
		},
		Grid: GridConfig{StraightlineShare: 0.80, MinRows: 2, PatternMinRows: 3},
		Timing: TimingConfig{
			SpeederMS: 2000, FlatlinerMS: 300000, AnomalyZ: 2.5,
			AdaptiveEnabled: true, AdaptiveK: 1.0,
		},
		Composite: CompositeConfig{
			Weights: CompositeWeights{
				FullBehavioral: 0.40, FullText: 0.30, FullFraud: 0.30,
				NoTextBehavioral: 0.50, NoTextFraud: 0.50,
				NoFraudBehavioral: 0.60, NoFraudText: 0.40,
			},
			BotThreshold: 0.70,
			RiskBands: []RiskBand{
				{GE: 0.80, Level: "critical"},
				{GE: 0.60, Level: "high"},
				{GE: 0.40, Level: "medium"},
				{GE: 0.0, Level: "low"},
			},
			HumanLowTrustCutoff: 0.50,
		},
		Ingest: IngestConfig{EventCountCap: 10000},
	}
}

// Load reads a YAML config file, merging it on top of Default().
// A missing file is not an error: the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from path, then applies environment
// variable overrides for secrets that should never live in a checked-in
// YAML file. It loads a .env file first (no error if missing) so local
// development can keep secrets out of the shell profile.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if key := os.Getenv("TEXT_CLASSIFIER_API_KEY"); key != "" {
		cfg.Classifier.APIKey = key
	}
	if provider := os.Getenv("TEXT_CLASSIFIER_PROVIDER"); provider != "" {
		cfg.Classifier.Provider = provider
	}

	return cfg, cfg.Validate()
}

// Validate checks the cross-field invariants the spec calls out
// explicitly: fraud weights must sum to 1, and risk bands must be
// registered in descending order so the mapping is monotone (§8
// "risk_level is monotone in the driving score"). Composite weights
// are not checked.
func (c *Config) Validate() error {
	if sum := c.Fraud.Weights.IP + c.Fraud.Weights.Device + c.Fraud.Weights.Duplicate +
		c.Fraud.Weights.Geo + c.Fraud.Weights.Velocity; !approxOne(sum) {
		return fmt.Errorf("fraud_weights must sum to 1, got %.4f", sum)
	}
	for i := 1; i < len(c.Composite.RiskBands); i++ {
		if c.Composite.RiskBands[i].GE > c.Composite.RiskBands[i-1].GE {
			return fmt.Errorf("risk_bands must be in descending order by ge")
		}
	}
	return nil
}

func approxOne(v float64) bool {
	const eps = 1e-6
	return v > 1-eps && v < 1+eps
}
