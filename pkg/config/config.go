package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// ListenerConfig configures one live-ingestion listener (spec.md §6).
type ListenerConfig struct {
	ID                     string
	Name                   string
	Venue                  types.Venue
	Filters                types.DiscoveryFilter
	DiscoveryIntervalSecs  int
	EmitIntervalMS         int
	EnableForwardFill      bool
	IsActive               bool
}

// BacktestConfig configures one replay run (spec.md §6).
type BacktestConfig struct {
	StartTimeMS             int64
	EndTimeMS               int64
	Venue                   types.Venue
	AssetIDs                []string
	ListenerID              string
	InitialCash             string // parsed to decimal by the caller
	IncludeForwardFilled    bool
	MakerFeeBPS             int64
	TakerFeeBPS             int64
	MaxEventsInMemory       int
	EquitySampleIntervalEvt int
}

// ExecutionConfig configures the matching engine (spec.md §6).
type ExecutionConfig struct {
	FillProbability float64
	MinOrderSize    string
	MaxOrderSize    string
	OrderMaxAgeMS   int64 // 0 = unbounded
	MakerPolicy     string
}

// Config holds process-wide application configuration loaded from the
// environment, following the teacher's hand-rolled env-struct idiom
// rather than a config-file framework.
type Config struct {
	LogLevel string
	HTTPPort string

	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
	StorageMode  string // "postgres" or "console"

	// Persistence writer batching (C3).
	WriterBatchSize    int
	WriterFlushInterval time.Duration

	// Venue A (separate-token) transport.
	VenueAWSURL   string
	VenueARESTURL string

	// Venue B (single-ticker) transport + auth.
	VenueBWSURL      string
	VenueBRESTURL    string
	VenueBAPIKey     string
	VenueBPrivatePEM string

	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSReconnectTripThreshold int
	WSReconnectCooldown      time.Duration
	WSMessageBufferSize     int

	DiscoveryIntervalSeconds int
	ForwardFillIntervalMS    int

	// HealthStalenessThreshold governs the /ready endpoint: once this
	// long has passed with no venue event dispatched, readiness fails
	// even though the process and its components are still running.
	HealthStalenessThreshold time.Duration
}

// LoadFromEnv loads configuration from environment variables with
// defaults, the same pattern as the teacher's LoadFromEnv.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "predmkt"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "predmkt"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "prediction_market_data"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),

		WriterBatchSize:     getIntOrDefault("WRITER_BATCH_SIZE", 100),
		WriterFlushInterval: getDurationOrDefault("WRITER_FLUSH_INTERVAL", 1*time.Second),

		VenueAWSURL:   getEnvOrDefault("VENUE_A_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		VenueARESTURL: getEnvOrDefault("VENUE_A_REST_URL", "https://gamma-api.polymarket.com"),

		VenueBWSURL:      getEnvOrDefault("VENUE_B_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),
		VenueBRESTURL:    getEnvOrDefault("VENUE_B_REST_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		VenueBAPIKey:     os.Getenv("VENUE_B_API_KEY"),
		VenueBPrivatePEM: os.Getenv("VENUE_B_PRIVATE_KEY_PEM"),

		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 60*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSReconnectTripThreshold: getIntOrDefault("WS_RECONNECT_TRIP_THRESHOLD", 5),
		WSReconnectCooldown:      getDurationOrDefault("WS_RECONNECT_COOLDOWN", 30*time.Second),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 10000),

		DiscoveryIntervalSeconds: getIntOrDefault("DISCOVERY_INTERVAL_SECONDS", 30),
		ForwardFillIntervalMS:    getIntOrDefault("FORWARD_FILL_INTERVAL_MS", 100),

		HealthStalenessThreshold: getDurationOrDefault("HEALTH_STALENESS_THRESHOLD", 2*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}
	if c.WriterBatchSize <= 0 {
		return fmt.Errorf("WRITER_BATCH_SIZE must be positive, got %d", c.WriterBatchSize)
	}
	if c.WSReconnectBackoffMult <= 1.0 {
		return fmt.Errorf("WS_RECONNECT_BACKOFF_MULTIPLIER must be > 1.0, got %f", c.WSReconnectBackoffMult)
	}
	if c.DiscoveryIntervalSeconds <= 0 {
		return fmt.Errorf("DISCOVERY_INTERVAL_SECONDS must be positive, got %d", c.DiscoveryIntervalSeconds)
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
