// Package config provides environment configuration for the routing engine.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings (message persistence store)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	NATSEnabled  bool

	// JWT settings
	JWTSecret string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Channel timeouts and SLAs
	StandardTimeout      time.Duration
	StandardSLAThreshold time.Duration
	RealtimeTimeout      time.Duration
	HumanWaitTimeout     time.Duration
	ProbeTimeout         time.Duration

	// Staff matching
	StaffCapacity      int
	StaffEstimatedWait time.Duration

	// Telemetry
	TelemetryBufferCap   int
	SatisfactionHuman    int
	SatisfactionRealtime int

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),
		NATSEnabled:  getBoolEnv("NATS_ENABLED", true),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Channels
		StandardTimeout:      getDurationEnv("STANDARD_TIMEOUT", 10*time.Second),
		StandardSLAThreshold: getDurationEnv("STANDARD_SLA_THRESHOLD", 2*time.Second),
		RealtimeTimeout:      getDurationEnv("REALTIME_TIMEOUT", 30*time.Second),
		HumanWaitTimeout:     getDurationEnv("HUMAN_WAIT_TIMEOUT", 2*time.Minute),
		ProbeTimeout:         getDurationEnv("PROBE_TIMEOUT", 5*time.Second),

		// Staff
		StaffCapacity:      getIntEnv("STAFF_CAPACITY", 3),
		StaffEstimatedWait: getDurationEnv("STAFF_ESTIMATED_WAIT", 5*time.Minute),

		// Telemetry
		TelemetryBufferCap:   getIntEnv("TELEMETRY_BUFFER_CAP", 10000),
		SatisfactionHuman:    getIntEnv("SATISFACTION_HUMAN_BONUS", 10),
		SatisfactionRealtime: getIntEnv("SATISFACTION_REALTIME_PENALTY", -5),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
