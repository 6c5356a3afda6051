package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port         string
	LogLevel     string
	RateLimitRPM int
	// CIDRs whose X-Forwarded-For headers are trusted, in addition to
	// loopback and private networks.
	TrustedProxies []string

	// NLU backend
	NLUBackend string
	NLUBaseURL string

	// Generation backend
	GenerationBackend string
	GenerationBaseURL string
	GenerationModel   string
	AnthropicAPIKey   string

	// Backend calls
	BackendTimeout     time.Duration
	BackendInitTimeout time.Duration
	BackendEagerInit   bool

	// Generated text cache
	CacheBackend  string
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQP (optional advice events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler
	CacheSweepSchedule   string
	StatusReportSchedule string
}

var (
	validNLUBackends        = []string{"none", "http"}
	validGenerationBackends = []string{"none", "http", "anthropic"}
	validCacheBackends      = []string{"none", "lru", "ristretto", "redis"}
	validLogLevels          = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8000"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 60),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		NLUBackend: getEnv("NLU_BACKEND", "none"),
		NLUBaseURL: getEnv("NLU_BASE_URL", ""),

		GenerationBackend: getEnv("GENERATION_BACKEND", "none"),
		GenerationBaseURL: getEnv("GENERATION_BASE_URL", ""),
		GenerationModel:   getEnv("GENERATION_MODEL", "claude-3-5-haiku-latest"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),

		BackendTimeout:     getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),
		BackendInitTimeout: getEnvDuration("BACKEND_INIT_TIMEOUT", 10*time.Second),
		BackendEagerInit:   getEnvBool("BACKEND_EAGER_INIT", false),

		CacheBackend:  getEnv("CACHE_BACKEND", "lru"),
		CacheTTL:      getEnvDuration("CACHE_TTL", 15*time.Minute),
		CacheSize:     getEnvInt("CACHE_SIZE", 512),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finadvisor"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "advice_events"),

		CacheSweepSchedule:   getEnv("CACHE_SWEEP_SCHEDULE", "@every 1m"),
		StatusReportSchedule: getEnv("STATUS_REPORT_SCHEDULE", "@every 10m"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	// Validate backends
	if !slices.Contains(validNLUBackends, c.NLUBackend) {
		errors = append(errors, fmt.Sprintf("invalid NLU backend '%s': must be one of %v", c.NLUBackend, validNLUBackends))
	}
	if c.NLUBackend == "http" {
		errors = append(errors, validateHTTPURL("NLU_BASE_URL", c.NLUBaseURL)...)
	}

	if !slices.Contains(validGenerationBackends, c.GenerationBackend) {
		errors = append(errors, fmt.Sprintf("invalid generation backend '%s': must be one of %v", c.GenerationBackend, validGenerationBackends))
	}
	switch c.GenerationBackend {
	case "http":
		errors = append(errors, validateHTTPURL("GENERATION_BASE_URL", c.GenerationBaseURL)...)
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			errors = append(errors, "ANTHROPIC_API_KEY is required when using anthropic generation backend")
		}
		if c.GenerationModel == "" {
			errors = append(errors, "GENERATION_MODEL cannot be empty when using anthropic generation backend")
		}
	}

	if c.BackendTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must be at least 100ms", c.BackendTimeout))
	} else if c.BackendTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must be at most 5 minutes", c.BackendTimeout))
	}
	if c.BackendInitTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid backend init timeout %v: must be at least 100ms", c.BackendInitTimeout))
	}

	// Validate cache
	if !slices.Contains(validCacheBackends, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validCacheBackends))
	}
	if c.CacheBackend != "none" {
		if c.CacheTTL < time.Second {
			errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
		}
		if c.CacheSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
		}
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR cannot be empty when using redis cache backend")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate schedules
	for name, spec := range map[string]string{
		"CACHE_SWEEP_SCHEDULE":   c.CacheSweepSchedule,
		"STATUS_REPORT_SCHEDULE": c.StatusReportSchedule,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, spec, err))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(key, raw string) []string {
	if raw == "" {
		return []string{fmt.Sprintf("%s is required for http backend", key)}
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': %v", key, raw, err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return []string{fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", key, parsed.Scheme)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
