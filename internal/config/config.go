// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Generator providers.
const (
	ProviderAuto   = "auto"
	ProviderRules  = "rules"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderGRPC   = "grpc"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	DBPath             string
	LogFile            string
	LogLevel           string
	CORSOrigins        []string
	MaxRequestBodySize int64
	Generator          GeneratorConfig
	Agent              AgentConfig
	RateLimit          RateLimitConfig
	Retention          RetentionConfig
	Timeout            TimeoutConfig
	ConversationLog    ConversationLogConfig
}

// GeneratorConfig selects and tunes the text generation backend.
type GeneratorConfig struct {
	Provider       string
	Model          string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OllamaURL      string
	GeminiAPIKey   string
	GeminiBaseURL  string
	GRPCAddr       string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// AgentConfig holds process-wide agent settings.
type AgentConfig struct {
	Wound      string // tint applied to every response; empty disables it
	MythFile   string // optional YAML with origin/fear/desire
	RandomSeed int64  // 0 uses the runtime-seeded source
}

// RateLimitConfig controls per-user request throttling.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RetentionConfig controls the idle agent sweeper.
type RetentionConfig struct {
	AgentTTL time.Duration
	Interval time.Duration
}

// TimeoutConfig groups miscellaneous timeouts.
type TimeoutConfig struct {
	HealthCheck time.Duration
	Shutdown    time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "./data/edem.db"),
		LogFile:            getEnv("LOG_FILE", ""),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"*"}),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 64<<10)),
		Generator: GeneratorConfig{
			Provider:       strings.ToLower(getEnv("GENERATOR_PROVIDER", ProviderAuto)),
			Model:          getEnv("GENERATOR_MODEL", ""),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
			OllamaURL:      getEnv("OLLAMA_HOST", ""),
			GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:  getEnv("GEMINI_BASE_URL", ""),
			GRPCAddr:       getEnv("GENERATOR_GRPC_ADDR", ""),
			Temperature:    getEnvFloat("GENERATOR_TEMPERATURE", 0.8),
			MaxTokens:      getEnvInt("GENERATOR_MAX_TOKENS", 220),
			Timeout:        getEnvDuration("GENERATION_TIMEOUT", 25*time.Second),
			MaxRetries:     getEnvInt("GENERATOR_MAX_RETRIES", 3),
			RetryBaseDelay: getEnvDuration("GENERATOR_RETRY_BASE_DELAY", 200*time.Millisecond),
		},
		Agent: AgentConfig{
			Wound:      getEnv("AGENT_WOUND", ""),
			MythFile:   getEnv("MYTH_FILE", ""),
			RandomSeed: int64(getEnvInt("AGENT_RANDOM_SEED", 0)),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Retention: RetentionConfig{
			AgentTTL: getEnvDuration("AGENT_RETENTION", 30*24*time.Hour),
			Interval: getEnvDuration("JANITOR_INTERVAL", 10*time.Minute),
		},
		Timeout: TimeoutConfig{
			HealthCheck: getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
			Shutdown:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	switch c.Generator.Provider {
	case ProviderAuto, ProviderRules, ProviderOpenAI, ProviderOllama, ProviderGemini, ProviderGRPC:
	default:
		return fmt.Errorf("GENERATOR_PROVIDER %q is not supported", c.Generator.Provider)
	}
	if c.Generator.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		return fmt.Errorf("GENERATOR_TEMPERATURE must be within [0, 2]")
	}
	if c.Generator.MaxTokens <= 0 {
		return fmt.Errorf("GENERATOR_MAX_TOKENS must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("JANITOR_INTERVAL must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// ResolveProvider turns "auto" into a concrete provider: a configured sidecar
// wins, then Gemini, then OpenAI, then Ollama; with no credentials the local
// rule-based generator is used.
func (g GeneratorConfig) ResolveProvider() string {
	if g.Provider != "" && g.Provider != ProviderAuto {
		return g.Provider
	}
	switch {
	case g.GRPCAddr != "":
		return ProviderGRPC
	case g.GeminiAPIKey != "":
		return ProviderGemini
	case g.OpenAIAPIKey != "":
		return ProviderOpenAI
	case g.OllamaURL != "":
		return ProviderOllama
	default:
		return ProviderRules
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
