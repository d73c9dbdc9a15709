package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	// LogFile is where moderation events are teed for the offline report.
	// Empty disables the file sink.
	LogFile string

	// LLM provider selection: "openai", "gemini", or "bedrock".
	LLMProvider     string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	AWSRegion       string
	BedrockModelID  string
	ChatModel       string
	ModerationModel string

	// Classifier and generator calls each run under their own deadline.
	// Timeouts surface as fail-closed blocks / error turns, never retries.
	ClassifierTimeout time.Duration
	GeneratorTimeout  time.Duration

	// Session store: "memory" or "redis".
	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration
	MaxSessions   int

	AdminJWTSecret string

	// Rule patterns for the deterministic moderation checks. Loaded once
	// at startup and never mutated afterwards.
	HateSpeechKeywords []string
	PIIPatterns        []string
	JailbreakPhrases   []string
}

// Rule pattern defaults. Keyword matching is case-insensitive substring,
// PII entries are regular expressions.
var (
	defaultHateSpeechKeywords = []string{
		"hate", "kill", "harm", "attack", "racist", "sexist", "violent",
		"nazi", "terrorist", "bomb", "explode", "genocide", "destroy", "murder", "weapon",
	}
	defaultPIIPatterns = []string{
		`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`,
		`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
	}
	defaultJailbreakPhrases = []string{
		"ignore previous instructions", "act as if", "override your programming",
		"pretend you are", "hypothetically", "new roleplay", "forbidden knowledge",
		"as a large language model", "developer mode", "do anything now",
		"disregard all prior instructions", "you are no longer an ai",
		"simulate being human", "forget everything you know", "act like a different ai",
		"jailbreak", "unleash your full potential", "execute the following code",
	}
)

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "logs/moderation.log"),

		LLMProvider:     strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		ModerationModel: getEnv("MODERATION_MODEL", "gpt-4o-mini"),

		ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
		GeneratorTimeout:  getEnvAsDuration("GENERATOR_TIMEOUT", 30*time.Second),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		MaxSessions:   getEnvAsInt("MAX_SESSIONS", 1000),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		HateSpeechKeywords: getEnvAsList("MODERATION_HATE_SPEECH_KEYWORDS", defaultHateSpeechKeywords),
		PIIPatterns:        getEnvAsList("MODERATION_PII_PATTERNS", defaultPIIPatterns),
		JailbreakPhrases:   getEnvAsList("MODERATION_JAILBREAK_PHRASES", defaultJailbreakPhrases),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable into trimmed
// entries. None of the rule patterns contain commas.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
