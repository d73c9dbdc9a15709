package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 1000, cfg.MaxSessions)

	require.NotEmpty(t, cfg.HateSpeechKeywords)
	assert.Contains(t, cfg.HateSpeechKeywords, "hate")
	require.Len(t, cfg.PIIPatterns, 2)
	assert.Contains(t, cfg.JailbreakPhrases, "ignore previous instructions")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Gemini ")
	t.Setenv("CLASSIFIER_TIMEOUT", "5s")
	t.Setenv("MAX_SESSIONS", "50")
	t.Setenv("MODERATION_HATE_SPEECH_KEYWORDS", "foo, bar ,baz")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, 5*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 50, cfg.MaxSessions)
	assert.Equal(t, []string{"foo", "bar", "baz"}, cfg.HateSpeechKeywords)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_SESSIONS", "not-a-number")
	t.Setenv("GENERATOR_TIMEOUT", "soon")
	t.Setenv("MODERATION_PII_PATTERNS", " , ")

	cfg := Load()

	assert.Equal(t, 1000, cfg.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.GeneratorTimeout)
	assert.Len(t, cfg.PIIPatterns, 2)
}
