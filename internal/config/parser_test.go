package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-ai-query/pkg/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parse(t *testing.T, content string) *Configuration {
	t.Helper()
	cfg, err := Parse(content, WithParseLogger(quietLogger()))
	require.NoError(t, err)
	return cfg
}

func TestParseCompleteConfig(t *testing.T) {
	cfg := parse(t, `
[general]
log_level = "DEBUG"
enable_logging = true
request_timeout_ms = 60000
max_retries = 5

[query]
enforce_limit = false
default_limit = 250
max_query_length = 8000

[response]
show_explanation = no
show_warnings = 0
show_suggested_visualization = YES
use_formatted_response = true

[openai]
api_key = "sk-openai"
default_model = "gpt-4o-mini"
max_tokens = 2048
temperature = 0.2

[anthropic]
api_key = 'sk-ant'
api_endpoint = https://proxy.internal
`)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.True(t, cfg.EnableLogging)
	assert.Equal(t, 60000, cfg.RequestTimeoutMs)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.False(t, cfg.EnforceLimit)
	assert.Equal(t, 250, cfg.DefaultLimit)
	assert.Equal(t, 8000, cfg.MaxQueryLength)
	assert.False(t, cfg.ShowExplanation)
	assert.False(t, cfg.ShowWarnings)
	assert.True(t, cfg.ShowSuggestedVisualization)
	assert.True(t, cfg.UseFormattedResponse)

	require.Len(t, cfg.Providers, 2)
	openai := cfg.Provider(models.ProviderOpenAI)
	require.NotNil(t, openai)
	assert.Equal(t, "sk-openai", openai.APIKey)
	assert.Equal(t, "gpt-4o-mini", openai.DefaultModel)
	assert.Equal(t, 2048, openai.DefaultMaxTokens)
	assert.InDelta(t, 0.2, openai.DefaultTemperature, 1e-9)

	anthropic := cfg.Provider(models.ProviderAnthropic)
	require.NotNil(t, anthropic)
	assert.Equal(t, "sk-ant", anthropic.APIKey)
	assert.Equal(t, DefaultAnthropicModel, anthropic.DefaultModel)
	assert.Equal(t, DefaultAnthropicMaxTokens, anthropic.DefaultMaxTokens)
	assert.Equal(t, "https://proxy.internal", anthropic.APIEndpoint)

	assert.Equal(t, models.ProviderOpenAI, cfg.DefaultProvider().Provider)
}

func TestParseDefaults(t *testing.T) {
	cfg := parse(t, "")

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.False(t, cfg.EnableLogging)
	assert.Equal(t, 30000, cfg.RequestTimeoutMs)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.True(t, cfg.EnforceLimit)
	assert.Equal(t, 1000, cfg.DefaultLimit)
	assert.Equal(t, 4000, cfg.MaxQueryLength)
	assert.True(t, cfg.ShowExplanation)
	assert.True(t, cfg.ShowWarnings)
	assert.False(t, cfg.ShowSuggestedVisualization)
	assert.False(t, cfg.UseFormattedResponse)
	assert.Empty(t, cfg.Providers)

	def := cfg.DefaultProvider()
	assert.Equal(t, models.ProviderOpenAI, def.Provider)
	assert.Equal(t, DefaultOpenAIModel, def.DefaultModel)
}

func TestParseInlineCommentAfterQuotedValue(t *testing.T) {
	cfg := parse(t, "[openai]\napi_key = \"sk-abc\"  # note\n")
	require.NotNil(t, cfg.Provider(models.ProviderOpenAI))
	assert.Equal(t, "sk-abc", cfg.Provider(models.ProviderOpenAI).APIKey)
}

func TestParseDefaultProviderIsFirstDeclared(t *testing.T) {
	cfg := parse(t, "[gemini]\napi_key = g\n\n[openai]\napi_key = o\n")
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, models.ProviderGemini, cfg.DefaultProvider().Provider)
	assert.Equal(t, DefaultGeminiModel, cfg.DefaultProvider().DefaultModel)
	assert.Equal(t, DefaultMaxTokens, cfg.DefaultProvider().DefaultMaxTokens)
}

func TestParseRepeatedSectionReusesProvider(t *testing.T) {
	cfg := parse(t, "[openai]\napi_key = a\n[query]\ndefault_limit = 5\n[openai]\ndefault_model = m\n")
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "a", cfg.Providers[0].APIKey)
	assert.Equal(t, "m", cfg.Providers[0].DefaultModel)
}

func TestParseTolerantCases(t *testing.T) {
	cfg := parse(t, strings.Join([]string{
		"orphan = 1",
		"[unknown_section]",
		"foo = bar",
		"[OpenAI]",
		"api_key = ignored",
		"[openai]",
		`api_key = "unterminated`,
		"default_model = gpt-4o",
		"[query]",
		"enforce_limit = maybe",
		"max_query_length = 0",
		"  ",
		"\t# indented comment",
	}, "\n"))

	require.Len(t, cfg.Providers, 1)
	assert.Empty(t, cfg.Providers[0].APIKey)
	assert.Equal(t, "gpt-4o", cfg.Providers[0].DefaultModel)
	assert.False(t, cfg.EnforceLimit, "invalid bool falls back to false")
	assert.Equal(t, DefaultMaxQueryLength, cfg.MaxQueryLength, "non-positive max_query_length is ignored")
}

func TestParseWindowsLineEndings(t *testing.T) {
	cfg := parse(t, "[openai]\r\napi_key = sk-crlf\r\n")
	assert.Equal(t, "sk-crlf", cfg.Provider(models.ProviderOpenAI).APIKey)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{"non numeric int", "[general]\nmax_retries = many\n", 2},
		{"non numeric float", "[openai]\ntemperature = warm\n", 2},
		{"bad grammar", "[general]\nthis is not valid\n", 2},
		{"too long", "[openai]\napi_key = " + strings.Repeat("x", MaxLineLength) + "\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content, WithParseLogger(quietLogger()))
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %v", err)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParseTemperatureOutOfRangeKeepsDefault(t *testing.T) {
	cfg := parse(t, "[gemini]\ntemperature = 3.5\n")
	assert.InDelta(t, DefaultTemperature, cfg.Provider(models.ProviderGemini).DefaultTemperature, 1e-9)
}

func TestParsePrompts(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		cfg := parse(t, "[prompts]\nsystem_prompt = \"Custom system prompt only\"\n")
		assert.Equal(t, "Custom system prompt only", cfg.SystemPrompt)
		assert.Empty(t, cfg.ExplainSystemPrompt)
	})

	t.Run("empty", func(t *testing.T) {
		cfg := parse(t, "[prompts]\nsystem_prompt = \"\"\nexplain_system_prompt = \"\"\n")
		assert.Empty(t, cfg.SystemPrompt)
		assert.Empty(t, cfg.ExplainSystemPrompt)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "explain.txt")
		require.NoError(t, os.WriteFile(path, []byte("Prompt loaded from file.\nFocus on Sequential scan costs.\n"), 0o600))

		cfg := parse(t, "[prompts]\nexplain_system_prompt = "+path+"\n")
		assert.Equal(t, "Prompt loaded from file.\nFocus on Sequential scan costs.", cfg.ExplainSystemPrompt)
	})

	t.Run("directory is literal", func(t *testing.T) {
		dir := t.TempDir()
		cfg := parse(t, "[prompts]\nsystem_prompt = "+dir+"\n")
		assert.Equal(t, dir, cfg.SystemPrompt)
	})
}
