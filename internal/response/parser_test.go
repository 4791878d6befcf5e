package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-ai-query/internal/config"
)

func noLimitConfig() *config.Configuration {
	cfg := config.Default()
	cfg.EnforceLimit = false
	return cfg
}

func TestParseFencedJSON(t *testing.T) {
	raw := "```json\n{\"generated_query\":\"SELECT 1\",\"explanation\":\"x\"}\n```"
	p, err := Parse(raw, noLimitConfig())
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", p.Result.GeneratedQuery)
	assert.Equal(t, "x", p.Result.Explanation)
	assert.True(t, p.Result.Success)
	assert.Empty(t, p.Result.Warnings)
	assert.False(t, p.Result.RowLimitApplied)
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare object", `{"generated_query":"SELECT 2"}`},
		{"leading prose", `Here you go: {"generated_query":"SELECT 2"}`},
		{"trailing prose", `{"generated_query":"SELECT 2"} Let me know if you need more.`},
		{"untagged fence", "Sure.\n```\n{\"generated_query\":\"SELECT 2\"}\n```\nDone."},
		{"query alias", `{"query":"SELECT 2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.raw, noLimitConfig())
			require.NoError(t, err)
			assert.Equal(t, "SELECT 2", p.Result.GeneratedQuery)
		})
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no json", "I can't help with that.", "Invalid response format"},
		{"malformed", `{"generated_query": "SELECT 1",`, "JSON parse error"},
		{"wrong type", `{"generated_query": 42}`, "JSON parse error"},
		{"missing query", `{"explanation":"nothing"}`, "Invalid response format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, nil)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseEmptyQueryIsStructuredFailure(t *testing.T) {
	p, err := Parse(`{"generated_query":"","explanation":"There is no table that stores invoices."}`, nil)
	require.NoError(t, err)
	assert.False(t, p.Result.Success)
	assert.Equal(t, "There is no table that stores invoices.", p.Result.ErrorMessage)
	assert.Equal(t, "There is no table that stores invoices.", p.Result.Explanation)

	p, err = Parse(`{"generated_query":"  "}`, nil)
	require.NoError(t, err)
	assert.False(t, p.Result.Success)
	assert.Equal(t, msgNoQuery, p.Result.ErrorMessage)
}

func TestParseWarningsShapes(t *testing.T) {
	p, err := Parse(`{"generated_query":"SELECT 1","warnings":"single"}`, noLimitConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"single"}, p.Result.Warnings)

	p, err = Parse(`{"generated_query":"SELECT 1","warnings":["a", "", 3, "b"]}`, noLimitConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Result.Warnings)

	p, err = Parse(`{"generated_query":"SELECT 1","warnings":null}`, noLimitConfig())
	require.NoError(t, err)
	assert.Empty(t, p.Result.Warnings)
}

func TestParseVisualization(t *testing.T) {
	p, err := Parse(`{"generated_query":"SELECT 1","suggested_visualization":"Bar"}`, noLimitConfig())
	require.NoError(t, err)
	assert.Equal(t, "bar", p.Result.SuggestedVisualization)

	p, err = Parse(`{"generated_query":"SELECT 1","suggested_visualization":"scatter"}`, noLimitConfig())
	require.NoError(t, err)
	assert.Empty(t, p.Result.SuggestedVisualization)
}

func TestParseEnforcesRowLimit(t *testing.T) {
	cfg := config.Default()
	cfg.EnforceLimit = true
	cfg.DefaultLimit = 1000

	p, err := Parse(`{"generated_query":"SELECT * FROM t"}`, cfg)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t LIMIT 1000", p.Result.GeneratedQuery)
	assert.True(t, p.Result.RowLimitApplied)
	assert.Contains(t, FormatPlain(p.Result, cfg), "LIMIT 1000")

	p, err = Parse(`{"generated_query":"SELECT * FROM t LIMIT 10","row_limit_applied":true}`, cfg)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t LIMIT 10", p.Result.GeneratedQuery)
	assert.True(t, p.Result.RowLimitApplied, "the model applied the limit itself")

	p, err = Parse(`{"generated_query":"SELECT * FROM t","row_limit_applied":true}`, noLimitConfig())
	require.NoError(t, err)
	assert.False(t, p.Result.RowLimitApplied, "claimed limit is not present in the SQL")
}

func TestParseSafetySignals(t *testing.T) {
	p, err := Parse(`{"generated_query":"DELETE FROM users"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users", p.Result.GeneratedQuery)
	assert.False(t, p.Result.RowLimitApplied)
	assert.Contains(t, p.Result.Warnings, WarnNotReadOnly)

	p, err = Parse(`{"generated_query":"SELECT table_name FROM information_schema.tables LIMIT 5"}`, nil)
	require.NoError(t, err)
	assert.True(t, p.TouchesSystemCatalog)
	assert.Contains(t, p.Result.Warnings, WarnSystemCatalog)

	p, err = Parse(`{"generated_query":"SELECT 1 LIMIT 1","explanation":"I cannot generate the real query, returning a placeholder."}`, nil)
	require.NoError(t, err)
	assert.True(t, p.LooksLikeError)
	assert.Contains(t, p.Result.Warnings, WarnSuspiciousAnswer)
}

func TestParseMultipleStatements(t *testing.T) {
	p, err := Parse(`{"generated_query":"SELECT * FROM users; DELETE FROM users"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users; DELETE FROM users", p.Result.GeneratedQuery)
	assert.False(t, p.Result.RowLimitApplied)
	assert.Contains(t, p.Result.Warnings, WarnMultipleStatements)
	assert.Contains(t, p.Result.Warnings, WarnNotReadOnly)
}

func TestParseFormatRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.UseFormattedResponse = true
	cfg.ShowSuggestedVisualization = true

	raws := []string{
		`{"generated_query":"SELECT id FROM users WHERE name = '<admin>'","explanation":"x","warnings":["w"],"suggested_visualization":"table"}`,
		`{"generated_query":"SELECT count(*) FROM orders;"}`,
	}
	for _, raw := range raws {
		first, err := Parse(raw, cfg)
		require.NoError(t, err)

		second, err := Parse(Format(first.Result, cfg), cfg)
		require.NoError(t, err)
		assert.Equal(t, first.Result.GeneratedQuery, second.Result.GeneratedQuery)
		assert.Equal(t, first.Result.Success, second.Result.Success)
	}
}
