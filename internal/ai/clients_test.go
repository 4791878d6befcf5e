package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-ai-query/pkg/models"
)

func testOptions(url string) ClientOptions {
	return ClientOptions{
		APIKey:     "sk-test",
		Endpoint:   url,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestOpenAIComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"generated_query\":\"SELECT 1\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(testOptions(srv.URL))
	out, err := c.Complete(context.Background(), CompletionRequest{
		Model:        "gpt-4o",
		SystemPrompt: "sys",
		UserPrompt:   "count users",
		MaxTokens:    100,
		Temperature:  Float(0.2),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"generated_query":"SELECT 1"}`, out)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 100, body["max_tokens"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "count users", msgs[1].(map[string]any)["content"])
}

func TestOpenAIEndpointWithVersionSuffix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(testOptions(srv.URL + "/v1/"))
	out, err := c.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestOpenAINoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(testOptions(srv.URL)).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid response format")
}

func TestAnthropicComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		body = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	out, err := NewAnthropicClient(testOptions(srv.URL)).Complete(context.Background(), CompletionRequest{
		SystemPrompt: "sys",
		UserPrompt:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
	assert.Equal(t, "sys", body["system"])
	assert.NotZero(t, body["max_tokens"], "max_tokens is required by the Messages API")
	_, hasTemp := body["temperature"]
	assert.False(t, hasTemp)
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-goog-api-key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"SELECT 1;"}]}}]}`))
	}))
	defer srv.Close()

	out, err := NewGeminiClient(testOptions(srv.URL)).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", out)
}

func TestTransportRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAIClient(testOptions(srv.URL)).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, calls.Load())
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicClient(testOptions(srv.URL)).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, models.ProviderAnthropic, apiErr.Provider)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "Invalid API key for Anthropic. Please check your ~/.pg_ai.config file.",
		TranslateTransportError(models.ProviderAnthropic, err))
}

func TestTransportGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.MaxRetries = 1
	_, err := NewOpenAIClient(opts).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	require.Error(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, msgRateLimit, TranslateTransportError(models.ProviderOpenAI, err))
}

func TestTransportHonorsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.MaxRetries = 5
	opts.Backoff = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewGeminiClient(opts).Complete(ctx, CompletionRequest{UserPrompt: "x"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewClient(t *testing.T) {
	for _, p := range models.ProviderPriority() {
		c, err := NewClient(p, ClientOptions{APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, p, c.Provider())
		assert.Equal(t, p.DisplayName(), c.Name())
	}

	_, err := NewClient(models.ProviderOpenAI, ClientOptions{})
	assert.Error(t, err)

	_, err = NewClient(models.ProviderUnknown, ClientOptions{APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
