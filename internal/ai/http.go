package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pg-ai-query/internal/metrics"
	"pg-ai-query/pkg/models"
)

// maxErrorBody 오류 본문 보관 최대 길이
const maxErrorBody = 8 << 10

// APIError 2xx가 아닌 응답
type APIError struct {
	Provider   models.Provider
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider.DisplayName(), e.StatusCode, body)
}

// transport 제공자 공통 HTTP 전송. 429/5xx/네트워크 오류는 재시도한다.
type transport struct {
	provider   models.Provider
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

func newTransport(p models.Provider, opts ClientOptions) *transport {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &transport{
		provider:   p,
		client:     client,
		maxRetries: retries,
		backoff:    opts.Backoff,
		logger:     logger,
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// postJSON payload를 JSON으로 보내고 2xx 본문을 돌려준다
func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", t.provider, err)
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			if err := t.wait(ctx, attempt); err != nil {
				return nil, err
			}
			t.logger.Warn("ai.request.retry", "provider", t.provider.String(), "attempt", attempt, "error", lastErr)
		}

		data, status, err := t.do(ctx, url, headers, body)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !retryableStatus(status) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (t *transport) do(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create %s request: %w", t.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		metrics.ObserveProviderCall(t.provider.String(), 0, time.Since(start))
		return nil, 0, fmt.Errorf("%s request failed: %w", t.provider.DisplayName(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	metrics.ObserveProviderCall(t.provider.String(), resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s response: %w", t.provider, err)
	}

	t.logger.Debug("ai.request.done",
		"provider", t.provider.String(),
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, resp.StatusCode, &APIError{Provider: t.provider, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, resp.StatusCode, nil
}

// wait 선형 백오프
func (t *transport) wait(ctx context.Context, attempt int) error {
	d := t.backoff * time.Duration(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
