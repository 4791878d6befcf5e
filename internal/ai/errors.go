package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"pg-ai-query/pkg/models"
)

const (
	msgRateLimit = "Rate limit exceeded. Please wait before making more requests."
	msgTimeout   = "Request timed out. Try increasing request_timeout_ms in config."
	msgCancelled = "Request was cancelled."
	msgModelNone = "Model not found. Please check your model configuration and ensure you're using a valid model name."
)

func msgAuth(name string) string {
	return "Invalid API key for " + name + ". Please check your ~/.pg_ai.config file."
}

func msgQuota(name string) string {
	return "API quota exceeded. Check your " + name + " account usage."
}

func msgUnavailable(name string) string {
	return name + " service is temporarily unavailable. Try again later."
}

func msgConnect(name string) string {
	return "Cannot connect to " + name + " API. Check your network connection and api_endpoint."
}

func msgInvalidModel(model string) string {
	return "Invalid model '" + model + "'. Please check your configuration and use a valid model name. " +
		"Common models: 'claude-sonnet-4-5-20250929' (Anthropic), 'gpt-4o' (OpenAI), 'gemini-2.5-flash' (Gemini)."
}

// providerError 제공자 오류 본문의 error 객체
type providerError struct {
	Type    string
	Message string
	Code    string
	Status  string
}

// TranslateError 제공자 원시 오류를 사용자용 메시지로 변환.
// statusCode가 0이면 본문의 숫자 code를 사용한다.
func TranslateError(provider models.Provider, statusCode int, raw string) string {
	name := provider.DisplayName()

	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return translateUnstructured(name, raw)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw[start:]), &payload); err != nil {
		return translateUnstructured(name, raw)
	}

	var pe providerError
	var numericCode int
	if errValue, ok := payload["error"]; ok {
		pe, numericCode = extractProviderError(errValue)
	} else {
		pe.Message, _ = payload["message"].(string)
	}
	if statusCode == 0 {
		statusCode = numericCode
	}
	return classify(name, statusCode, pe, raw)
}

func extractProviderError(v any) (providerError, int) {
	var pe providerError
	var code int
	switch e := v.(type) {
	case string:
		pe.Message = e
	case map[string]any:
		pe.Type, _ = e["type"].(string)
		pe.Message, _ = e["message"].(string)
		pe.Status, _ = e["status"].(string)
		switch c := e["code"].(type) {
		case float64:
			code = int(c)
		case string:
			pe.Code = c
		}
	}
	return pe, code
}

func classify(name string, status int, pe providerError, raw string) string {
	typ := strings.ToLower(pe.Type)
	code := strings.ToLower(pe.Code)
	st := strings.ToUpper(pe.Status)
	msg := strings.ToLower(pe.Message)

	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) || strings.Contains(typ, s) || strings.Contains(code, s) {
				return true
			}
		}
		return false
	}

	switch {
	case status == 429 || typ == "rate_limit_error" || st == "RESOURCE_EXHAUSTED" ||
		has("rate limit", "rate_limit", "ratelimit", "rate-limit", "too many requests"):
		return msgRateLimit

	case status == 401 || typ == "authentication_error" || st == "UNAUTHENTICATED" ||
		has("invalid_api_key", "unauthorized", "invalid api key", "invalid x-api-key", "api key not valid", "incorrect api key"):
		return msgAuth(name)

	case status == 402 || typ == "payment_required" ||
		has("quota", "insufficient_quota", "billing", "credit balance"):
		return msgQuota(name)

	case status == 408 || typ == "timeout_error" || st == "DEADLINE_EXCEEDED" ||
		has("timeout", "timed out"):
		return msgTimeout

	case status == 502 || status == 503 || status == 504 || status == 529 ||
		typ == "overloaded_error" || st == "UNAVAILABLE" || has("overloaded"):
		return msgUnavailable(name)

	case typ == "not_found_error" || code == "model_not_found" || st == "NOT_FOUND" ||
		(status == 404 && strings.Contains(msg, "model")):
		if model := modelFromMessage(pe.Message); model != "" {
			return msgInvalidModel(model)
		}
		return msgModelNone

	case status >= 400 && status < 500:
		if pe.Message != "" {
			return fmt.Sprintf("The request was invalid (%d): %s", status, pe.Message)
		}
		return "The request was invalid."
	}

	if pe.Message != "" {
		return pe.Message
	}
	return raw
}

// modelFromMessage "model: <name>" 또는 `name` 형식에서 모델 이름 추출
func modelFromMessage(msg string) string {
	if i := strings.Index(msg, "model:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("model:"):])
	}
	if i := strings.IndexByte(msg, '`'); i >= 0 {
		if j := strings.IndexByte(msg[i+1:], '`'); j > 0 {
			return msg[i+1 : i+1+j]
		}
	}
	return ""
}

func translateUnstructured(name, raw string) string {
	lower := strings.ToLower(raw)
	for _, s := range []string{
		"connection refused", "no such host", "could not resolve", "network is unreachable",
		"connection reset", "dial tcp", "tls handshake",
	} {
		if strings.Contains(lower, s) {
			return msgConnect(name)
		}
	}
	for _, s := range []string{"timeout", "timed out", "deadline exceeded"} {
		if strings.Contains(lower, s) {
			return msgTimeout
		}
	}
	return raw
}

// TranslateTransportError Complete가 돌려준 오류를 사용자용 메시지로 변환
func TranslateTransportError(provider models.Provider, err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return TranslateError(apiErr.Provider, apiErr.StatusCode, apiErr.Body)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}
	if errors.Is(err, context.Canceled) {
		return msgCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return msgTimeout
		}
		return msgConnect(provider.DisplayName())
	}
	return translateUnstructured(provider.DisplayName(), err.Error())
}
