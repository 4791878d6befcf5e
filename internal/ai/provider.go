package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pg-ai-query/internal/config"
	"pg-ai-query/pkg/models"
)

// CompletionRequest 제공자에 보내는 한 번의 완성 요청
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int      // 0이면 제공자 기본값
	Temperature  *float64 // nil이면 생략
}

// Client AI 제공자 인터페이스
type Client interface {
	// Complete 프롬프트를 보내고 응답 텍스트를 돌려준다
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Provider 제공자 종류
	Provider() models.Provider

	// Name 제공자 이름
	Name() string
}

// ClientOptions 클라이언트 생성 옵션
type ClientOptions struct {
	APIKey     string
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Factory 클라이언트 생성 함수. 테스트에서 교체한다.
type Factory func(p models.Provider, opts ClientOptions) (Client, error)

// DefaultBackoff 재시도 간 기본 대기 단위
const DefaultBackoff = 500 * time.Millisecond

// OptionsFromConfig 유효 설정과 선택 결과로 옵션 구성
func OptionsFromConfig(cfg *config.Configuration, sel ProviderSelection) ClientOptions {
	opts := ClientOptions{
		APIKey:     sel.APIKey,
		MaxRetries: config.DefaultMaxRetries,
		Timeout:    time.Duration(config.DefaultRequestTimeoutMs) * time.Millisecond,
		Backoff:    DefaultBackoff,
	}
	if cfg != nil {
		if cfg.RequestTimeoutMs > 0 {
			opts.Timeout = time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
		}
		if cfg.MaxRetries >= 0 {
			opts.MaxRetries = cfg.MaxRetries
		}
	}
	if sel.Config != nil {
		opts.Endpoint = sel.Config.APIEndpoint
	}
	return opts
}

// NewClient 제공자별 클라이언트 생성
func NewClient(p models.Provider, opts ClientOptions) (Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", p.DisplayName())
	}
	switch p {
	case models.ProviderOpenAI:
		return NewOpenAIClient(opts), nil
	case models.ProviderAnthropic:
		return NewAnthropicClient(opts), nil
	case models.ProviderGemini:
		return NewGeminiClient(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
}

// Float temperature 등 선택 값 지정용
func Float(v float64) *float64 {
	return &v
}
