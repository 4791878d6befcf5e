package config

import (
	"pg-ai-query/pkg/models"
)

// FileName 사용자 홈 디렉토리 기준 설정 파일 이름
const FileName = ".pg_ai.config"

// MaxLineLength 이 길이 이상의 줄은 파싱 실패
const MaxLineLength = 4096

// 섹션 이름
const (
	SectionGeneral  = "general"
	SectionQuery    = "query"
	SectionResponse = "response"
	SectionPrompts  = "prompts"
)

// 기본값
const (
	DefaultLogLevel         = "INFO"
	DefaultRequestTimeoutMs = 30000
	DefaultMaxRetries       = 3
	DefaultRowLimit         = 1000
	DefaultMaxQueryLength   = 4000
	DefaultMaxTokens        = 4096
	DefaultTemperature      = 0.7

	DefaultOpenAIModel        = "gpt-4o"
	DefaultOpenAIMaxTokens    = 16384
	DefaultOpenAIEndpoint     = "https://api.openai.com"
	DefaultAnthropicModel     = "claude-sonnet-4-5-20250929"
	DefaultAnthropicMaxTokens = 8192
	DefaultAnthropicEndpoint  = "https://api.anthropic.com"
	DefaultGeminiModel        = "gemini-2.5-flash"
	DefaultGeminiEndpoint     = "https://generativelanguage.googleapis.com"
)

// ProviderConfig 제공자별 설정
type ProviderConfig struct {
	Provider           models.Provider `json:"provider"`
	APIKey             string          `json:"api_key"`
	DefaultModel       string          `json:"default_model"`
	DefaultMaxTokens   int             `json:"default_max_tokens"`
	DefaultTemperature float64         `json:"default_temperature"`
	APIEndpoint        string          `json:"api_endpoint,omitempty"`
}

// NewProviderConfig 제공자별 기본값으로 채운 설정
func NewProviderConfig(p models.Provider) ProviderConfig {
	pc := ProviderConfig{
		Provider:           p,
		DefaultMaxTokens:   DefaultMaxTokens,
		DefaultTemperature: DefaultTemperature,
	}
	switch p {
	case models.ProviderOpenAI:
		pc.DefaultModel = DefaultOpenAIModel
		pc.DefaultMaxTokens = DefaultOpenAIMaxTokens
	case models.ProviderAnthropic:
		pc.DefaultModel = DefaultAnthropicModel
		pc.DefaultMaxTokens = DefaultAnthropicMaxTokens
	case models.ProviderGemini:
		pc.DefaultModel = DefaultGeminiModel
	default:
		pc.Provider = models.ProviderUnknown
	}
	return pc
}

// Configuration 유효 설정 스냅샷
type Configuration struct {
	Providers []ProviderConfig `json:"providers"`

	LogLevel         string `json:"log_level"`
	EnableLogging    bool   `json:"enable_logging"`
	RequestTimeoutMs int    `json:"request_timeout_ms"`
	MaxRetries       int    `json:"max_retries"`

	EnforceLimit   bool `json:"enforce_limit"`
	DefaultLimit   int  `json:"default_limit"`
	MaxQueryLength int  `json:"max_query_length"`

	ShowExplanation            bool `json:"show_explanation"`
	ShowWarnings               bool `json:"show_warnings"`
	ShowSuggestedVisualization bool `json:"show_suggested_visualization"`
	UseFormattedResponse       bool `json:"use_formatted_response"`

	SystemPrompt        string `json:"system_prompt,omitempty"`
	ExplainSystemPrompt string `json:"explain_system_prompt,omitempty"`
}

// Default 기본 설정 생성
func Default() *Configuration {
	return &Configuration{
		LogLevel:         DefaultLogLevel,
		RequestTimeoutMs: DefaultRequestTimeoutMs,
		MaxRetries:       DefaultMaxRetries,
		EnforceLimit:     true,
		DefaultLimit:     DefaultRowLimit,
		MaxQueryLength:   DefaultMaxQueryLength,
		ShowExplanation:  true,
		ShowWarnings:     true,
	}
}

// Provider 제공자 설정 조회. 없으면 nil.
func (c *Configuration) Provider(p models.Provider) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Provider == p {
			return &c.Providers[i]
		}
	}
	return nil
}

// DefaultProvider 파일에 처음 등장한 제공자. 없으면 OpenAI 기본값.
func (c *Configuration) DefaultProvider() ProviderConfig {
	if len(c.Providers) > 0 {
		return c.Providers[0]
	}
	return NewProviderConfig(models.ProviderOpenAI)
}

// Clone 깊은 복사
func (c *Configuration) Clone() *Configuration {
	out := *c
	if c.Providers != nil {
		out.Providers = make([]ProviderConfig, len(c.Providers))
		copy(out.Providers, c.Providers)
	}
	return &out
}

// providerOrCreate 섹션의 첫 키에서 기본값으로 생성
func (c *Configuration) providerOrCreate(p models.Provider) *ProviderConfig {
	if pc := c.Provider(p); pc != nil {
		return pc
	}
	c.Providers = append(c.Providers, NewProviderConfig(p))
	return &c.Providers[len(c.Providers)-1]
}
