package config

import (
	"pg-ai-query/pkg/models"
)

// 환경 변수 이름
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
)

// Overrides 세션 단위 API 키 오버라이드. 빈 문자열은 오버라이드 없음.
type Overrides struct {
	OpenAI    string
	Anthropic string
	Gemini    string
}

// Key 제공자별 오버라이드 값
func (o Overrides) Key(p models.Provider) string {
	switch p {
	case models.ProviderOpenAI:
		return o.OpenAI
	case models.ProviderAnthropic:
		return o.Anthropic
	case models.ProviderGemini:
		return o.Gemini
	}
	return ""
}

// IsZero 오버라이드 없음
func (o Overrides) IsZero() bool {
	return o == Overrides{}
}

// Merge top에서 비어 있지 않은 값이 우선
func (o Overrides) Merge(top Overrides) Overrides {
	if top.OpenAI != "" {
		o.OpenAI = top.OpenAI
	}
	if top.Anthropic != "" {
		o.Anthropic = top.Anthropic
	}
	if top.Gemini != "" {
		o.Gemini = top.Gemini
	}
	return o
}

// OverridesFromEnv 환경 변수에서 오버라이드 생성
func OverridesFromEnv(lookup func(string) (string, bool)) Overrides {
	get := func(name string) string {
		if v, ok := lookup(name); ok {
			return v
		}
		return ""
	}
	return Overrides{
		OpenAI:    get(EnvOpenAIKey),
		Anthropic: get(EnvAnthropicKey),
		Gemini:    get(EnvGeminiKey),
	}
}

// Effective base를 복사한 뒤 오버라이드를 적용한다. base는 변경되지 않는다.
// 파일에 없는 제공자는 기본값으로 만들어 뒤에 붙인다.
func Effective(base *Configuration, o Overrides) *Configuration {
	if base == nil {
		base = Default()
	}
	cfg := base.Clone()
	for _, p := range models.ProviderPriority() {
		key := o.Key(p)
		if key == "" {
			continue
		}
		if pc := cfg.Provider(p); pc != nil {
			pc.APIKey = key
			continue
		}
		pc := NewProviderConfig(p)
		pc.APIKey = key
		cfg.Providers = append(cfg.Providers, pc)
	}
	return cfg
}
