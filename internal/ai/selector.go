package ai

import (
	"errors"
	"fmt"
	"strings"

	"pg-ai-query/internal/config"
	"pg-ai-query/pkg/models"
)

var (
	// ErrNoAPIKey 사용할 API 키 없음
	ErrNoAPIKey = errors.New("no API key available")
	// ErrUnknownProvider 알 수 없는 제공자 이름
	ErrUnknownProvider = errors.New("unknown provider")
)

// ProviderSelection 제공자 선택 결과
type ProviderSelection struct {
	Provider     models.Provider
	Config       *config.ProviderConfig // 설정 파일에 없으면 nil
	APIKey       string
	Success      bool
	ErrorMessage string
	Err          error
}

func selected(cfg *config.Configuration, p models.Provider, key string) ProviderSelection {
	return ProviderSelection{
		Provider: p,
		Config:   cfg.Provider(p),
		APIKey:   key,
		Success:  true,
	}
}

func failedSelection(err error, msg string) ProviderSelection {
	return ProviderSelection{Err: err, ErrorMessage: msg}
}

// SelectProvider 선호 제공자와 호출자 키로 제공자와 자격 증명 결정.
// 알려진 제공자 이름은 그대로, "auto"/빈 값/알 수 없는 이름은 자동 선택.
func SelectProvider(cfg *config.Configuration, preference, apiKey string) ProviderSelection {
	if cfg == nil {
		cfg = config.Default()
	}
	preference = strings.TrimSpace(preference)
	explicit := models.ParseProvider(preference)

	if explicit != models.ProviderUnknown {
		key := apiKey
		if key == "" {
			if pc := cfg.Provider(explicit); pc != nil {
				key = pc.APIKey
			}
		}
		if key == "" {
			return failedSelection(ErrNoAPIKey, fmt.Sprintf(
				"No API key available for %s provider. Set api_key in the [%s] section of ~/.pg_ai.config or pass one explicitly.",
				explicit.DisplayName(), explicit))
		}
		return selected(cfg, explicit, key)
	}

	if apiKey != "" {
		return selected(cfg, models.PrimaryProvider(), apiKey)
	}

	for _, p := range models.ProviderPriority() {
		if pc := cfg.Provider(p); pc != nil && pc.APIKey != "" {
			return selected(cfg, p, pc.APIKey)
		}
	}

	if preference != "" && !strings.EqualFold(preference, models.PreferenceAuto) {
		return failedSelection(ErrUnknownProvider, fmt.Sprintf(
			"Unknown provider '%s' and no configured API key found", preference))
	}
	return failedSelection(ErrNoAPIKey,
		"No API key configured. Set api_key in ~/.pg_ai.config or pass one explicitly.")
}
