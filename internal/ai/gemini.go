package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"pg-ai-query/internal/config"
	"pg-ai-query/pkg/models"
)

// GeminiClient Google Gemini generateContent 클라이언트
type GeminiClient struct {
	endpoint string
	apiKey   string
	http     *transport
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient Gemini 클라이언트 생성
func NewGeminiClient(opts ClientOptions) *GeminiClient {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultGeminiEndpoint
	}
	return &GeminiClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   opts.APIKey,
		http:     newTransport(models.ProviderGemini, opts),
	}
}

func (c *GeminiClient) Name() string {
	return models.ProviderGemini.DisplayName()
}

func (c *GeminiClient) Provider() models.Provider {
	return models.ProviderGemini
}

func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = config.DefaultGeminiModel
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, url.PathEscape(model))

	data, err := c.http.postJSON(ctx, endpoint, map[string]string{
		"x-goog-api-key": c.apiKey,
	}, buildGeminiRequest(req))
	if err != nil {
		return "", err
	}
	return parseGeminiResponse(data, http.StatusOK)
}

// buildGeminiRequest 빈 시스템 프롬프트와 미지정 생성 옵션은 생략
func buildGeminiRequest(req CompletionRequest) geminiRequest {
	out := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.UserPrompt}},
		}},
	}
	if req.SystemPrompt != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		gc := &geminiGenerationConfig{Temperature: req.Temperature}
		if req.MaxTokens > 0 {
			n := req.MaxTokens
			gc.MaxOutputTokens = &n
		}
		out.GenerationConfig = gc
	}
	return out
}

// parseGeminiResponse 첫 후보의 첫 텍스트 파트 추출
func parseGeminiResponse(body []byte, status int) (string, error) {
	if status != http.StatusOK {
		return "", &APIError{Provider: models.ProviderGemini, StatusCode: status, Body: string(body)}
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("JSON parse error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Invalid response format: no candidates")
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", fmt.Errorf("Invalid response format: candidate has no content")
	}
	if len(content.Parts) == 0 {
		return "", fmt.Errorf("Invalid response format: content has no parts")
	}
	if content.Parts[0].Text == nil {
		return "", fmt.Errorf("Invalid response format: part has no text")
	}
	return *content.Parts[0].Text, nil
}
