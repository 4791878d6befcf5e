package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pg-ai-query/internal/config"
	"pg-ai-query/pkg/models"
)

// anthropicVersion Messages API 버전 헤더
const anthropicVersion = "2023-06-01"

// AnthropicClient Anthropic Messages API 클라이언트
type AnthropicClient struct {
	endpoint string
	apiKey   string
	http     *transport
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewAnthropicClient Anthropic 클라이언트 생성
func NewAnthropicClient(opts ClientOptions) *AnthropicClient {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultAnthropicEndpoint
	}
	return &AnthropicClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   opts.APIKey,
		http:     newTransport(models.ProviderAnthropic, opts),
	}
}

func (c *AnthropicClient) Name() string {
	return models.ProviderAnthropic.DisplayName()
}

func (c *AnthropicClient) Provider() models.Provider {
	return models.ProviderAnthropic
}

func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
		Temperature: req.Temperature,
	}
	if body.Model == "" {
		body.Model = config.DefaultAnthropicModel
	}
	// max_tokens는 필수
	if body.MaxTokens <= 0 {
		body.MaxTokens = config.DefaultAnthropicMaxTokens
	}

	data, err := c.http.postJSON(ctx, c.endpoint+"/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, body)
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("JSON parse error: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("Invalid response format: Anthropic returned no text content")
	}
	return out.String(), nil
}
