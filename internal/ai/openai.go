package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pg-ai-query/internal/config"
	"pg-ai-query/pkg/models"
)

// OpenAIClient OpenAI chat completions 클라이언트
type OpenAIClient struct {
	endpoint string
	apiKey   string
	http     *transport
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient OpenAI 클라이언트 생성
func NewOpenAIClient(opts ClientOptions) *OpenAIClient {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultOpenAIEndpoint
	}
	return &OpenAIClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   opts.APIKey,
		http:     newTransport(models.ProviderOpenAI, opts),
	}
}

func (c *OpenAIClient) Name() string {
	return models.ProviderOpenAI.DisplayName()
}

func (c *OpenAIClient) Provider() models.Provider {
	return models.ProviderOpenAI
}

// url api_endpoint가 이미 /v1로 끝나면 중복하지 않는다
func (c *OpenAIClient) url() string {
	if strings.HasSuffix(c.endpoint, "/v1") {
		return c.endpoint + "/chat/completions"
	}
	return c.endpoint + "/v1/chat/completions"
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = config.DefaultOpenAIModel
	}

	body := openAIRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.UserPrompt})

	data, err := c.http.postJSON(ctx, c.url(), map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, body)
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("JSON parse error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("Invalid response format: OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
