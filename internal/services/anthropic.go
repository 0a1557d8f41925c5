package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Anthropic provides an implementation of the Generator interface for the Anthropic Messages API. It sends
// a single user turn without streaming and decodes the first text block of the reply.
type Anthropic struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string

	client *http.Client

	logger *slog.Logger
}

type anthropicChatRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
	Stream    bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	// AnthropicAPIEndpoint is the base URL of the public Anthropic API.
	AnthropicAPIEndpoint = "https://api.anthropic.com"
	// AnthropicDefaultMaxTokens caps the reply length when no limit is configured.
	AnthropicDefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// NewAnthropic creates a new Anthropic instance with the specified API key, model name and maximum token
// limit. An empty endpoint falls back to AnthropicAPIEndpoint, a non-positive limit to
// AnthropicDefaultMaxTokens.
func NewAnthropic(apiKey, model, endpoint string, maxTokens int, logger *slog.Logger) Anthropic {
	if endpoint == "" {
		endpoint = AnthropicAPIEndpoint
	}
	if maxTokens <= 0 {
		maxTokens = AnthropicDefaultMaxTokens
	}
	return Anthropic{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		endpoint:  endpoint,
		client:    &http.Client{},
		logger:    logger.With(slog.String("module", "anthropic")),
	}
}

// Name implements Generator.
func (Anthropic) Name() string {
	return "Anthropic"
}

// Generate implements the Generator interface.
func (a Anthropic) Generate(ctx context.Context, message string) (Result, error) {
	reqBody := anthropicChatRequest{
		Model:     a.model,
		Messages:  []anthropicMessage{{Role: "user", Content: message}},
		MaxTokens: a.maxTokens,
		Stream:    false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	a.logger.Debug("Anthropic raw response",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)))

	return parseAnthropicResponse(body)
}

// parseAnthropicResponse decodes a messages response body. An error body wins over any content.
func parseAnthropicResponse(body []byte) (Result, error) {
	var e anthropicError
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	if e.Type == "error" {
		return APIError{Message: e.Error.Message}, nil
	}

	var res anthropicResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	for _, c := range res.Content {
		if c.Type == "text" && c.Text != "" {
			return Success{Text: c.Text}, nil
		}
	}

	return Malformed{Reason: "no text content found"}, nil
}
