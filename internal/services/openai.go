package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides an implementation of the Generator interface for OpenAI's chat completion API and any
// service exposing the same API, such as OpenRouter, when a base URL is given.
type OpenAI struct {
	model string

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI instance with the specified API key, base URL and model name. An empty
// baseURL keeps the library's default endpoint.
func NewOpenAI(apiKey, baseURL, model string, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return OpenAI{
		model:  model,
		client: goopenai.NewClientWithConfig(cfg),
		logger: logger.With(slog.String("module", "openai")),
	}
}

// Name implements Generator.
func (OpenAI) Name() string {
	return "OpenAI"
}

// Generate implements the Generator interface with a single, non-streaming chat completion.
func (o OpenAI) Generate(ctx context.Context, message string) (Result, error) {
	req := goopenai.ChatCompletionRequest{
		Model: o.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: message,
			},
		},
	}

	res, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return APIError{Message: apiErr.Message}, nil
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	o.logger.Info("OpenAI raw response", slog.String("response", fmt.Sprintf("%+v", res)))

	if len(res.Choices) == 0 || res.Choices[0].Message.Content == "" {
		return Malformed{Reason: "no choices found"}, nil
	}

	return Success{Text: res.Choices[0].Message.Content}, nil
}
