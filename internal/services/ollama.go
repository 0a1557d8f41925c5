package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// OllamaDefaultHost is the address a local Ollama server listens on.
const OllamaDefaultHost = "http://127.0.0.1:11434"

// Ollama provides an implementation of the Generator interface for a local or remote Ollama server. It
// sends the message as a single non-streaming chat turn.
type Ollama struct {
	host  string
	model string

	client *api.Client

	logger *slog.Logger
}

// NewOllama creates a new Ollama instance with the specified host URL and model name. The host parameter
// should be a valid URL pointing to an Ollama server; an empty host means OllamaDefaultHost.
func NewOllama(host, model string, logger *slog.Logger) (Ollama, error) {
	if host == "" {
		host = OllamaDefaultHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("error parsing ollama host: %w", err)
	}

	return Ollama{
		host:   host,
		model:  model,
		client: api.NewClient(u, &http.Client{}),
		logger: logger.With(slog.String("module", "ollama")),
	}, nil
}

// Name implements Generator.
func (Ollama) Name() string {
	return "Ollama"
}

// Generate implements the Generator interface. A status error reported by the server becomes an APIError;
// any other failure is returned as an error.
func (o Ollama) Generate(ctx context.Context, message string) (Result, error) {
	f := false
	req := api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: message,
			},
		},
		Stream: &f,
	}

	var res api.ChatResponse
	err := o.client.Chat(ctx, &req, func(r api.ChatResponse) error {
		res = r
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			msg := statusErr.ErrorMessage
			if msg == "" {
				msg = statusErr.Status
			}
			return APIError{Message: msg}, nil
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	o.logger.Info("Ollama raw response", slog.String("response", fmt.Sprintf("%+v", res)))

	if res.Message.Content == "" {
		return Malformed{Reason: "empty message content"}, nil
	}

	return Success{Text: res.Message.Content}, nil
}
