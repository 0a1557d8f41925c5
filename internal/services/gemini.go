package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// Gemini provides an implementation of the Generator interface for Google's Generative Language API. It
// sends a single user turn to the generateContent method and decodes the first candidate's text.
type Gemini struct {
	apiKey   string
	model    string
	endpoint string

	client *http.Client

	logger *slog.Logger
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

const (
	// GeminiAPIEndpoint is the base URL of the public Generative Language API.
	GeminiAPIEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	// GeminiDefaultModel is the model used when none is configured.
	GeminiDefaultModel = "gemini-2.5-flash"

	geminiPathError     = "error"
	geminiPathErrorMsg  = "error.message"
	geminiPathFirstText = "candidates.0.content.parts.0.text"
)

// NewGemini creates a new Gemini instance. The API key is sent as the key query parameter on every call;
// an empty key is not rejected here, the API answers with an error that is surfaced as the reply. An
// empty endpoint or model falls back to GeminiAPIEndpoint and GeminiDefaultModel.
func NewGemini(apiKey, model, endpoint string, logger *slog.Logger) Gemini {
	if model == "" {
		model = GeminiDefaultModel
	}
	if endpoint == "" {
		endpoint = GeminiAPIEndpoint
	}
	return Gemini{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{},
		logger:   logger.With(slog.String("module", "gemini")),
	}
}

// Name implements Generator.
func (Gemini) Name() string {
	return "Gemini"
}

// Generate implements the Generator interface. The request carries message as the only part of a single
// user turn. The call has no timeout of its own; it lasts as long as ctx allows.
func (g Gemini) Generate(ctx context.Context, message string) (Result, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: message}},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.generateURL(), bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	g.logger.Info("Gemini raw response",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)))

	return parseGeminiResponse(body)
}

func (g Gemini) generateURL() string {
	q := url.Values{}
	q.Set("key", g.apiKey)
	return fmt.Sprintf("%s/models/%s:generateContent?%s", g.endpoint, url.PathEscape(g.model), q.Encode())
}

// parseGeminiResponse decodes a generateContent response body. The HTTP status is not consulted:
// error responses carry their own error object, which wins over any candidates.
func parseGeminiResponse(body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("error decoding response: invalid JSON")
	}

	parsed := gjson.ParseBytes(body)

	if parsed.Get(geminiPathError).IsObject() {
		return APIError{Message: parsed.Get(geminiPathErrorMsg).String()}, nil
	}

	text := parsed.Get(geminiPathFirstText)
	if text.String() == "" {
		return Malformed{Reason: fmt.Sprintf("no text at %s", geminiPathFirstText)}, nil
	}

	return Success{Text: text.String()}, nil
}
