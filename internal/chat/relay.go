package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RelayPath is the path of the relay endpoint on the chat server.
const RelayPath = "/api/chat"

// RelayRequest is the body of a relay call.
type RelayRequest struct {
	Message string `json:"message"`
}

// RelayResponse is the body of every relay answer.
type RelayResponse struct {
	Reply string `json:"reply"`
}

// HTTPRelay is a Relay that calls the relay endpoint of a chat server over HTTP.
type HTTPRelay struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRelay creates an HTTPRelay for the server at baseURL. A nil client uses a client without
// timeout, so a pending reply is waited for as long as the context allows.
func NewHTTPRelay(baseURL string, client *http.Client) HTTPRelay {
	if client == nil {
		client = &http.Client{}
	}
	return HTTPRelay{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// Send implements Relay.
func (h HTTPRelay) Send(ctx context.Context, message string) (string, error) {
	jsonBody, err := json.Marshal(RelayRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+RelayPath, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	var res RelayResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	return res.Reply, nil
}
