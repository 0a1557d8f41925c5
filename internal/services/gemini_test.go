package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/gemini-web-chat/internal/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeminiGenerate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    services.Result
		wantErr bool
	}{
		{
			name:   "Candidate text",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"**hi**"},{"text":"ignored"}]}},{"content":{"parts":[{"text":"second"}]}}]}`,
			want:   services.Success{Text: "**hi**"},
		},
		{
			name:   "API error",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"bad key","status":"INVALID_ARGUMENT"}}`,
			want:   services.APIError{Message: "bad key"},
		},
		{
			name:   "No candidates",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			want:   services.Malformed{Reason: "no text at candidates.0.content.parts.0.text"},
		},
		{
			name:   "Empty text",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
			want:   services.Malformed{Reason: "no text at candidates.0.content.parts.0.text"},
		},
		{
			name:   "Null error is not an error",
			status: http.StatusOK,
			body:   `{"error":null,"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`,
			want:   services.Success{Text: "ok"},
		},
		{
			name:    "Not JSON",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := services.NewGemini("secret", "", srv.URL, discardLogger())
			got, err := g.Generate(context.Background(), "hello")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Generate() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGeminiRequestShape(t *testing.T) {
	var (
		gotPath  string
		gotKey   string
		gotBody  map[string]any
		gotCType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotCType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	g := services.NewGemini("k&y", "gemini-test", srv.URL, discardLogger())
	if _, err := g.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "k&y" {
		t.Errorf("key = %q, want %q", gotKey, "k&y")
	}
	if gotCType != "application/json" {
		t.Errorf("Content-Type = %q", gotCType)
	}

	want := `{"contents":[{"parts":[{"text":"hello"}],"role":"user"}]}`
	got, _ := json.Marshal(gotBody)
	if string(got) != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestGeminiUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := services.NewGemini("secret", "", url, discardLogger())
	if _, err := g.Generate(context.Background(), "hello"); err == nil {
		t.Error("Generate() error = nil, want error for closed server")
	}
}

func TestGeminiName(t *testing.T) {
	if got := services.NewGemini("", "", "", discardLogger()).Name(); got != "Gemini" {
		t.Errorf("Name() = %q", got)
	}
}
