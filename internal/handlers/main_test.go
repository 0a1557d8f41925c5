package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MegaGrindStone/gemini-web-chat/internal/handlers"
	"github.com/MegaGrindStone/gemini-web-chat/internal/models"
	"github.com/MegaGrindStone/gemini-web-chat/internal/services"
	"github.com/google/uuid"
)

type mockRelay struct {
	reply   string
	release chan struct{}
}

func (m mockRelay) Reply(_ context.Context, message string) string {
	if m.release != nil {
		<-m.release
	}
	if m.reply != "" {
		return m.reply
	}
	return "echo: " + message
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMain(t *testing.T, relay handlers.Relay) handlers.Main {
	t.Helper()

	main, err := handlers.NewMain(relay, handlers.Options{FormatReplies: true}, discardLogger())
	if err != nil {
		t.Fatalf("NewMain() error = %v", err)
	}
	t.Cleanup(func() {
		_ = main.Shutdown(context.Background())
	})
	return main
}

func TestNewMain(t *testing.T) {
	main, err := handlers.NewMain(mockRelay{}, handlers.Options{}, discardLogger())
	if err != nil {
		t.Fatalf("NewMain() error = %v", err)
	}

	if main.Shutdown(context.Background()) != nil {
		t.Error("Shutdown() should not return error")
	}
}

func TestHandleHome(t *testing.T) {
	main := newMain(t, mockRelay{})

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "Home page",
			url:        "/",
			wantStatus: http.StatusOK,
			wantBody:   "How can I help you today?",
		},
		{
			name:       "Unknown page",
			url:        "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			main.HandleHome(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleHome() status = %v, want %v", w.Code, tt.wantStatus)
			}

			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("HandleHome() body = %v, want to contain %v", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleHomeStartsNewSession(t *testing.T) {
	main := newMain(t, mockRelay{})

	ids := make(map[string]bool)
	for range 2 {
		w := httptest.NewRecorder()
		main.HandleHome(w, httptest.NewRequest(http.MethodGet, "/", nil))

		body := w.Body.String()
		_, rest, ok := strings.Cut(body, `data-session-id="`)
		if !ok {
			t.Fatalf("body has no session id: %s", body)
		}
		id, _, _ := strings.Cut(rest, `"`)
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("session id %q is not a uuid", id)
		}
		if msgs, ok := main.Messages(id); !ok || len(msgs) != 0 {
			t.Errorf("Messages(%q) = %v, %v, want empty existing session", id, msgs, ok)
		}
		ids[id] = true
	}

	if len(ids) != 2 {
		t.Error("reloading the page reused the session")
	}
}

func TestHandleRelay(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		gemini     string
		wantStatus int
		wantReply  string
	}{
		{
			name:       "Candidate text",
			method:     http.MethodPost,
			body:       `{"message":"hello"}`,
			gemini:     `{"candidates":[{"content":{"parts":[{"text":"Hi *there*"}]}}]}`,
			wantStatus: http.StatusOK,
			wantReply:  "Hi *there*",
		},
		{
			name:       "API error",
			method:     http.MethodPost,
			body:       `{"message":"hello"}`,
			gemini:     `{"error":{"message":"bad key"}}`,
			wantStatus: http.StatusOK,
			wantReply:  "bad key",
		},
		{
			name:       "Missing message is forwarded",
			method:     http.MethodPost,
			body:       `{}`,
			gemini:     `{"error":{"message":"contents.parts must not be empty"}}`,
			wantStatus: http.StatusOK,
			wantReply:  "contents.parts must not be empty",
		},
		{
			name:       "No candidates",
			method:     http.MethodPost,
			body:       `{"message":"hello"}`,
			gemini:     `{}`,
			wantStatus: http.StatusOK,
			wantReply:  "No response from Gemini",
		},
		{
			name:       "Broken upstream body",
			method:     http.MethodPost,
			body:       `{"message":"hello"}`,
			gemini:     `upstream exploded`,
			wantStatus: http.StatusOK,
			wantReply:  services.ServerErrorReply,
		},
		{
			name:       "Broken request body",
			method:     http.MethodPost,
			body:       `{"message":`,
			wantStatus: http.StatusOK,
			wantReply:  services.ServerErrorReply,
		},
		{
			name:       "Invalid method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.gemini)
			}))
			defer gemini.Close()

			gen := services.NewGemini("key", "", gemini.URL, discardLogger())
			main := newMain(t, services.NewRelay(gen, discardLogger()))

			req := httptest.NewRequest(tt.method, "/api/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			main.HandleRelay(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("HandleRelay() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var res map[string]string
			if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if res["reply"] != tt.wantReply {
				t.Errorf("reply = %q, want %q", res["reply"], tt.wantReply)
			}
		})
	}
}

func TestHandleChats(t *testing.T) {
	main := newMain(t, mockRelay{})

	tests := []struct {
		name       string
		method     string
		message    string
		sessionID  string
		wantStatus int
	}{
		{
			name:       "Invalid method",
			method:     http.MethodGet,
			sessionID:  uuid.New().String(),
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "Invalid session",
			method:     http.MethodPost,
			message:    "Hello",
			sessionID:  "not-a-session",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Empty message",
			method:     http.MethodPost,
			sessionID:  uuid.New().String(),
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "Whitespace message",
			method:     http.MethodPost,
			message:    "   ",
			sessionID:  uuid.New().String(),
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "New message",
			method:     http.MethodPost,
			message:    "Hello",
			sessionID:  uuid.New().String(),
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postChat(main, tt.method, tt.sessionID, tt.message)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleChats() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusNoContent {
				if msgs, _ := main.Messages(tt.sessionID); len(msgs) != 0 {
					t.Errorf("ignored submission changed the conversation: %+v", msgs)
				}
			}
		})
	}
}

func TestHandleChatsRoundTrip(t *testing.T) {
	release := make(chan struct{})
	main := newMain(t, mockRelay{reply: `{"a":1}`, release: release})
	sessionID := uuid.New().String()

	w := postChat(main, http.MethodPost, sessionID, "hello")
	if w.Code != http.StatusOK {
		t.Fatalf("HandleChats() status = %v", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "hello") || !strings.Contains(body, `id="loading"`) {
		t.Errorf("body = %s, want user bubble and loading indicator", body)
	}

	// A second submission while the reply is pending is ignored.
	if w := postChat(main, http.MethodPost, sessionID, "again"); w.Code != http.StatusNoContent {
		t.Errorf("submission while loading status = %v, want %v", w.Code, http.StatusNoContent)
	}

	close(release)

	msgs := waitForMessages(t, main, sessionID, 2)
	want := []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: `{"a":1}`},
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("Messages()[%d] = %+v, want %+v", i, msgs[i], want[i])
		}
	}

	// Idle again once the reply landed.
	if w := postChat(main, http.MethodPost, sessionID, "again"); w.Code != http.StatusOK {
		t.Errorf("submission after reply status = %v, want %v", w.Code, http.StatusOK)
	}
}

func postChat(main handlers.Main, method, sessionID, message string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("message", message)
	form.Set("session_id", sessionID)

	req := httptest.NewRequest(method, "/chats", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	main.HandleChats(w, req)
	return w
}

func waitForMessages(t *testing.T, main handlers.Main, sessionID string, n int) []models.Message {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs, _ := main.Messages(sessionID); len(msgs) >= n {
			return msgs
		}
		time.Sleep(10 * time.Millisecond)
	}
	msgs, _ := main.Messages(sessionID)
	t.Fatalf("conversation has %d messages after 2s, want %d", len(msgs), n)
	return nil
}
