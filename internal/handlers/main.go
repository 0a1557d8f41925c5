package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	geminiwebchat "github.com/MegaGrindStone/gemini-web-chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/models"
	"github.com/tmaxmax/go-sse"
)

// Relay turns a single user message into reply text. It never fails: errors are expressed in the reply
// itself.
type Relay interface {
	Reply(ctx context.Context, message string) string
}

// Options tunes the web front end.
type Options struct {
	// FormatReplies passes assistant replies through models.FormatReply before rendering them.
	FormatReplies bool
	// CodeStyle is the chroma style used to highlight fenced code blocks.
	CodeStyle string
	// SessionTTL is how long an idle page session is kept in memory.
	SessionTTL time.Duration
}

// Main handles the core functionality of the chat application: the relay endpoint, the page sessions,
// server-sent events that deliver replies to the page, and HTML rendering of chat bubbles.
type Main struct {
	sseSrv    *sse.Server
	replayer  *replyReplayer
	templates *template.Template
	markdown  markdown

	relay    Relay
	sessions *sessionStore

	formatReplies bool

	logger *slog.Logger
}

const (
	errLoggerKey = "error"

	defaultCodeStyle  = "dracula"
	defaultSessionTTL = time.Hour
)

// NewMain creates a new Main instance with the provided Relay. It initializes the SSE server, which
// subscribes every client to the topic of its page session and replays the replies the client missed,
// and parses the HTML templates from the
// embedded filesystem.
func NewMain(relay Relay, opts Options, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		geminiwebchat.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	if opts.CodeStyle == "" {
		opts.CodeStyle = defaultCodeStyle
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}

	m := Main{
		templates:     tmpl,
		markdown:      markdown{style: opts.CodeStyle},
		relay:         relay,
		replayer:      newReplyReplayer(),
		formatReplies: opts.FormatReplies,
		logger:        logger.With(slog.String("module", "handlers")),
	}
	m.sessions = newSessionStore(opts.SessionTTL, func() *chat.Session {
		return chat.NewSession(localRelay{relay: relay})
	})
	m.sessions.onEvict = func(sessionID string) {
		m.replayer.forget(sessionTopic(sessionID))
	}
	m.sseSrv = &sse.Server{
		Provider: &sse.Joe{Replayer: m.replayer},
		OnSession: func(s *sse.Session) (sse.Subscription, bool) {
			sessionID := s.Req.URL.Query().Get("session_id")
			if !validSessionID(sessionID) {
				http.Error(s.Res, "Invalid session", http.StatusBadRequest)
				return sse.Subscription{}, false
			}

			return sse.Subscription{
				Client:      s,
				LastEventID: s.LastEventID,
				Topics:      []string{sse.DefaultTopic, sessionTopic(sessionID)},
			}, true
		},
	}

	return m, nil
}

// localRelay serves the page sessions from the same process as the relay endpoint, so the relay call
// cannot fail to connect.
type localRelay struct {
	relay Relay
}

func (l localRelay) Send(ctx context.Context, message string) (string, error) {
	return l.relay.Reply(ctx, message), nil
}

func sessionTopic(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}

// HandleSSE serves the server-sent events stream of a page session. The session is selected with the
// session_id query parameter.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// messages returns the conversation of a page session, and false if the session does not exist.
func (m Main) messages(sessionID string) ([]models.Message, bool) {
	s, ok := m.sessions.lookup(sessionID)
	if !ok {
		return nil, false
	}
	return s.Messages(), true
}

// Shutdown gracefully terminates the Main instance's SSE server. It broadcasts a close message to all
// connected clients and waits up to 5 seconds for connections to terminate. After the timeout, any
// remaining connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeChat")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
