package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/models"
	"github.com/tmaxmax/go-sse"
)

// SSE event type carrying a rendered assistant bubble.
var messagesSSEType = sse.Type("messages")

// HandleChats processes a message submitted from the chat page through an HTTP POST form with the fields
// "message" and "session_id".
//
// The submission is ignored with 204 No Content when the session is still waiting for a reply or when the
// message is blank. Otherwise the handler answers with the rendered user bubble followed by a loading
// indicator, and relays the message in the background. The assistant bubble is delivered later as a
// "messages" server-sent event on the session's topic.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.FormValue("session_id")
	if !validSessionID(sessionID) {
		m.logger.Error("Invalid session", slog.String("sessionID", sessionID))
		http.Error(w, "Invalid session", http.StatusBadRequest)
		return
	}

	sess := m.sessions.get(sessionID)

	um, pos, ok := sess.Begin(r.FormValue("message"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := m.renderPending(&buf, um, pos); err != nil {
		m.logger.Error("Failed to render message",
			slog.String("message", fmt.Sprintf("%+v", um)),
			slog.String(errLoggerKey, err.Error()))
		// The page reports a connection error for a failed submission; the conversation records the same.
		sess.Complete("", err)
		m.sessions.touch(sessionID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		m.logger.Warn("Failed to write message", slog.String(errLoggerKey, err.Error()))
	}
	// The bubble is flushed before relaying so the reply event cannot overtake it.
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	go m.reply(sessionID, sess, um.Content)
}

// renderPending writes the user bubble of um followed by the loading indicator.
func (m Main) renderPending(w io.Writer, um models.Message, pos int) error {
	userMsg, err := m.messageView(um, pos)
	if err != nil {
		return err
	}
	if err := m.templates.ExecuteTemplate(w, "user_message", userMsg); err != nil {
		return fmt.Errorf("failed to execute user_message template: %w", err)
	}
	if err := m.templates.ExecuteTemplate(w, "loading_message", nil); err != nil {
		return fmt.Errorf("failed to execute loading_message template: %w", err)
	}
	return nil
}

// reply relays content for the session and publishes the resulting assistant bubble, with its position as
// the event ID. The relay call is not tied to the submitting request; a page that subscribes after the
// bubble is published gets it replayed.
func (m Main) reply(sessionID string, sess *chat.Session, content string) {
	text, err := sess.Send(context.Background(), content)
	am, pos := sess.Complete(text, err)
	m.sessions.touch(sessionID)

	view, err := m.messageView(am, pos)
	if err != nil {
		m.logger.Error("Failed to render message, publishing plain text",
			slog.String("message", fmt.Sprintf("%+v", am)),
			slog.String(errLoggerKey, err.Error()))
		view.Content = template.HTML("<p>" + template.HTMLEscapeString(am.Content) + "</p>")
	}

	var sb strings.Builder
	if err := m.templates.ExecuteTemplate(&sb, "ai_message", view); err != nil {
		m.logger.Error("Failed to execute ai_message template", slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{
		ID:   sse.ID(strconv.Itoa(pos)),
		Type: messagesSSEType,
	}
	msg.AppendData(sb.String())
	if err := m.sseSrv.Publish(&msg, sessionTopic(sessionID)); err != nil {
		m.logger.Error("Failed to publish message",
			slog.String("sessionID", sessionID),
			slog.String(errLoggerKey, err.Error()))
	}
}

// messageView renders msg for the templates. Assistant replies are normalized with models.FormatReply
// first when formatting is enabled; the conversation itself keeps the raw text.
func (m Main) messageView(msg models.Message, pos int) (message, error) {
	content := msg.Content
	if msg.Role == models.RoleAssistant && m.formatReplies {
		content = models.FormatReply(content)
	}

	html, err := m.markdown.render(content, pos)
	if err != nil {
		return message{Position: pos, Role: string(msg.Role)}, err
	}

	return message{
		Position: pos,
		Role:     string(msg.Role),
		Content:  html,
	}, nil
}
