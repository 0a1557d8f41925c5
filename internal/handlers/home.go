package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
)

type homePageData struct {
	SessionID string
	Messages  []message
}

// message is a chat bubble ready for the templates.
type message struct {
	Position int
	Role     string
	Content  template.HTML
}

// HandleHome renders the chat page. Every page load starts a new, empty page session, so reloading the
// page discards the previous conversation.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sessionID := m.sessions.create()

	data := homePageData{
		SessionID: sessionID,
	}
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to execute home template", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
