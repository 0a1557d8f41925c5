package handlers

import "github.com/MegaGrindStone/gemini-web-chat/internal/models"

// Messages exposes the conversation of a page session to the external tests.
func (m Main) Messages(sessionID string) ([]models.Message, bool) {
	return m.messages(sessionID)
}
