package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/services"
)

// HandleRelay serves the relay endpoint. It accepts a JSON body {"message": "..."} through POST and always
// answers 200 with {"reply": "..."}: failures of the external API are carried in the reply text, and a
// body that cannot be decoded yields the generic server error reply. A missing message is forwarded as
// an empty one, leaving it to the external API to reject it.
func (m Main) HandleRelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chat.RelayRequest
	reply := services.ServerErrorReply
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.logger.Error("Failed to decode relay request", slog.String(errLoggerKey, err.Error()))
	} else {
		reply = m.relay.Reply(r.Context(), req.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chat.RelayResponse{Reply: reply}); err != nil {
		m.logger.Error("Failed to encode relay response", slog.String(errLoggerKey, err.Error()))
	}
}
