package handlers

import "net/http"

// BotState exposes the bot's connection status to the API. Satisfied
// by bot.Bot.
type BotState interface {
	Ready() bool
	LastQR() string
}

// BotHandler serves the bot status endpoints.
type BotHandler struct {
	state BotState
}

func NewBotHandler(state BotState) *BotHandler {
	return &BotHandler{state: state}
}

func (h *BotHandler) State(w http.ResponseWriter, r *http.Request) {
	state := "not_ready"
	if h.state.Ready() {
		state = "ready"
	}
	respondJSON(w, http.StatusOK, map[string]string{"state": state})
}

// QR returns the pending login QR code; 404 once connected or before
// the first code arrives.
func (h *BotHandler) QR(w http.ResponseWriter, r *http.Request) {
	code := h.state.LastQR()
	if code == "" {
		respondError(w, http.StatusNotFound, "no pending qr code")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"qr": code})
}
