package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"nutristreak/internal/realtime"
)

type RealtimeHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, logger: logger}
}

// Subscribe upgrades to a websocket that receives achievement.unlocked events.
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.Serve(w, r, uid)
}
