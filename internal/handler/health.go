package handler

import (
	"encoding/json"
	"net/http"

	"github.com/capitalize-ai/conversation-router/internal/health"
	"github.com/capitalize-ai/conversation-router/internal/middleware"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// HealthHandler exposes the channel health surface.
type HealthHandler struct {
	monitor *health.Monitor
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(monitor *health.Monitor, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		monitor: monitor,
		logger:  log,
	}
}

// Get handles GET /health: probes all channels and returns the aggregate.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.CheckAll(r.Context()))
}

// Post handles POST /health with a tagged action body.
func (h *HealthHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req model.HealthActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "check_specific":
		if err := middleware.ValidateChannelType(req.Channel); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status, err := h.monitor.CheckChannel(r.Context(), req.Channel)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, status)

	case "force_health_check":
		writeJSON(w, http.StatusOK, h.monitor.CheckAll(r.Context()))

	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
