package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/capitalize-ai/conversation-router/internal/middleware"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/internal/telemetry"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// UsageHandler exposes the telemetry surface.
type UsageHandler struct {
	store  *telemetry.Store
	logger *logger.Logger
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(store *telemetry.Store, log *logger.Logger) *UsageHandler {
	return &UsageHandler{
		store:  store,
		logger: log,
	}
}

// Get handles GET /usage?period=1h|24h|7d|30d&channel=&metric=
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	channelFilter := model.ChannelType(query.Get("channel"))
	if channelFilter != "" {
		if err := middleware.ValidateChannelType(channelFilter); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	metricsOut, err := h.store.ComputeMetrics(query.Get("period"), channelFilter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch query.Get("metric") {
	case "":
		writeJSON(w, http.StatusOK, metricsOut)
	case "channelUsage":
		writeJSON(w, http.StatusOK, map[string]any{"channelUsage": metricsOut.ChannelUsage})
	case "transfers":
		writeJSON(w, http.StatusOK, map[string]any{"transfers": metricsOut.Transfers})
	case "sessions":
		writeJSON(w, http.StatusOK, map[string]any{"sessions": metricsOut.Sessions})
	case "summary":
		writeJSON(w, http.StatusOK, map[string]any{"summary": metricsOut.Summary})
	default:
		writeError(w, http.StatusBadRequest, "unknown metric view")
	}
}

// Post handles POST /usage with a tagged action body.
func (h *UsageHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req model.UsageActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "track_message":
		if req.Message == nil {
			writeError(w, http.StatusBadRequest, "message payload required")
			return
		}
		if req.Message.Timestamp.IsZero() {
			req.Message.Timestamp = time.Now()
		}
		h.store.TrackMessage(*req.Message)
		writeJSON(w, http.StatusAccepted, map[string]bool{"tracked": true})

	case "track_session":
		if req.Session == nil {
			writeError(w, http.StatusBadRequest, "session payload required")
			return
		}
		if req.Session.StartedAt.IsZero() {
			req.Session.StartedAt = time.Now()
		}
		h.store.TrackSession(*req.Session)
		writeJSON(w, http.StatusAccepted, map[string]bool{"tracked": true})

	case "track_transfer":
		if req.Transfer == nil {
			writeError(w, http.StatusBadRequest, "transfer payload required")
			return
		}
		if req.Transfer.Timestamp.IsZero() {
			req.Transfer.Timestamp = time.Now()
		}
		h.store.TrackTransfer(*req.Transfer)
		writeJSON(w, http.StatusAccepted, map[string]bool{"tracked": true})

	case "get_real_time_stats":
		writeJSON(w, http.StatusOK, h.store.RealTimeStats())

	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
