package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/conversation-router/internal/middleware"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/internal/router"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// SessionHandler exposes the conversation front end: session lifecycle,
// message sends, and manual channel switches.
type SessionHandler struct {
	manager *router.Manager
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager *router.Manager, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PreferredChannel != "" {
		if err := middleware.ValidateChannelType(req.PreferredChannel); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := middleware.ValidateLanguageTag(req.Language); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, persisted, err := h.manager.CreateSession(r.Context(), model.UserPreferences{
		PreferredChannel: req.PreferredChannel,
		Language:         req.Language,
		VoiceEnabled:     req.VoiceEnabled,
	})
	if err != nil {
		h.logger.Error("failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateSessionResponse{
		SessionID:     conv.SessionID,
		ActiveChannel: conv.ActiveChannel,
		Persisted:     persisted,
	})
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.manager.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.manager.EndSession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/sessions/{id}/messages
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.manager.SendMessage(r.Context(), sessionID, req)
	if err != nil {
		var exhausted *router.ExhaustedError
		switch {
		case errors.Is(err, router.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.As(err, &exhausted):
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error":               "all channels exhausted",
				"message":             exhausted.Apology,
				"retry_after_seconds": int(exhausted.RetryAfter.Seconds()),
			})
		default:
			h.logger.Error("failed to send message")
			writeError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Switch handles POST /api/v1/sessions/{id}/switch
func (h *SessionHandler) Switch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SwitchChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateChannelType(req.Target); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.manager.SwitchChannel(r.Context(), sessionID, req.Target, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, router.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, router.ErrUnknownChannel):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to switch channel")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
