package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/conversation-router/internal/middleware"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/internal/router"
	"github.com/capitalize-ai/conversation-router/internal/staff"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// StaffHandler exposes the staff availability and handoff surface.
type StaffHandler struct {
	directory *staff.Directory
	hub       *staff.ReplyHub
	manager   *router.Manager
	logger    *logger.Logger
}

// NewStaffHandler creates a new staff handler.
func NewStaffHandler(directory *staff.Directory, hub *staff.ReplyHub, manager *router.Manager, log *logger.Logger) *StaffHandler {
	return &StaffHandler{
		directory: directory,
		hub:       hub,
		manager:   manager,
		logger:    log,
	}
}

// listResponse is the GET /staff body.
type listResponse struct {
	Staff        []model.StaffMember     `json:"staff"`
	Availability model.StaffAvailability `json:"availability"`
}

// Get handles GET /staff?language=&expertise=&includeUnavailable=
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	language := query.Get("language")
	if err := middleware.ValidateLanguageTag(language); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	includeUnavailable := query.Get("includeUnavailable") == "true"
	members := h.directory.List(language, query.Get("expertise"), includeUnavailable)

	writeJSON(w, http.StatusOK, listResponse{
		Staff:        members,
		Availability: h.directory.Availability(),
	})
}

// Post handles POST /staff with a tagged action body.
func (h *StaffHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req model.StaffActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "update_status":
		h.updateStatus(w, req)
	case "assign_session":
		h.assignSession(w, req)
	case "remove_session":
		h.removeSession(w, req)
	case "find_best_match":
		h.findBestMatch(w, req)
	case "post_reply":
		h.postReply(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *StaffHandler) updateStatus(w http.ResponseWriter, req model.StaffActionRequest) {
	if err := middleware.ValidateStaffStatus(req.Status); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.directory.UpdateStatus(req.StaffID, req.Status); err != nil {
		writeStaffError(w, err)
		return
	}
	member, _ := h.directory.Get(req.StaffID)
	writeJSON(w, http.StatusOK, member)
}

func (h *StaffHandler) assignSession(w http.ResponseWriter, req model.StaffActionRequest) {
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	if err := h.directory.AssignSession(req.StaffID, req.SessionID); err != nil {
		writeStaffError(w, err)
		return
	}
	member, _ := h.directory.Get(req.StaffID)
	writeJSON(w, http.StatusOK, member)
}

func (h *StaffHandler) removeSession(w http.ResponseWriter, req model.StaffActionRequest) {
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	if err := h.directory.RemoveSession(req.StaffID, req.SessionID); err != nil {
		writeStaffError(w, err)
		return
	}
	member, _ := h.directory.Get(req.StaffID)
	writeJSON(w, http.StatusOK, member)
}

func (h *StaffHandler) findBestMatch(w http.ResponseWriter, req model.StaffActionRequest) {
	if err := middleware.ValidateLanguageTag(req.Language); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := h.directory.FindBestMatch(model.MatchRequest{
		Language:  req.Language,
		Expertise: req.Expertise,
		Priority:  req.Priority,
	})
	writeJSON(w, http.StatusOK, result)
}

// postReply delivers a staff-authored reply to a session waiting on the
// human channel, and records it in the session history when the session
// is known to the manager.
func (h *StaffHandler) postReply(w http.ResponseWriter, r *http.Request, req model.StaffActionRequest) {
	if req.SessionID == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "session_id and content required")
		return
	}
	if _, err := h.directory.Get(req.StaffID); err != nil {
		writeStaffError(w, err)
		return
	}

	msg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: req.SessionID,
		Timestamp: time.Now(),
		Type:      model.MessageTypeText,
		Content:   req.Content,
		Metadata: model.MessageMetadata{
			Source:  model.SourceChannel,
			Channel: model.ChannelHuman,
			StaffID: req.StaffID,
		},
	}

	if !h.hub.PostReply(msg) {
		// Nobody is blocked on this session; append straight to history.
		if err := h.manager.PostStaffMessage(r.Context(), msg); err != nil {
			writeError(w, http.StatusBadRequest, "no active handoff for session")
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"delivered": true})
}

// writeStaffError maps directory errors to HTTP status codes: 404 for
// unknown staff, 409 for capacity, 400 for invalid session state.
func writeStaffError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, staff.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, staff.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, staff.ErrAlreadyAssigned), errors.Is(err, staff.ErrSessionNotAssigned):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
