package model

// Tagged request variants for the action-style POST surfaces. Payloads are
// validated at the boundary before entering the typed domain model.

// HealthActionRequest is the body of POST /health.
type HealthActionRequest struct {
	Action  string      `json:"action"` // check_specific | force_health_check
	Channel ChannelType `json:"channel,omitempty"`
}

// StaffActionRequest is the body of POST /staff.
type StaffActionRequest struct {
	Action    string        `json:"action"` // update_status | assign_session | remove_session | find_best_match | post_reply
	StaffID   string        `json:"staff_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Status    StaffStatus   `json:"status,omitempty"`
	Language  string        `json:"language,omitempty"`
	Expertise string        `json:"expertise,omitempty"`
	Priority  MatchPriority `json:"priority,omitempty"`
	Content   string        `json:"content,omitempty"`
}

// UsageActionRequest is the body of POST /usage.
type UsageActionRequest struct {
	Action   string          `json:"action"` // track_message | track_session | track_transfer | get_real_time_stats
	Message  *UsageMetric    `json:"message,omitempty"`
	Session  *SessionRecord  `json:"session,omitempty"`
	Transfer *TransferRecord `json:"transfer,omitempty"`
}

// CreateSessionRequest is the body of POST /api/v1/sessions.
type CreateSessionRequest struct {
	PreferredChannel ChannelType `json:"preferred_channel,omitempty"`
	Language         string      `json:"language,omitempty"`
	VoiceEnabled     bool        `json:"voice_enabled,omitempty"`
}

// CreateSessionResponse returns the new session's identity and initial channel.
type CreateSessionResponse struct {
	SessionID     string      `json:"session_id"`
	ActiveChannel ChannelType `json:"active_channel"`
	Persisted     bool        `json:"persisted"`
}

// SendMessageRequest is the body of POST /api/v1/sessions/{id}/messages.
type SendMessageRequest struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type,omitempty"`
}

// SendMessageResponse carries the channel-authored reply plus any fallback
// switch that happened while handling the send.
type SendMessageResponse struct {
	Message       *Message    `json:"message"`
	ActiveChannel ChannelType `json:"active_channel"`
	Switched      bool        `json:"switched,omitempty"`
}

// SwitchChannelRequest is the body of POST /api/v1/sessions/{id}/switch.
type SwitchChannelRequest struct {
	Target ChannelType    `json:"target"`
	Reason TransferReason `json:"reason,omitempty"`
}

// SwitchChannelResponse reports the outcome of a manual switch. Warning is
// set when the target's last known health was offline; the switch still
// proceeds because explicit user requests are trusted.
type SwitchChannelResponse struct {
	ActiveChannel ChannelType `json:"active_channel"`
	Warning       string      `json:"warning,omitempty"`
}
