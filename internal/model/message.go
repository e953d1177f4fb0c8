// Package model defines data structures for the conversation routing engine.
package model

import (
	"time"
)

// MessageType represents the payload kind of a message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
)

// Source represents who authored a message.
type Source string

const (
	SourceUser    Source = "user"
	SourceChannel Source = "channel"
)

// MessageMetadata carries routing provenance for a message.
type MessageMetadata struct {
	Source  Source      `json:"source"`
	Channel ChannelType `json:"channel,omitempty"`

	// LLM accounting, populated for channel-authored messages only.
	Model     string `json:"model,omitempty"`
	TokensIn  int    `json:"tokens_in,omitempty"`
	TokensOut int    `json:"tokens_out,omitempty"`
	StaffID   string `json:"staff_id,omitempty"`
}

// Message is the universal message shape shared by all channels.
// Immutable once created; appended to ConversationContext.History.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      MessageType     `json:"type"`
	Content   string          `json:"content"`
	Metadata  MessageMetadata `json:"metadata"`
}

// UserPreferences captures per-session routing preferences.
// PreferredChannel selects the initial channel when it is registered.
type UserPreferences struct {
	PreferredChannel ChannelType `json:"preferred_channel,omitempty"`
	Language         string      `json:"language,omitempty"`
	VoiceEnabled     bool        `json:"voice_enabled"`
}

// ConversationContext is the per-session state owned by the channel manager.
// Mutated only by the manager; callers must serialize operations per session.
type ConversationContext struct {
	SessionID       string           `json:"session_id"`
	History         []Message        `json:"history"`
	ActiveChannel   ChannelType      `json:"active_channel"`
	UserPreferences UserPreferences  `json:"user_preferences"`
	TransferHistory []TransferRecord `json:"transfer_history"`
	CreatedAt       time.Time        `json:"created_at"`
}
