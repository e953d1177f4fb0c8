// Package channel defines the transport contract shared by the realtime,
// standard, and human-staff channels.
package channel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/conversation-router/internal/llm"
	"github.com/capitalize-ai/conversation-router/internal/model"
)

var (
	// ErrUnavailable indicates the channel's transport is offline or
	// unreachable. Recoverable by walking the fallback chain.
	ErrUnavailable = errors.New("channel unavailable")
	// ErrTimeout indicates no response arrived within the channel's
	// configured timeout. Recoverable by walking the fallback chain.
	ErrTimeout = errors.New("channel timeout")
)

// Channel is one transport for delivering an assistant response.
type Channel interface {
	// Send delivers msg over this transport and returns the channel-authored
	// response. Fails with ErrUnavailable when the transport is offline and
	// ErrTimeout when no response arrives within the configured timeout.
	Send(ctx context.Context, msg model.Message, conv *model.ConversationContext) (*model.Message, error)

	// CheckHealth probes the transport and returns its current status.
	// It never returns an error; failures are captured into Errors and
	// reported as offline.
	CheckHealth(ctx context.Context) model.ChannelHealthStatus

	// Type returns the channel's identity.
	Type() model.ChannelType

	// Capabilities returns the static capability set from config.
	Capabilities() []string
}

// newResponse builds a channel-authored message for a session.
func newResponse(sessionID string, ch model.ChannelType, msgType model.MessageType, content string) *model.Message {
	return &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Timestamp: time.Now(),
		Type:      msgType,
		Content:   content,
		Metadata: model.MessageMetadata{
			Source:  model.SourceChannel,
			Channel: ch,
		},
	}
}

// offlineStatus builds an offline health status carrying the probe error.
func offlineStatus(ch model.ChannelType, caps []string, err error) model.ChannelHealthStatus {
	status := model.ChannelHealthStatus{
		Channel:      ch,
		Status:       model.HealthOffline,
		LastChecked:  time.Now(),
		Capabilities: caps,
	}
	if err != nil {
		status.Errors = []string{err.Error()}
	}
	return status
}

// historyToChat converts the tail of the session history, plus the message
// being sent, into LLM chat turns.
func historyToChat(conv *model.ConversationContext, msg model.Message, limit int) []llm.ChatMessage {
	history := conv.History
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]llm.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		role := "assistant"
		if m.Metadata.Source == model.SourceUser {
			role = "user"
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	out = append(out, llm.ChatMessage{Role: "user", Content: msg.Content})
	return out
}
