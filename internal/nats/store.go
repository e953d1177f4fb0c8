package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

const (
	// StreamName is the name of the sessions stream.
	StreamName = "SESSIONS"

	// SubjectPrefix is the prefix for all session subjects.
	SubjectPrefix = "sess"
)

// SessionStore persists sessions and messages to JetStream. All failures
// are non-fatal to the caller by contract: the router degrades to
// locally-generated IDs and in-memory history when persistence is down.
type SessionStore struct {
	client *Client
}

// NewSessionStore creates a session store over an established client.
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

// EnsureStream ensures the sessions stream exists with proper configuration.
func (s *SessionStore) EnsureStream(ctx context.Context) error {
	js := s.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Routed session messages and lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a session message.
func MessageSubject(sessionID string, source model.Source) string {
	return fmt.Sprintf("%s.%s.msg.%s", SubjectPrefix, sessionID, source)
}

// SessionSubject returns the subject for a session lifecycle record.
func SessionSubject(sessionID string) string {
	return fmt.Sprintf("%s.%s.created", SubjectPrefix, sessionID)
}

// sessionEnvelope is the persisted session-created record.
type sessionEnvelope struct {
	SessionID string            `json:"session_id"`
	Channel   model.ChannelType `json:"channel"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// CreateSession persists a new session record and returns its ID.
func (s *SessionStore) CreateSession(ctx context.Context, channel model.ChannelType, meta map[string]string) (string, error) {
	sessionID := uuid.Must(uuid.NewV7()).String()

	data, err := json.Marshal(sessionEnvelope{
		SessionID: sessionID,
		Channel:   channel,
		Meta:      meta,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	if _, err := s.client.JetStream().Publish(ctx, SessionSubject(sessionID), data); err != nil {
		return "", fmt.Errorf("failed to publish session: %w", err)
	}

	return sessionID, nil
}

// CreateMessage persists one message to the session's subject.
func (s *SessionStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	subject := MessageSubject(msg.SessionID, msg.Metadata.Source)
	if _, err := s.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
