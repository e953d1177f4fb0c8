package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-router/internal/channel"
	"github.com/capitalize-ai/conversation-router/internal/health"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/internal/telemetry"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
	"github.com/capitalize-ai/conversation-router/pkg/metrics"
)

// Persistence is the black-box message store. Failures are logged and
// never block conversation flow.
type Persistence interface {
	CreateSession(ctx context.Context, channel model.ChannelType, meta map[string]string) (string, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
}

// defaultRetryAfter is the wait estimate reported with an exhausted chain.
const defaultRetryAfter = 5 * time.Minute

// Manager owns the channel registry, routing policy, per-session
// conversation contexts, and the transfer ledger hookup.
//
// Context mutations are serialized by a per-session lock: the staff
// surface posts replies concurrently with in-flight sends, so both
// append paths into a session's history take the same lock.
type Manager struct {
	channels  map[model.ChannelType]channel.Channel
	configs   map[model.ChannelType]model.ChannelConfig
	monitor   *health.Monitor
	telemetry *telemetry.Store
	store     Persistence // nil when persistence is disabled

	mu       sync.RWMutex
	sessions map[string]*session

	logger *logger.Logger
}

// session pairs a conversation context with the lock serializing its
// mutations.
type session struct {
	mu   sync.Mutex
	conv *model.ConversationContext
}

// NewManager creates the channel manager. The fallback topology is
// validated up front; a misconfigured chain is a startup error.
func NewManager(
	channels []channel.Channel,
	configs map[model.ChannelType]model.ChannelConfig,
	monitor *health.Monitor,
	store Persistence,
	tel *telemetry.Store,
	log *logger.Logger,
) (*Manager, error) {
	if err := ValidateChain(configs); err != nil {
		return nil, fmt.Errorf("invalid fallback chain: %w", err)
	}

	byType := make(map[model.ChannelType]channel.Channel, len(channels))
	for _, ch := range channels {
		byType[ch.Type()] = ch
	}
	for channelType := range configs {
		if _, ok := byType[channelType]; !ok {
			return nil, fmt.Errorf("config references unregistered channel %q", channelType)
		}
	}

	return &Manager{
		channels:  byType,
		configs:   configs,
		monitor:   monitor,
		telemetry: tel,
		store:     store,
		sessions:  make(map[string]*session),
		logger:    log,
	}, nil
}

// CreateSession opens a new conversation context. The session starts on
// the requested preferred channel when one is registered, otherwise on
// the normal channel for the fastest first response. When the persistence
// store is unreachable a locally-generated ID is used and the session
// continues unpersisted.
func (m *Manager) CreateSession(ctx context.Context, prefs model.UserPreferences) (*model.ConversationContext, bool, error) {
	active := model.ChannelNormal
	if prefs.PreferredChannel != "" {
		if _, ok := m.channels[prefs.PreferredChannel]; ok {
			active = prefs.PreferredChannel
		}
	}

	persisted := false
	var sessionID string

	if m.store != nil {
		id, err := m.store.CreateSession(ctx, active, map[string]string{"language": prefs.Language})
		if err != nil {
			m.logger.Warn("persistence unavailable, using local session id", zap.Error(err))
		} else {
			sessionID = id
			persisted = true
		}
	}
	if sessionID == "" {
		sessionID = uuid.Must(uuid.NewV7()).String()
	}

	conv := &model.ConversationContext{
		SessionID:       sessionID,
		ActiveChannel:   active,
		UserPreferences: prefs,
		CreatedAt:       time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = &session{conv: conv}
	m.mu.Unlock()

	m.telemetry.TrackSession(model.SessionRecord{
		SessionID: sessionID,
		Channel:   active,
		StartedAt: conv.CreatedAt,
		Language:  prefs.Language,
	})
	metrics.ActiveSessions.Inc()

	return conv, persisted, nil
}

// session returns the live session entry.
func (m *Manager) session(sessionID string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetSession returns a point-in-time copy of the conversation context,
// safe to read and marshal while the session keeps routing.
func (m *Manager) GetSession(sessionID string) (*model.ConversationContext, error) {
	sess, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	snapshot := *sess.conv
	snapshot.History = append([]model.Message(nil), sess.conv.History...)
	snapshot.TransferHistory = append([]model.TransferRecord(nil), sess.conv.TransferHistory...)
	return &snapshot, nil
}

// EndSession destroys the conversation context and closes the telemetry
// session record.
func (m *Manager) EndSession(sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	active := sess.conv.ActiveChannel
	sess.mu.Unlock()

	now := time.Now()
	m.telemetry.TrackSession(model.SessionRecord{
		SessionID: sessionID,
		Channel:   active,
		EndedAt:   &now,
	})
	metrics.ActiveSessions.Dec()
	return nil
}

// SendMessage routes a user message over the session's active channel,
// walking the fallback chain once when the active channel fails. The user
// and response messages are appended to history only after a successful
// send, so a cancelled or failed send leaves the context untouched.
func (m *Manager) SendMessage(ctx context.Context, sessionID string, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	sess, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	// Hold the session lock for the whole routed send. A concurrent staff
	// reply still flows: during a human-channel wait the mailbox is open,
	// so PostReply delivers without touching the context.
	sess.mu.Lock()
	defer sess.mu.Unlock()
	conv := sess.conv

	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageTypeText
	}
	userMsg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Timestamp: time.Now(),
		Type:      msgType,
		Content:   req.Content,
		Metadata:  model.MessageMetadata{Source: model.SourceUser, Channel: conv.ActiveChannel},
	}

	active := conv.ActiveChannel
	attempts := append([]model.ChannelType{active}, fallbackChain(m.configs, active)...)

	var lastErr error
	switched := false

	for i, target := range attempts {
		ch, ok := m.channels[target]
		if !ok {
			lastErr = fmt.Errorf("%w: %q", ErrUnknownChannel, target)
			continue
		}

		start := time.Now()
		reply, sendErr := ch.Send(ctx, userMsg, conv)
		elapsed := time.Since(start)

		m.trackSend(conv, target, elapsed, sendErr)

		if i > 0 {
			// Record the fallback transition whether or not the hop worked.
			m.recordTransfer(conv, attempts[i-1], target, reasonFor(lastErr), sendErr == nil, elapsed)
		}

		if sendErr != nil {
			lastErr = sendErr
			m.logger.Warn("channel send failed, trying fallback",
				zap.String("session_id", sessionID),
				zap.String("channel", string(target)),
				zap.Error(sendErr),
			)
			continue
		}

		if target != active {
			conv.ActiveChannel = target
			switched = true
		}
		userMsg.Metadata.Channel = target
		conv.History = append(conv.History, userMsg, *reply)
		m.persist(ctx, &userMsg)
		m.persist(ctx, reply)

		if switched {
			m.logger.Info("auto-routed to fallback channel",
				zap.String("session_id", sessionID),
				zap.String("from", string(active)),
				zap.String("to", string(target)),
			)
		}

		return &model.SendMessageResponse{
			Message:       reply,
			ActiveChannel: conv.ActiveChannel,
			Switched:      switched,
		}, nil
	}

	return nil, newExhaustedError(defaultRetryAfter, lastErr)
}

// SwitchChannel performs a manual, user-driven switch. Health is advisory
// here: a target whose last known status is offline produces a warning but
// the switch proceeds, because the explicit request is trusted.
func (m *Manager) SwitchChannel(ctx context.Context, sessionID string, target model.ChannelType, reason model.TransferReason) (*model.SwitchChannelResponse, error) {
	sess, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	conv := sess.conv

	if _, ok := m.channels[target]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, target)
	}
	if reason == "" {
		reason = model.ReasonManual
	}

	var warning string
	if status, ok := m.monitor.LastStatus(target); ok && status.Status == model.HealthOffline {
		warning = fmt.Sprintf("channel %q was offline at last check; switching anyway", target)
		m.logger.Warn("manual switch to offline channel",
			zap.String("session_id", sessionID),
			zap.String("target", string(target)),
		)
	}

	from := conv.ActiveChannel
	if from != target {
		conv.ActiveChannel = target
		m.recordTransfer(conv, from, target, reason, true, 0)
	}

	return &model.SwitchChannelResponse{
		ActiveChannel: conv.ActiveChannel,
		Warning:       warning,
	}, nil
}

// PostStaffMessage appends a staff-authored message to the session history
// and persists it. Used by the staff surface when a handoff is live.
func (m *Manager) PostStaffMessage(ctx context.Context, msg model.Message) error {
	sess, err := m.session(msg.SessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.conv.History = append(sess.conv.History, msg)
	m.persist(ctx, &msg)
	return nil
}

// recordTransfer appends a transfer to both the session's history and the
// global telemetry ledger with identical from/to/timestamp.
func (m *Manager) recordTransfer(conv *model.ConversationContext, from, to model.ChannelType, reason model.TransferReason, success bool, duration time.Duration) {
	record := model.TransferRecord{
		SessionID:  conv.SessionID,
		From:       from,
		To:         to,
		Timestamp:  time.Now(),
		Reason:     reason,
		Success:    success,
		DurationMs: duration.Milliseconds(),
	}
	conv.TransferHistory = append(conv.TransferHistory, record)
	m.telemetry.TrackTransfer(record)
}

// trackSend records one message-level usage metric.
func (m *Manager) trackSend(conv *model.ConversationContext, target model.ChannelType, elapsed time.Duration, sendErr error) {
	entry := model.UsageMetric{
		SessionID:      conv.SessionID,
		Channel:        target,
		Timestamp:      time.Now(),
		ResponseTimeMs: elapsed.Milliseconds(),
		Success:        sendErr == nil,
		Language:       conv.UserPreferences.Language,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	m.telemetry.TrackMessage(entry)
	metrics.MessagesTotal.WithLabelValues(string(target), boolLabel(sendErr == nil)).Inc()
}

// persist writes one message to the store, tolerating unavailability.
func (m *Manager) persist(ctx context.Context, msg *model.Message) {
	if m.store == nil {
		return
	}
	if err := m.store.CreateMessage(ctx, msg); err != nil {
		m.logger.Warn("failed to persist message",
			zap.String("session_id", msg.SessionID),
			zap.Error(err),
		)
	}
}

func reasonFor(err error) model.TransferReason {
	if errors.Is(err, channel.ErrTimeout) {
		return model.ReasonTimeout
	}
	return model.ReasonSendFailure
}

func boolLabel(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}
