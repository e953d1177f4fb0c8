package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-router/internal/llm"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
	"github.com/capitalize-ai/conversation-router/pkg/metrics"
)

// RealtimeChannel wraps a persistent low-latency duplex session. Send
// requires an already-established session; when disconnected it fails fast
// instead of reconnecting inline, so a dead session is visible to the
// health monitor and the fallback chain.
type RealtimeChannel struct {
	client llm.Client
	config model.ChannelConfig

	mu            sync.RWMutex
	connected     bool
	connectedAt   time.Time
	lastLatencyMs int64

	logger *logger.Logger
}

// NewRealtimeChannel creates the realtime channel. The session starts
// disconnected; call Connect before routing traffic to it.
func NewRealtimeChannel(client llm.Client, cfg model.ChannelConfig, log *logger.Logger) *RealtimeChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RealtimeChannel{
		client: client,
		config: cfg,
		logger: log,
	}
}

// Type returns the channel's identity.
func (c *RealtimeChannel) Type() model.ChannelType {
	return model.ChannelRealtime
}

// Capabilities returns the static capability set from config.
func (c *RealtimeChannel) Capabilities() []string {
	return c.config.Capabilities
}

// Connect establishes the duplex session, verifying the backend with a
// probe round trip.
func (c *RealtimeChannel) Connect(ctx context.Context) error {
	if c.client == nil {
		return ErrUnavailable
	}

	latencyMs, err := c.client.Probe(ctx)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}

	c.mu.Lock()
	c.connected = true
	c.connectedAt = time.Now()
	c.lastLatencyMs = latencyMs
	c.mu.Unlock()

	c.logger.Info("realtime session established", zap.Int64("latency_ms", latencyMs))
	return nil
}

// Disconnect tears down the duplex session.
func (c *RealtimeChannel) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// Connected reports whether the duplex session is established.
func (c *RealtimeChannel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Send streams a response over the established session. Tokens are
// accumulated into a single channel-authored message.
func (c *RealtimeChannel) Send(ctx context.Context, msg model.Message, conv *model.ConversationContext) (*model.Message, error) {
	if !c.Connected() {
		return nil, ErrUnavailable
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CompleteStream(sendCtx, &llm.CompletionRequest{
		Messages: historyToChat(conv, msg, historyWindow),
		Stream:   true,
	}, func(token string, index int) error {
		return sendCtx.Err()
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, errors.Join(ErrUnavailable, err)
	}

	elapsed := time.Since(start)
	metrics.ObserveChannelSend(string(model.ChannelRealtime), elapsed.Seconds())

	c.mu.Lock()
	c.lastLatencyMs = elapsed.Milliseconds()
	c.mu.Unlock()

	msgType := model.MessageTypeText
	if conv.UserPreferences.VoiceEnabled {
		msgType = model.MessageTypeAudio
	}

	reply := newResponse(conv.SessionID, model.ChannelRealtime, msgType, resp.Content)
	reply.Metadata.Model = resp.Model
	reply.Metadata.TokensIn = resp.TokensIn
	reply.Metadata.TokensOut = resp.TokensOut
	return reply, nil
}

// CheckHealth reports offline when the session is not established. No
// connection attempt is made here; classification depends only on current
// session state so back-to-back checks agree.
func (c *RealtimeChannel) CheckHealth(ctx context.Context) model.ChannelHealthStatus {
	c.mu.RLock()
	connected := c.connected
	latency := c.lastLatencyMs
	c.mu.RUnlock()

	if !connected {
		return offlineStatus(model.ChannelRealtime, c.config.Capabilities, errors.New("realtime session not connected"))
	}

	return model.ChannelHealthStatus{
		Channel:        model.ChannelRealtime,
		IsHealthy:      true,
		Status:         model.HealthActive,
		ResponseTimeMs: latency,
		LastChecked:    time.Now(),
		Capabilities:   c.config.Capabilities,
	}
}
