package channel

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-router/internal/llm"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
	"github.com/capitalize-ai/conversation-router/pkg/metrics"
)

const historyWindow = 50

// StandardChannel wraps stateless request/response calls to a
// text-completion backend.
type StandardChannel struct {
	client llm.Client
	config model.ChannelConfig

	// slaThreshold classifies a successful but slow probe as degraded.
	slaThreshold time.Duration

	logger *logger.Logger
}

// NewStandardChannel creates the standard request/response channel.
func NewStandardChannel(client llm.Client, cfg model.ChannelConfig, slaThreshold time.Duration, log *logger.Logger) *StandardChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if slaThreshold <= 0 {
		slaThreshold = 2 * time.Second
	}
	return &StandardChannel{
		client:       client,
		config:       cfg,
		slaThreshold: slaThreshold,
		logger:       log,
	}
}

// Type returns the channel's identity.
func (c *StandardChannel) Type() model.ChannelType {
	return model.ChannelNormal
}

// Capabilities returns the static capability set from config.
func (c *StandardChannel) Capabilities() []string {
	return c.config.Capabilities
}

// Send issues one completion call with the channel's request timeout.
func (c *StandardChannel) Send(ctx context.Context, msg model.Message, conv *model.ConversationContext) (*model.Message, error) {
	if c.client == nil {
		return nil, ErrUnavailable
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Complete(sendCtx, &llm.CompletionRequest{
		Messages: historyToChat(conv, msg, historyWindow),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		c.logger.Warn("completion call failed", zap.Error(err))
		return nil, errors.Join(ErrUnavailable, err)
	}

	metrics.ObserveChannelSend(string(model.ChannelNormal), time.Since(start).Seconds())

	reply := newResponse(conv.SessionID, model.ChannelNormal, model.MessageTypeText, resp.Content)
	reply.Metadata.Model = resp.Model
	reply.Metadata.TokensIn = resp.TokensIn
	reply.Metadata.TokensOut = resp.TokensOut
	return reply, nil
}

// CheckHealth issues a minimal 1-token probe. A successful probe slower
// than the SLA threshold classifies as degraded rather than active.
func (c *StandardChannel) CheckHealth(ctx context.Context) model.ChannelHealthStatus {
	if c.client == nil {
		return offlineStatus(model.ChannelNormal, c.config.Capabilities, errors.New("no completion backend configured"))
	}

	latencyMs, err := c.client.Probe(ctx)
	if err != nil {
		return offlineStatus(model.ChannelNormal, c.config.Capabilities, err)
	}

	state := model.HealthActive
	if time.Duration(latencyMs)*time.Millisecond > c.slaThreshold {
		state = model.HealthDegraded
	}

	return model.ChannelHealthStatus{
		Channel:        model.ChannelNormal,
		IsHealthy:      true,
		Status:         state,
		ResponseTimeMs: latencyMs,
		LastChecked:    time.Now(),
		Capabilities:   c.config.Capabilities,
	}
}
