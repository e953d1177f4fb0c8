package channel

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/internal/staff"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
	"github.com/capitalize-ai/conversation-router/pkg/metrics"
)

// HumanChannel hands a conversation to a staff member. Send does not
// answer itself: it asks the directory for the best match, assigns the
// session, and waits (bounded) for a staff-authored reply through the hub.
type HumanChannel struct {
	directory *staff.Directory
	hub       *staff.ReplyHub
	config    model.ChannelConfig

	logger *logger.Logger
}

// NewHumanChannel creates the human-staff channel.
func NewHumanChannel(directory *staff.Directory, hub *staff.ReplyHub, cfg model.ChannelConfig, log *logger.Logger) *HumanChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &HumanChannel{
		directory: directory,
		hub:       hub,
		config:    cfg,
		logger:    log,
	}
}

// Type returns the channel's identity.
func (c *HumanChannel) Type() model.ChannelType {
	return model.ChannelHuman
}

// Capabilities returns the static capability set from config.
func (c *HumanChannel) Capabilities() []string {
	return c.config.Capabilities
}

// Send matches and assigns a staff member, then blocks until a staff reply
// arrives or the bounded wait expires. A session already assigned to the
// matched staff member keeps its assignment.
//
// The mailbox opens before matching so a staff reply posted between
// assignment and the wait is buffered rather than lost.
func (c *HumanChannel) Send(ctx context.Context, msg model.Message, conv *model.ConversationContext) (*model.Message, error) {
	replies := c.hub.Open(conv.SessionID)
	defer c.hub.Close(conv.SessionID)

	result := c.directory.FindBestMatch(model.MatchRequest{
		Language: conv.UserPreferences.Language,
		Priority: model.PrioritySpeed,
	})
	if result.Match == nil {
		return nil, errors.Join(ErrUnavailable, errors.New("no staff available"))
	}

	member := result.Match
	if err := c.directory.AssignSession(member.ID, conv.SessionID); err != nil && !errors.Is(err, staff.ErrAlreadyAssigned) {
		return nil, errors.Join(ErrUnavailable, err)
	}

	c.logger.Info("session handed to staff",
		zap.String("session_id", conv.SessionID),
		zap.String("staff_id", member.ID),
	)
	metrics.StaffHandoffsTotal.Inc()

	waitCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	var reply model.Message
	select {
	case reply = <-replies:
	case <-waitCtx.Done():
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, waitCtx.Err()
	}

	metrics.ObserveChannelSend(string(model.ChannelHuman), time.Since(start).Seconds())

	out := newResponse(conv.SessionID, model.ChannelHuman, model.MessageTypeText, reply.Content)
	out.Metadata.StaffID = reply.Metadata.StaffID
	if out.Metadata.StaffID == "" {
		out.Metadata.StaffID = member.ID
	}
	return out, nil
}

// CheckHealth reports healthy only while at least one staff member is
// available to take a session.
func (c *HumanChannel) CheckHealth(ctx context.Context) model.ChannelHealthStatus {
	availability := c.directory.Availability()

	if availability.Available == 0 {
		return offlineStatus(model.ChannelHuman, c.config.Capabilities, errors.New("no staff members available"))
	}

	return model.ChannelHealthStatus{
		Channel:      model.ChannelHuman,
		IsHealthy:    true,
		Status:       model.HealthActive,
		LastChecked:  time.Now(),
		Capabilities: c.config.Capabilities,
	}
}
