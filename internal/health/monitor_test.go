package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/conversation-router/internal/channel"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// probeChannel is a scriptable channel for monitor tests. Send is never
// exercised here.
type probeChannel struct {
	channelType model.ChannelType
	status      model.HealthState
	delay       time.Duration
	panics      bool
}

func (c *probeChannel) Send(context.Context, model.Message, *model.ConversationContext) (*model.Message, error) {
	return nil, channel.ErrUnavailable
}

func (c *probeChannel) CheckHealth(ctx context.Context) model.ChannelHealthStatus {
	if c.panics {
		panic("probe exploded")
	}
	if c.delay > 0 {
		// Deliberately ignores ctx: models a stuck transport.
		time.Sleep(c.delay)
	}
	return model.ChannelHealthStatus{
		Channel:     c.channelType,
		Status:      c.status,
		IsHealthy:   c.status == model.HealthActive,
		LastChecked: time.Now(),
	}
}

func (c *probeChannel) Type() model.ChannelType { return c.channelType }
func (c *probeChannel) Capabilities() []string  { return nil }

func newTestMonitor(timeout time.Duration, chs ...channel.Channel) *Monitor {
	return NewMonitor(chs, timeout, logger.NewNop())
}

func TestCheckAll_AllHealthy(t *testing.T) {
	m := newTestMonitor(time.Second,
		&probeChannel{channelType: model.ChannelRealtime, status: model.HealthActive},
		&probeChannel{channelType: model.ChannelNormal, status: model.HealthActive},
		&probeChannel{channelType: model.ChannelHuman, status: model.HealthActive},
	)

	sys := m.CheckAll(context.Background())
	assert.Equal(t, model.OverallHealthy, sys.Overall)
	assert.Len(t, sys.Channels, 3)
}

func TestCheckAll_SlowProbeIsolated(t *testing.T) {
	m := newTestMonitor(50*time.Millisecond,
		&probeChannel{channelType: model.ChannelRealtime, status: model.HealthActive, delay: time.Second},
		&probeChannel{channelType: model.ChannelNormal, status: model.HealthActive},
	)

	start := time.Now()
	sys := m.CheckAll(context.Background())

	// The slow probe times out without delaying its sibling past its own
	// timeout budget.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, model.OverallDegraded, sys.Overall)

	byChannel := statusByChannel(sys)
	assert.Equal(t, model.HealthOffline, byChannel[model.ChannelRealtime].Status)
	assert.Contains(t, byChannel[model.ChannelRealtime].Errors, "health probe timed out")
	assert.Equal(t, model.HealthActive, byChannel[model.ChannelNormal].Status)
}

func TestCheckAll_PanickingProbeIsolated(t *testing.T) {
	m := newTestMonitor(time.Second,
		&probeChannel{channelType: model.ChannelRealtime, panics: true},
		&probeChannel{channelType: model.ChannelNormal, status: model.HealthActive},
	)

	sys := m.CheckAll(context.Background())
	assert.Equal(t, model.OverallDegraded, sys.Overall)

	byChannel := statusByChannel(sys)
	assert.Equal(t, model.HealthOffline, byChannel[model.ChannelRealtime].Status)
	require.NotEmpty(t, byChannel[model.ChannelRealtime].Errors)
	assert.Contains(t, byChannel[model.ChannelRealtime].Errors[0], "probe panic")
}

func TestCheckAll_AllOfflineIsCritical(t *testing.T) {
	m := newTestMonitor(time.Second,
		&probeChannel{channelType: model.ChannelRealtime, status: model.HealthOffline},
		&probeChannel{channelType: model.ChannelNormal, status: model.HealthOffline},
	)

	sys := m.CheckAll(context.Background())
	assert.Equal(t, model.OverallCritical, sys.Overall)
}

func TestCheckAll_Idempotent(t *testing.T) {
	m := newTestMonitor(time.Second,
		&probeChannel{channelType: model.ChannelNormal, status: model.HealthActive},
	)

	first := m.CheckAll(context.Background())
	second := m.CheckAll(context.Background())
	assert.Equal(t, first.Overall, second.Overall)
	assert.Equal(t, len(first.Channels), len(second.Channels))
}

func TestCheckChannel_RefreshesSnapshot(t *testing.T) {
	ch := &probeChannel{channelType: model.ChannelNormal, status: model.HealthActive}
	m := newTestMonitor(time.Second, ch)

	_, ok := m.LastStatus(model.ChannelNormal)
	assert.False(t, ok)

	status, err := m.CheckChannel(context.Background(), model.ChannelNormal)
	require.NoError(t, err)
	assert.Equal(t, model.HealthActive, status.Status)

	// A later check supersedes the stored status entirely.
	ch.status = model.HealthDegraded
	status, err = m.CheckChannel(context.Background(), model.ChannelNormal)
	require.NoError(t, err)
	assert.Equal(t, model.HealthDegraded, status.Status)

	last, ok := m.LastStatus(model.ChannelNormal)
	require.True(t, ok)
	assert.Equal(t, model.HealthDegraded, last.Status)
}

func TestCheckChannel_Unknown(t *testing.T) {
	m := newTestMonitor(time.Second)
	_, err := m.CheckChannel(context.Background(), model.ChannelHuman)
	assert.Error(t, err)
}

func TestSnapshot_DoesNotProbe(t *testing.T) {
	ch := &probeChannel{channelType: model.ChannelNormal, status: model.HealthActive}
	m := newTestMonitor(time.Second, ch)

	m.CheckAll(context.Background())
	ch.panics = true

	// Snapshot reads the stored statuses without touching the channel.
	sys := m.Snapshot()
	assert.Equal(t, model.OverallHealthy, sys.Overall)
}

func TestOverallOf(t *testing.T) {
	assert.Equal(t, model.OverallHealthy, OverallOf(3, 3))
	assert.Equal(t, model.OverallDegraded, OverallOf(1, 3))
	assert.Equal(t, model.OverallCritical, OverallOf(0, 3))
	assert.Equal(t, model.OverallCritical, OverallOf(0, 0))
}

func statusByChannel(sys model.SystemHealth) map[model.ChannelType]model.ChannelHealthStatus {
	out := make(map[model.ChannelType]model.ChannelHealthStatus, len(sys.Channels))
	for _, s := range sys.Channels {
		out[s.Channel] = s
	}
	return out
}
