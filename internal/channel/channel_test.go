package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/conversation-router/internal/llm"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/internal/staff"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// mockLLM is a scriptable completion backend.
type mockLLM struct {
	mu       sync.Mutex
	response *llm.CompletionResponse
	err      error
	delay    time.Duration
	probeMs  int64
	probeErr error
	lastReq  *llm.CompletionRequest
	calls    int
}

func (m *mockLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.lastReq = req
	m.calls++
	delay, response, err := m.delay, m.response, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (m *mockLLM) CompleteStream(ctx context.Context, req *llm.CompletionRequest, callback llm.StreamCallback) (*llm.CompletionResponse, error) {
	return m.Complete(ctx, req)
}

func (m *mockLLM) Probe(ctx context.Context) (int64, error) {
	return m.probeMs, m.probeErr
}

func (m *mockLLM) Name() string     { return "mock" }
func (m *mockLLM) Models() []string { return []string{"mock-1"} }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newConv(sessionID string) *model.ConversationContext {
	return &model.ConversationContext{
		SessionID:     sessionID,
		ActiveChannel: model.ChannelNormal,
		CreatedAt:     time.Now(),
	}
}

func userMsg(sessionID, content string) model.Message {
	return model.Message{
		ID:        "msg-1",
		SessionID: sessionID,
		Timestamp: time.Now(),
		Type:      model.MessageTypeText,
		Content:   content,
		Metadata:  model.MessageMetadata{Source: model.SourceUser},
	}
}

func TestStandardChannel_Send(t *testing.T) {
	backend := &mockLLM{response: &llm.CompletionResponse{
		Content:   "hello there",
		Model:     "mock-1",
		TokensIn:  12,
		TokensOut: 4,
	}}
	ch := NewStandardChannel(backend, model.ChannelConfig{Type: model.ChannelNormal}, 0, logger.NewNop())

	conv := newConv("sess-1")
	conv.History = []model.Message{
		{Content: "earlier question", Metadata: model.MessageMetadata{Source: model.SourceUser}},
		{Content: "earlier answer", Metadata: model.MessageMetadata{Source: model.SourceChannel}},
	}

	reply, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), conv)
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply.Content)
	assert.Equal(t, model.SourceChannel, reply.Metadata.Source)
	assert.Equal(t, model.ChannelNormal, reply.Metadata.Channel)
	assert.Equal(t, "mock-1", reply.Metadata.Model)
	assert.Equal(t, 12, reply.Metadata.TokensIn)
	assert.Equal(t, 4, reply.Metadata.TokensOut)

	// History plus the new message reach the backend as chat turns.
	require.NotNil(t, backend.lastReq)
	require.Len(t, backend.lastReq.Messages, 3)
	assert.Equal(t, "user", backend.lastReq.Messages[0].Role)
	assert.Equal(t, "assistant", backend.lastReq.Messages[1].Role)
	assert.Equal(t, "hi", backend.lastReq.Messages[2].Content)
}

func TestStandardChannel_SendTimeout(t *testing.T) {
	backend := &mockLLM{delay: time.Second, response: &llm.CompletionResponse{Content: "late"}}
	ch := NewStandardChannel(backend, model.ChannelConfig{Type: model.ChannelNormal, Timeout: 20 * time.Millisecond}, 0, logger.NewNop())

	_, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), newConv("sess-1"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestStandardChannel_SendBackendFailure(t *testing.T) {
	cause := errors.New("upstream 500")
	backend := &mockLLM{err: cause}
	ch := NewStandardChannel(backend, model.ChannelConfig{Type: model.ChannelNormal}, 0, logger.NewNop())

	_, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), newConv("sess-1"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestStandardChannel_SendWithoutBackend(t *testing.T) {
	ch := NewStandardChannel(nil, model.ChannelConfig{Type: model.ChannelNormal}, 0, logger.NewNop())
	_, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), newConv("sess-1"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStandardChannel_CheckHealth(t *testing.T) {
	backend := &mockLLM{probeMs: 120}
	ch := NewStandardChannel(backend, model.ChannelConfig{Type: model.ChannelNormal}, 2*time.Second, logger.NewNop())

	status := ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthActive, status.Status)
	assert.True(t, status.IsHealthy)
	assert.Equal(t, int64(120), status.ResponseTimeMs)

	// Slow but successful probes classify as degraded, not offline.
	backend.probeMs = 5000
	status = ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthDegraded, status.Status)
	assert.True(t, status.IsHealthy)

	backend.probeErr = errors.New("connection refused")
	status = ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthOffline, status.Status)
	assert.False(t, status.IsHealthy)
	assert.NotEmpty(t, status.Errors)
}

func TestRealtimeChannel_SendRequiresConnection(t *testing.T) {
	backend := &mockLLM{response: &llm.CompletionResponse{Content: "streamed"}}
	ch := NewRealtimeChannel(backend, model.ChannelConfig{Type: model.ChannelRealtime}, logger.NewNop())

	// Disconnected sessions fail fast without touching the backend.
	_, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), newConv("sess-1"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, backend.callCount())

	require.NoError(t, ch.Connect(context.Background()))
	assert.True(t, ch.Connected())

	reply, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), newConv("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "streamed", reply.Content)
	assert.Equal(t, model.MessageTypeText, reply.Type)
}

func TestRealtimeChannel_VoiceSessionsGetAudioReplies(t *testing.T) {
	backend := &mockLLM{response: &llm.CompletionResponse{Content: "spoken"}}
	ch := NewRealtimeChannel(backend, model.ChannelConfig{Type: model.ChannelRealtime}, logger.NewNop())
	require.NoError(t, ch.Connect(context.Background()))

	conv := newConv("sess-1")
	conv.UserPreferences.VoiceEnabled = true

	reply, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), conv)
	require.NoError(t, err)
	assert.Equal(t, model.MessageTypeAudio, reply.Type)
}

func TestRealtimeChannel_ConnectFailure(t *testing.T) {
	backend := &mockLLM{probeErr: errors.New("handshake failed")}
	ch := NewRealtimeChannel(backend, model.ChannelConfig{Type: model.ChannelRealtime}, logger.NewNop())

	err := ch.Connect(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, ch.Connected())
}

func TestRealtimeChannel_HealthTracksConnection(t *testing.T) {
	backend := &mockLLM{probeMs: 80, response: &llm.CompletionResponse{Content: "ok"}}
	ch := NewRealtimeChannel(backend, model.ChannelConfig{Type: model.ChannelRealtime}, logger.NewNop())

	status := ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthOffline, status.Status)

	require.NoError(t, ch.Connect(context.Background()))
	status = ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthActive, status.Status)
	assert.Equal(t, int64(80), status.ResponseTimeMs)

	ch.Disconnect()
	status = ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthOffline, status.Status)
}

func TestRealtimeChannel_SendTimeout(t *testing.T) {
	backend := &mockLLM{delay: time.Second, response: &llm.CompletionResponse{Content: "late"}}
	ch := NewRealtimeChannel(backend, model.ChannelConfig{Type: model.ChannelRealtime, Timeout: 20 * time.Millisecond}, logger.NewNop())
	require.NoError(t, ch.Connect(context.Background()))

	_, err := ch.Send(context.Background(), userMsg("sess-1", "hi"), newConv("sess-1"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func newHumanChannel(timeout time.Duration) (*HumanChannel, *staff.Directory, *staff.ReplyHub) {
	log := logger.NewNop()
	directory := staff.NewDirectory(staff.DefaultCapacity, 5*time.Minute, log)
	hub := staff.NewReplyHub()
	ch := NewHumanChannel(directory, hub, model.ChannelConfig{Type: model.ChannelHuman, Timeout: timeout}, log)
	return ch, directory, hub
}

func TestHumanChannel_SendWithoutStaff(t *testing.T) {
	ch, _, _ := newHumanChannel(time.Second)
	_, err := ch.Send(context.Background(), userMsg("sess-1", "help"), newConv("sess-1"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHumanChannel_SendDeliversStaffReply(t *testing.T) {
	ch, directory, hub := newHumanChannel(time.Second)
	directory.Upsert(model.StaffMember{ID: "s1", Name: "Sarah", Status: model.StaffOnline})

	go func() {
		time.Sleep(10 * time.Millisecond)
		hub.PostReply(model.Message{
			SessionID: "sess-1",
			Content:   "I can help with that",
			Metadata:  model.MessageMetadata{StaffID: "s1"},
		})
	}()

	reply, err := ch.Send(context.Background(), userMsg("sess-1", "help"), newConv("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "I can help with that", reply.Content)
	assert.Equal(t, "s1", reply.Metadata.StaffID)
	assert.Equal(t, model.ChannelHuman, reply.Metadata.Channel)

	// The handoff assigned the session to the matched staff member.
	member, err := directory.Get("s1")
	require.NoError(t, err)
	assert.Contains(t, member.CurrentSessions, "sess-1")
}

func TestHumanChannel_ReplyPostedBeforeWaitIsNotLost(t *testing.T) {
	ch, directory, hub := newHumanChannel(time.Second)
	directory.Upsert(model.StaffMember{ID: "s1", Status: model.StaffOnline})

	// A reply already sitting in the mailbox when Send starts waiting is
	// consumed, not dropped.
	hub.Open("sess-1")
	require.True(t, hub.PostReply(model.Message{
		SessionID: "sess-1",
		Content:   "got here first",
		Metadata:  model.MessageMetadata{StaffID: "s1"},
	}))

	reply, err := ch.Send(context.Background(), userMsg("sess-1", "help"), newConv("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "got here first", reply.Content)
}

func TestHumanChannel_SendTimesOutWaitingForReply(t *testing.T) {
	ch, directory, _ := newHumanChannel(20 * time.Millisecond)
	directory.Upsert(model.StaffMember{ID: "s1", Status: model.StaffOnline})

	_, err := ch.Send(context.Background(), userMsg("sess-1", "help"), newConv("sess-1"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHumanChannel_HealthTracksAvailability(t *testing.T) {
	ch, directory, _ := newHumanChannel(time.Second)

	status := ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthOffline, status.Status)

	directory.Upsert(model.StaffMember{ID: "s1", Status: model.StaffOnline})
	status = ch.CheckHealth(context.Background())
	assert.Equal(t, model.HealthActive, status.Status)
	assert.True(t, status.IsHealthy)
}
