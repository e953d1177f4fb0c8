package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/conversation-router/internal/channel"
	"github.com/capitalize-ai/conversation-router/internal/health"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/internal/router"
	"github.com/capitalize-ai/conversation-router/internal/telemetry"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// stubChannel answers every send with a fixed reply, or fails with sendErr.
type stubChannel struct {
	channelType model.ChannelType
	sendErr     error
}

func (c *stubChannel) Send(_ context.Context, msg model.Message, _ *model.ConversationContext) (*model.Message, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	return &model.Message{
		ID:        "reply-1",
		SessionID: msg.SessionID,
		Timestamp: time.Now(),
		Type:      model.MessageTypeText,
		Content:   "ack",
		Metadata:  model.MessageMetadata{Source: model.SourceChannel, Channel: c.channelType},
	}, nil
}

func (c *stubChannel) CheckHealth(context.Context) model.ChannelHealthStatus {
	return model.ChannelHealthStatus{Channel: c.channelType, Status: model.HealthActive, IsHealthy: true, LastChecked: time.Now()}
}

func (c *stubChannel) Type() model.ChannelType { return c.channelType }
func (c *stubChannel) Capabilities() []string  { return []string{"text"} }

func newSessionRouter(t *testing.T, channelErr error) http.Handler {
	t.Helper()

	normal := &stubChannel{channelType: model.ChannelNormal, sendErr: channelErr}
	human := &stubChannel{channelType: model.ChannelHuman, sendErr: channelErr}
	channels := []channel.Channel{normal, human}
	configs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelNormal: {Type: model.ChannelNormal, IsActive: true, FallbackChannel: model.ChannelHuman},
		model.ChannelHuman:  {Type: model.ChannelHuman, IsActive: true},
	}

	log := logger.NewNop()
	monitor := health.NewMonitor(channels, time.Second, log)
	tel := telemetry.NewStore(telemetry.DefaultBufferCap, telemetry.DefaultAdjustments)
	manager, err := router.NewManager(channels, configs, monitor, nil, tel, log)
	require.NoError(t, err)

	h := NewSessionHandler(manager, log)

	r := chi.NewRouter()
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/messages", h.Send)
			r.Post("/switch", h.Switch)
		})
	})
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/sessions", model.CreateSessionRequest{Language: "en"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp model.CreateSessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.SessionID
}

func TestSessionLifecycle(t *testing.T) {
	handler := newSessionRouter(t, nil)
	sessionID := createSession(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/sessions/"+sessionID+"/messages", model.SendMessageRequest{Content: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sendResp model.SendMessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sendResp))
	assert.Equal(t, "ack", sendResp.Message.Content)
	assert.Equal(t, model.ChannelNormal, sendResp.ActiveChannel)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSend_AllChannelsExhaustedReturns503(t *testing.T) {
	handler := newSessionRouter(t, channel.ErrUnavailable)
	sessionID := createSession(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/sessions/"+sessionID+"/messages", model.SendMessageRequest{Content: "anyone?"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Error             string `json:"error"`
		Message           string `json:"message"`
		RetryAfterSeconds int    `json:"retry_after_seconds"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "all channels exhausted", body.Error)
	assert.NotEmpty(t, body.Message)
	assert.Equal(t, 300, body.RetryAfterSeconds)
}

func TestSend_RejectsInvalidInput(t *testing.T) {
	handler := newSessionRouter(t, nil)
	sessionID := createSession(t, handler)

	// Malformed session ID fails validation before reaching the manager.
	rec := doJSON(t, handler, http.MethodPost, "/sessions/not-a-uuid/messages", model.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty content is rejected.
	rec = doJSON(t, handler, http.MethodPost, "/sessions/"+sessionID+"/messages", model.SendMessageRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwitch_ManualSwitch(t *testing.T) {
	handler := newSessionRouter(t, nil)
	sessionID := createSession(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/sessions/"+sessionID+"/switch", model.SwitchChannelRequest{Target: model.ChannelHuman})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.SwitchChannelResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.ChannelHuman, resp.ActiveChannel)

	rec = doJSON(t, handler, http.MethodPost, "/sessions/"+sessionID+"/switch", model.SwitchChannelRequest{Target: "smoke_signals"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_RejectsBadLanguageTag(t *testing.T) {
	handler := newSessionRouter(t, nil)

	rec := doJSON(t, handler, http.MethodPost, "/sessions", model.CreateSessionRequest{Language: "not a tag!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
