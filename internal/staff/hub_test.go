package staff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

func TestReplyHub_DeliversReply(t *testing.T) {
	hub := NewReplyHub()
	replies := hub.Open("sess-1")
	defer hub.Close("sess-1")

	go func() {
		hub.PostReply(model.Message{
			SessionID: "sess-1",
			Content:   "hello from staff",
			Metadata:  model.MessageMetadata{StaffID: "s1"},
		})
	}()

	select {
	case reply := <-replies:
		assert.Equal(t, "hello from staff", reply.Content)
		assert.Equal(t, "s1", reply.Metadata.StaffID)
	case <-time.After(time.Second):
		t.Fatal("reply never arrived")
	}
}

func TestReplyHub_BuffersReplyPostedBeforeWait(t *testing.T) {
	hub := NewReplyHub()
	replies := hub.Open("sess-1")
	defer hub.Close("sess-1")

	require.True(t, hub.PostReply(model.Message{SessionID: "sess-1", Content: "early"}))

	select {
	case reply := <-replies:
		assert.Equal(t, "early", reply.Content)
	default:
		t.Fatal("buffered reply missing")
	}
}

func TestReplyHub_ReopenReusesMailbox(t *testing.T) {
	hub := NewReplyHub()
	first := hub.Open("sess-1")
	second := hub.Open("sess-1")
	assert.Equal(t, first, second)
}

func TestReplyHub_PostWithoutWaiter(t *testing.T) {
	hub := NewReplyHub()
	assert.False(t, hub.PostReply(model.Message{SessionID: "nobody"}))
}

func TestReplyHub_PostAfterCloseIsDropped(t *testing.T) {
	hub := NewReplyHub()
	hub.Open("sess-1")
	hub.Close("sess-1")
	assert.False(t, hub.PostReply(model.Message{SessionID: "sess-1"}))
}
