package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	reply Reply
	err   error

	calls       int
	lastMessage string
	lastConvID  *int64
}

func (s *fakeSender) Send(_ context.Context, _ string, message string, conversationID *int64) (Reply, error) {
	s.calls++
	s.lastMessage = message
	s.lastConvID = conversationID
	return s.reply, s.err
}

func TestSendFirstTurn(t *testing.T) {
	sender := &fakeSender{reply: Reply{ConversationID: 42, Text: "Hello! How can I help?"}}
	session := NewSession("user-1", sender)

	assert.False(t, session.Active())
	session.Send(context.Background(), "  hi  ")

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "hi", sender.lastMessage)
	assert.Nil(t, sender.lastConvID)

	assert.True(t, session.Active())
	require.NotNil(t, session.ConversationID())
	assert.Equal(t, int64(42), *session.ConversationID())

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, RoleUser, transcript[0].Role)
	assert.Equal(t, "hi", transcript[0].Content)
	assert.Equal(t, RoleAssistant, transcript[1].Role)
	assert.NotEqual(t, transcript[0].ID, transcript[1].ID)
}

func TestSendReusesConversationID(t *testing.T) {
	sender := &fakeSender{reply: Reply{ConversationID: 7, Text: "ok"}}
	session := NewSession("user-1", sender)

	session.Send(context.Background(), "first")
	session.Send(context.Background(), "second")

	require.NotNil(t, sender.lastConvID)
	assert.Equal(t, int64(7), *sender.lastConvID)
}

func TestSendEmptyMessageIgnored(t *testing.T) {
	sender := &fakeSender{}
	session := NewSession("user-1", sender)

	session.Send(context.Background(), "   ")
	assert.Zero(t, sender.calls)
	assert.Empty(t, session.Transcript())
}

func TestSendErrorKeepsUserMessage(t *testing.T) {
	sender := &fakeSender{err: errors.New("rate limited")}
	session := NewSession("user-1", sender)

	session.Send(context.Background(), "do something")

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, RoleUser, transcript[0].Role)
	assert.Equal(t, "do something", transcript[0].Content)
	assert.Equal(t, RoleAssistant, transcript[1].Role)
	assert.Equal(t, "Error: rate limited", transcript[1].Content)
	assert.False(t, session.Active())
	assert.False(t, session.Busy())
}

func TestClearReturnsToIdle(t *testing.T) {
	sender := &fakeSender{reply: Reply{ConversationID: 3, Text: "sure"}}
	session := NewSession("user-1", sender)

	session.Send(context.Background(), "hello")
	require.True(t, session.Active())

	session.Clear()
	assert.False(t, session.Active())
	assert.Empty(t, session.Transcript())
	assert.Nil(t, session.ConversationID())
}

func TestMutationHandlerFires(t *testing.T) {
	sender := &fakeSender{reply: Reply{ConversationID: 1, Text: `I added "Buy milk" to your list.`}}
	fired := make(chan struct{}, 1)
	session := NewSession("user-1", sender,
		WithSettleDelay(10*time.Millisecond),
		WithMutationHandler(func() { fired <- struct{}{} }),
	)

	session.Send(context.Background(), "add buy milk")

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("mutation handler never fired")
	}
}

func TestMutationHandlerNotFiredForPlainReply(t *testing.T) {
	sender := &fakeSender{reply: Reply{ConversationID: 1, Text: "You have 3 tasks due this week."}}
	fired := make(chan struct{}, 1)
	session := NewSession("user-1", sender,
		WithSettleDelay(10*time.Millisecond),
		WithMutationHandler(func() { fired <- struct{}{} }),
	)

	session.Send(context.Background(), "what is due?")

	select {
	case <-fired:
		t.Fatal("mutation handler fired for a read-only reply")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestImpliesMutation(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{reply: "Task [completed] for you", want: true},
		{reply: "I DELETED the old one", want: true},
		{reply: "Marked as [done]", want: true},
		{reply: "Your top priority is the report", want: false},
		{reply: "", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, impliesMutation(tt.reply), tt.reply)
	}
}
