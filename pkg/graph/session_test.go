package graph

import (
	"context"
	"testing"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"q", "quit", "exit", " QUIT ", "Exit\n"} {
		assert.True(t, IsStopWord(w), w)
	}
	for _, w := range []string{"", "quit now", "bye", "qq"} {
		assert.False(t, IsStopWord(w), w)
	}
}

func TestSession_TurnsArePersistedAndResumeAtRouter(t *testing.T) {
	f := newFixture(t, "30291", "Hi there", "Fine, thanks")
	ctx := context.Background()
	s := f.graph.NewSession("")
	assert.NotEmpty(t, s.ID)
	assert.Nil(t, s.Checkpoint())

	reply, err := s.Start(ctx, mustMessage(t, conversation.RoleHuman, "Hello", "2024-05-01T10:00:00.000Z"))
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Text())
	assert.Len(t, f.stored(t, "30291"), 2)

	cp := s.Checkpoint()
	require.NotNil(t, cp)
	assert.Equal(t, NodeRouter, cp.Next)
	assert.Len(t, cp.Messages, 2)

	f.blobs.ResetCounters()
	reply, err = s.Resume(ctx, mustMessage(t, conversation.RoleHuman, "How are you?", "2024-05-01T10:00:05.000Z"))
	require.NoError(t, err)
	assert.Equal(t, "Fine, thanks", reply.Text())

	// resuming does not re-read history, only the upload merge reads
	assert.Equal(t, 1, f.blobs.Gets)
	assert.Equal(t, 1, f.blobs.Puts)
	assert.Equal(t, []string{"Hello", "Hi there", "How are you?", "Fine, thanks"}, texts(f.stored(t, "30291")))
	assert.Len(t, s.Checkpoint().Messages, 4)
}

func TestSession_StopWordEndsWithoutWrites(t *testing.T) {
	f := newFixture(t, "u1", "Hi there")
	ctx := context.Background()
	s := f.graph.NewSession("thread-1")

	_, err := s.Start(ctx, mustMessage(t, conversation.RoleHuman, "Hello", "2024-05-01T10:00:00.000Z"))
	require.NoError(t, err)
	f.blobs.ResetCounters()
	calls := len(f.engine.Calls())

	reply, err := s.Resume(ctx, mustMessage(t, conversation.RoleHuman, " Quit ", "2024-05-01T10:00:05.000Z"))
	require.NoError(t, err)
	assert.True(t, reply.IsZero())
	assert.True(t, s.Done())
	assert.Equal(t, 0, f.blobs.Gets+f.blobs.Puts+f.blobs.Deletes)
	assert.Len(t, f.engine.Calls(), calls)
	assert.Contains(t, f.sink.Types(), events.EventTypeSessionEnd)

	_, err = s.Resume(ctx, mustMessage(t, conversation.RoleHuman, "again", "2024-05-01T10:00:06.000Z"))
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Start(ctx, mustMessage(t, conversation.RoleHuman, "again", "2024-05-01T10:00:06.000Z"))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_FailedTurnKeepsCheckpoint(t *testing.T) {
	f := newFixture(t, "u1", "Hi there")
	ctx := context.Background()
	s := f.graph.NewSession("")

	_, err := s.Start(ctx, mustMessage(t, conversation.RoleHuman, "Hello", "2024-05-01T10:00:00.000Z"))
	require.NoError(t, err)
	before := s.Checkpoint()
	blobBefore, _ := f.blobs.Raw("u1/chat.json")

	f.engine.Err = errors.New("provider down")
	_, err = s.Resume(ctx, mustMessage(t, conversation.RoleHuman, "Still there?", "2024-05-01T10:00:05.000Z"))
	require.Error(t, err)

	assert.True(t, before.Messages.Equal(s.Checkpoint().Messages))
	blobAfter, _ := f.blobs.Raw("u1/chat.json")
	assert.Equal(t, blobBefore, blobAfter)
	assert.False(t, s.Done())

	// the session recovers once the provider does
	f.engine.Err = nil
	reply, err := s.Resume(ctx, mustMessage(t, conversation.RoleHuman, "Still there?", "2024-05-01T10:00:10.000Z"))
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Text())
}

func TestSession_Lifecycle(t *testing.T) {
	f := newFixture(t, "u1", "Hi there")
	ctx := context.Background()
	s := f.graph.NewSession("")

	_, err := s.Resume(ctx, mustMessage(t, conversation.RoleHuman, "Hello", "2024-05-01T10:00:00.000Z"))
	assert.ErrorIs(t, err, ErrSessionNotStarted)

	_, err = s.Start(ctx, conversation.Message{})
	var ve *conversation.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = s.Start(ctx, mustMessage(t, conversation.RoleHuman, "Hello", "2024-05-01T10:00:00.000Z"))
	require.NoError(t, err)
	_, err = s.Start(ctx, mustMessage(t, conversation.RoleHuman, "Hello", "2024-05-01T10:00:00.000Z"))
	assert.ErrorIs(t, err, ErrSessionStarted)
}
