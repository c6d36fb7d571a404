package chat

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/pkg/errors"
)

// MockEngine replies with a scripted list of texts in round-robin order.
// Replies are stamped with Clock. Every received conversation is recorded.
type MockEngine struct {
	replies []string
	// Err is returned instead of a reply when set.
	Err   error
	Clock func() time.Time

	mu    sync.Mutex
	index int
	calls []conversation.Conversation
}

var _ engine.Engine = &MockEngine{}

func NewMockEngine(replies ...string) *MockEngine {
	return &MockEngine{
		replies: replies,
		Clock:   time.Now,
	}
}

func (m *MockEngine) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, messages.Clone())

	if err := ctx.Err(); err != nil {
		return conversation.Message{}, engine.NewInvocationError("mock", "mock", err)
	}
	if m.Err != nil {
		return conversation.Message{}, engine.NewInvocationError("mock", "mock", m.Err)
	}
	if len(m.replies) == 0 {
		return conversation.Message{}, engine.NewInvocationError("mock", "mock", errors.New("no scripted replies"))
	}

	text := m.replies[m.index]
	m.index = (m.index + 1) % len(m.replies)

	return conversation.NewMessageAt(conversation.RoleAI, text, m.Clock())
}

// Calls returns a copy of every conversation the engine received.
func (m *MockEngine) Calls() []conversation.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]conversation.Conversation, len(m.calls))
	copy(ret, m.calls)
	return ret
}
