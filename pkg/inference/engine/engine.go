package engine

import (
	"context"
	"fmt"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
)

// Engine produces one assistant reply for a conversation. The conversation
// starts with the system instruction followed by the history and the
// pending human message. The returned message has role ai. Engines do not
// retry; every provider failure comes back as an *InvocationError.
type Engine interface {
	RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Message, error)
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, messages conversation.Conversation) (conversation.Message, error)

func (f EngineFunc) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
	return f(ctx, messages)
}

// InvocationError wraps any failure returned by a model provider.
type InvocationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s|%s: inference failed: %v", e.Provider, e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func NewInvocationError(provider, model string, err error) *InvocationError {
	return &InvocationError{Provider: provider, Model: model, Err: err}
}
