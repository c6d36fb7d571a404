package middleware

import (
	"context"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
)

// HandlerFunc produces the reply for a conversation.
type HandlerFunc func(ctx context.Context, messages conversation.Conversation) (conversation.Message, error)

// Middleware wraps a HandlerFunc with additional functionality.
// Middleware are applied in order: Chain(m1, m2, m3) results in m1(m2(m3(handler))).
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes multiple middleware into a single HandlerFunc.
func Chain(handler HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func engineHandlerFunc(e engine.Engine) HandlerFunc {
	return e.RunInference
}

// EngineWithMiddleware wraps an Engine with a middleware chain.
type EngineWithMiddleware struct {
	handler HandlerFunc
}

var _ engine.Engine = (*EngineWithMiddleware)(nil)

func NewEngineWithMiddleware(e engine.Engine, middlewares ...Middleware) *EngineWithMiddleware {
	return &EngineWithMiddleware{
		handler: Chain(engineHandlerFunc(e), middlewares...),
	}
}

func (e *EngineWithMiddleware) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
	return e.handler(ctx, messages)
}

type modelTagKey struct{}

// WithModelTag records the "provider|model" tag on the context for the
// middleware further down the chain.
func WithModelTag(tag string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
			return next(context.WithValue(ctx, modelTagKey{}, tag), messages)
		}
	}
}

func ModelTagFromContext(ctx context.Context) string {
	v, _ := ctx.Value(modelTagKey{}).(string)
	return v
}
