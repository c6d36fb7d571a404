package middleware

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NewSystemPromptMiddleware prepends prompt as a system message to the
// conversation sent to the engine. The caller's slice is left untouched and
// the system message is never part of the reply, so it is never persisted.
// An empty prompt is a no-op.
func NewSystemPromptMiddleware(prompt string, clock func() time.Time) Middleware {
	if clock == nil {
		clock = time.Now
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
			if prompt == "" {
				return next(ctx, messages)
			}

			sys, err := conversation.NewSystemMessage(prompt, clock())
			if err != nil {
				return conversation.Message{}, errors.Wrap(err, "invalid system prompt")
			}

			log.Trace().
				Int("message_count", len(messages)).
				Str("prompt_preview", preview(prompt, 120)).
				Msg("systemprompt: prepending")

			withSystem := make(conversation.Conversation, 0, len(messages)+1)
			withSystem = append(withSystem, sys)
			withSystem = append(withSystem, messages...)
			return next(ctx, withSystem)
		}
	}
}

// preview cuts s to at most n bytes without splitting a rune.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
