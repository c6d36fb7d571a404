package middleware

import (
	"context"
	"time"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLoggingMiddleware logs the size of each request and the outcome of
// the inference. Message text is only logged at trace level.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
			lg := logger
			// fall back to global if uninitialized
			if lg.GetLevel() == zerolog.NoLevel {
				lg = log.Logger
			}

			lg = lg.With().
				Str("component", "inference").
				Str("llm", ModelTagFromContext(ctx)).
				Int("message_count", len(messages)).
				Logger()

			lg.Debug().Msg("inference: starting")
			start := time.Now()

			reply, err := next(ctx, messages)
			d := time.Since(start)
			if err != nil {
				lg.Error().Err(err).Dur("duration", d).Msg("inference: failed")
				return reply, err
			}

			lg.Info().
				Dur("duration", d).
				Int("reply_len", len(reply.Text())).
				Str("etl_time", reply.Timestamp()).
				Msg("inference: completed")
			lg.Trace().Str("reply", reply.Text()).Msg("inference: reply text")
			return reply, nil
		}
	}
}
