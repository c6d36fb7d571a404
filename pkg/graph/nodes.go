package graph

import (
	"context"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/events"
	"github.com/go-go-golems/chatgraph/pkg/store"
	"github.com/pkg/errors"
)

// retrieveChatHistory seeds Messages with the stored history followed by
// the pending input. A missing history is an empty one.
func (g *Graph) retrieveChatHistory(ctx context.Context, s *State) error {
	h, err := g.store.Retrieve(ctx, g.userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.Messages = s.Input.Clone()
	case err != nil:
		return err
	default:
		s.Messages = h.Messages().Append(s.Input...)
	}
	s.Input = nil
	return nil
}

// chatbot asks the engine for a reply and appends it, stamped with the
// graph's clock.
func (g *Graph) chatbot(ctx context.Context, s *State) error {
	out, err := g.engine.RunInference(ctx, s.Messages)
	if err != nil {
		return err
	}
	if out.Role() != conversation.RoleAI {
		return errors.Errorf("engine returned a %s message", out.Role())
	}

	reply, err := conversation.NewMessageAt(conversation.RoleAI, out.Text(), g.clock())
	if err != nil {
		return err
	}
	s.Messages = s.Messages.Append(reply)

	g.publish(events.NewReplyEvent(g.metadata(NodeChatbot), reply.Text(), reply.Timestamp()))
	return nil
}

func (g *Graph) savingChatHistory(ctx context.Context, s *State) error {
	return g.store.Upload(ctx, g.userID, s.Messages)
}
