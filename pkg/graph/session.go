package graph

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/events"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionNotStarted = errors.New("session has not been started")
	ErrSessionStarted    = errors.New("session was already started")
)

var stopWords = map[string]bool{"q": true, "quit": true, "exit": true}

// IsStopWord reports whether input ends an interactive session.
func IsStopWord(input string) bool {
	return stopWords[strings.ToLower(strings.TrimSpace(input))]
}

// Checkpoint is the state of a suspended session.
type Checkpoint struct {
	Messages conversation.Conversation
	// Next is the node execution resumes at.
	Next string
}

func (c *Checkpoint) clone() *Checkpoint {
	return &Checkpoint{Messages: c.Messages.Clone(), Next: c.Next}
}

// Session is an interactive conversation that suspends after every
// persisted reply and resumes at the router with the next user message.
// A failed turn leaves the session at its previous checkpoint.
type Session struct {
	ID string

	g          *Graph
	mu         sync.Mutex
	checkpoint *Checkpoint
	done       bool
}

// NewSession creates a session. An empty id gets a random one.
func (g *Graph) NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{ID: id, g: g}
}

// Start runs the first turn from retrieve_chat_history.
func (s *Session) Start(ctx context.Context, input conversation.Message) (conversation.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return conversation.Message{}, ErrSessionClosed
	}
	if s.checkpoint != nil {
		return conversation.Message{}, ErrSessionStarted
	}
	if input.IsZero() {
		return conversation.Message{}, &conversation.ValidationError{Field: "user_query", Reason: "input is empty"}
	}

	state, err := s.g.Run(ctx, &State{Input: conversation.NewConversation(input)}, NodeRetrieve)
	if err != nil {
		return conversation.Message{}, err
	}
	return s.suspend(state)
}

// Resume handles the next user message. A stop word closes the session
// without running any node; anything else is appended and execution
// continues at the router.
func (s *Session) Resume(ctx context.Context, input conversation.Message) (conversation.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return conversation.Message{}, ErrSessionClosed
	}
	if s.checkpoint == nil {
		return conversation.Message{}, ErrSessionNotStarted
	}

	if IsStopWord(input.Text()) {
		s.done = true
		s.g.publish(events.NewSessionEndEvent(s.g.metadata(""), strings.TrimSpace(input.Text())))
		s.g.logger.Info().Str("session_id", s.ID).Msg("session ended")
		return conversation.Message{}, nil
	}
	if input.IsZero() {
		return conversation.Message{}, &conversation.ValidationError{Field: "user_query", Reason: "input is empty"}
	}

	state := &State{Messages: s.checkpoint.Messages.Append(input)}
	state, err := s.g.Run(ctx, state, s.checkpoint.Next)
	if err != nil {
		return conversation.Message{}, err
	}
	return s.suspend(state)
}

func (s *Session) suspend(state *State) (conversation.Message, error) {
	reply, ok := state.Reply()
	if !ok {
		return conversation.Message{}, errors.New("turn finished without a reply")
	}
	s.checkpoint = &Checkpoint{Messages: state.Messages, Next: NodeRouter}
	s.g.publish(events.NewSuspendEvent(s.g.metadata(""), NodeRouter))
	return reply, nil
}

// Checkpoint returns a copy of the suspended state, or nil before Start.
func (s *Session) Checkpoint() *Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpoint == nil {
		return nil
	}
	return s.checkpoint.clone()
}

func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
