// Package graph runs the conversation pipeline: load the user's history,
// generate a reply, route, and persist the result.
//
//	START -> retrieve_chat_history -> chatbot -> (router) -> saving_chat_history -> END
//	                                     ^           |
//	                                     +-----------+  last message is human
package graph

import (
	"context"
	"strconv"
	"time"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/events"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/go-go-golems/chatgraph/pkg/inference/middleware"
	"github.com/go-go-golems/chatgraph/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	NodeRetrieve = "retrieve_chat_history"
	NodeChatbot  = "chatbot"
	NodeSave     = "saving_chat_history"
	// NodeRouter is the conditional edge leaving chatbot. Suspended sessions
	// resume here.
	NodeRouter = "router"
	// End is the terminal pseudo-node.
	End = ""
)

// DefaultRecursionLimit caps the node transitions of a single Run.
const DefaultRecursionLimit = 25

var ErrRecursionLimit = errors.New("graph recursion limit reached")

// State is the working data threaded through the nodes.
type State struct {
	// Input is the pending user query consumed by retrieve_chat_history.
	Input    conversation.Conversation
	Messages conversation.Conversation
}

func (s *State) clone() *State {
	return &State{Input: s.Input.Clone(), Messages: s.Messages.Clone()}
}

// Reply returns the last ai message, if any.
func (s *State) Reply() (conversation.Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role() == conversation.RoleAI {
			return s.Messages[i], true
		}
	}
	return conversation.Message{}, false
}

// Route is the conditional edge after chatbot: a trailing human message
// goes back to chatbot, anything else is saved.
func Route(s *State) string {
	last, ok := s.Messages.Last()
	if ok && last.Role() == conversation.RoleHuman {
		return NodeChatbot
	}
	return NodeSave
}

type Graph struct {
	store          store.HistoryStore
	engine         engine.Engine
	userID         string
	threadID       string
	systemPrompt   string
	sink           events.EventSink
	clock          func() time.Time
	logger         zerolog.Logger
	recursionLimit int
	model          string
}

type Option func(*Graph)

func WithSink(sink events.EventSink) Option {
	return func(g *Graph) { g.sink = sink }
}

// WithClock sets the time source used to stamp replies and the system message.
func WithClock(clock func() time.Time) Option {
	return func(g *Graph) { g.clock = clock }
}

func WithSystemPrompt(prompt string) Option {
	return func(g *Graph) { g.systemPrompt = prompt }
}

func WithThreadID(threadID int) Option {
	return func(g *Graph) {
		if threadID != 0 {
			g.threadID = strconv.Itoa(threadID)
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

func WithRecursionLimit(n int) Option {
	return func(g *Graph) { g.recursionLimit = n }
}

// WithModelTag is only used to annotate events.
func WithModelTag(tag string) Option {
	return func(g *Graph) { g.model = tag }
}

func New(st store.HistoryStore, e engine.Engine, userID string, options ...Option) (*Graph, error) {
	if st == nil {
		return nil, errors.New("graph store is nil")
	}
	if e == nil {
		return nil, errors.New("graph engine is nil")
	}
	if userID == "" {
		return nil, errors.New("user id is empty")
	}

	g := &Graph{
		store:          st,
		userID:         userID,
		sink:           events.NewNullSink(),
		clock:          time.Now,
		logger:         log.Logger,
		recursionLimit: DefaultRecursionLimit,
	}
	for _, o := range options {
		if o != nil {
			o(g)
		}
	}
	g.logger = g.logger.With().
		Str("component", "graph").
		Str("user_id", userID).
		Str("thread_id", g.threadID).
		Logger()
	g.engine = middleware.NewEngineWithMiddleware(e, middleware.NewSystemPromptMiddleware(g.systemPrompt, g.clock))
	return g, nil
}

func (g *Graph) UserID() string {
	return g.userID
}

func (g *Graph) metadata(node string) events.EventMetadata {
	md := events.NewEventMetadata(g.threadID, g.userID, node)
	md.Model = g.model
	return md
}

func (g *Graph) publish(e events.Event) {
	if err := g.sink.PublishEvent(e); err != nil {
		g.logger.Warn().Err(err).Str("event_type", string(e.Type())).Msg("failed to publish event")
	}
}

// Invoke runs one full pass from retrieve_chat_history to END.
func (g *Graph) Invoke(ctx context.Context, input conversation.Conversation) (*State, error) {
	if len(input) == 0 {
		return nil, &conversation.ValidationError{Field: "user_query", Reason: "input must contain at least one message"}
	}
	return g.Run(ctx, &State{Input: input.Clone()}, NodeRetrieve)
}

// Run executes nodes starting at from until END. It works on a copy of
// state, so on error the caller's state is untouched.
func (g *Graph) Run(ctx context.Context, state *State, from string) (*State, error) {
	if state == nil {
		state = &State{}
	}
	s := state.clone()

	node := from
	for steps := 0; node != End; steps++ {
		if steps >= g.recursionLimit {
			return nil, errors.Wrapf(ErrRecursionLimit, "after %d steps at node %s", steps, node)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := g.step(ctx, s, node)
		if err != nil {
			g.publish(events.NewErrorEvent(g.metadata(node), err))
			return nil, err
		}
		node = next
	}
	return s, nil
}

func (g *Graph) step(ctx context.Context, s *State, node string) (string, error) {
	if node == NodeRouter {
		next := Route(s)
		g.logger.Debug().Str("next", next).Msg("router decision")
		return next, nil
	}

	start := time.Now()
	g.publish(events.NewNodeStartEvent(g.metadata(node), len(s.Messages)))
	g.logger.Debug().Str("node", node).Int("message_count", len(s.Messages)).Msg("node start")

	var (
		next string
		err  error
	)
	switch node {
	case NodeRetrieve:
		err = g.retrieveChatHistory(ctx, s)
		next = NodeChatbot
	case NodeChatbot:
		err = g.chatbot(ctx, s)
		next = NodeRouter
	case NodeSave:
		err = g.savingChatHistory(ctx, s)
		next = End
	default:
		err = errors.Errorf("unknown node %q", node)
	}
	if err != nil {
		return "", err
	}

	g.publish(events.NewNodeEndEvent(g.metadata(node), len(s.Messages), next, time.Since(start)))
	return next, nil
}
