package store

import (
	"context"
	"fmt"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HistoryStore is what the conversation graph needs from persistence.
type HistoryStore interface {
	Retrieve(ctx context.Context, userID string) (conversation.History, error)
	Upload(ctx context.Context, userID string, messages conversation.Conversation) error
}

// ConversationStore keeps one chat history blob per user, under "{user_id}/chat.json".
//
// The store does no locking: two sessions for the same user race on the
// read-merge-write in Upload and the last writer wins.
type ConversationStore struct {
	blobs         BlobStore
	retrieveLimit int
	log           zerolog.Logger
}

var _ HistoryStore = (*ConversationStore)(nil)

type ConversationStoreOption func(*ConversationStore)

// WithRetrieveLimit caps Retrieve to the last n messages. n <= 0 means no cap.
func WithRetrieveLimit(n int) ConversationStoreOption {
	return func(s *ConversationStore) {
		s.retrieveLimit = n
	}
}

func WithLogger(logger zerolog.Logger) ConversationStoreOption {
	return func(s *ConversationStore) {
		s.log = logger
	}
}

func NewConversationStore(blobs BlobStore, options ...ConversationStoreOption) *ConversationStore {
	ret := &ConversationStore{
		blobs: blobs,
		log:   log.Logger,
	}
	for _, o := range options {
		o(ret)
	}
	ret.log = ret.log.With().Str("component", "conversation-store").Logger()
	return ret
}

func Key(userID string) string {
	return fmt.Sprintf("%s/chat.json", userID)
}

// Retrieve loads the user's history with a single read.
// It returns ErrNotFound when nothing is stored, and an *IOError wrapping
// ErrCorruptHistory when the stored blob does not validate.
func (s *ConversationStore) Retrieve(ctx context.Context, userID string) (conversation.History, error) {
	h, err := s.load(ctx, userID)
	if err != nil {
		return conversation.History{}, err
	}

	if s.retrieveLimit > 0 && h.Len() > s.retrieveLimit {
		h, err = conversation.NewHistory(h.Messages().Tail(s.retrieveLimit)...)
		if err != nil {
			return conversation.History{}, err
		}
	}

	s.log.Info().Str("user_id", userID).Int("messages", h.Len()).Msg("Retrieved chat history")
	return h, nil
}

func (s *ConversationStore) load(ctx context.Context, userID string) (conversation.History, error) {
	key := Key(userID)
	b, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.log.Info().Str("user_id", userID).Msg("No chat history found")
			return conversation.History{}, ErrNotFound
		}
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to retrieve chat history")
		return conversation.History{}, &IOError{Op: "retrieve", Key: key, Err: err}
	}

	h, err := conversation.FromWire(b)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Stored chat history is corrupt")
		return conversation.History{}, &IOError{Op: "retrieve", Key: key, Err: &corruptError{cause: err}}
	}
	return h, nil
}

// Upload merges messages into the stored history and writes it back with a
// single put. Messages already present (same role, text and timestamp) are
// skipped. Timestamps are never reassigned.
func (s *ConversationStore) Upload(ctx context.Context, userID string, messages conversation.Conversation) error {
	if len(messages) == 0 {
		return &conversation.ValidationError{
			Field:  "data",
			Reason: "chat history must contain at least one message",
		}
	}
	key := Key(userID)

	var full conversation.Conversation
	existing, err := s.load(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		full = conversation.Dedup(messages)
	case err != nil:
		// never overwrite a history we could not read
		return err
	default:
		s.log.Info().Str("user_id", userID).Msg("User already has previous chat history")
		full = existing.Merge(messages).Messages()
	}

	b, err := conversation.ToWire(full)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, key, b); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to upload chat history")
		return &IOError{Op: "upload", Key: key, Err: err}
	}

	s.log.Info().
		Str("user_id", userID).
		Str("key", key).
		Int("messages", len(full)).
		Msg("Uploaded chat history")
	return nil
}

// Delete removes the user's history and reports whether that worked.
func (s *ConversationStore) Delete(ctx context.Context, userID string) bool {
	key := Key(userID)
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete chat history")
		return false
	}
	s.log.Info().Str("user_id", userID).Str("key", key).Msg("Deleted chat history")
	return true
}

func (s *ConversationStore) ToWire(messages conversation.Conversation) ([]byte, error) {
	return conversation.ToWire(messages)
}

func (s *ConversationStore) FromWire(blob []byte) (conversation.History, error) {
	return conversation.FromWire(blob)
}
