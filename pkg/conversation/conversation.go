package conversation

import (
	"strings"
)

// Conversation is an ordered, chronological sequence of messages.
type Conversation []Message

func NewConversation(messages ...Message) Conversation {
	return append(Conversation{}, messages...)
}

// Append returns a new conversation; the receiver's backing array is never shared.
func (c Conversation) Append(messages ...Message) Conversation {
	ret := make(Conversation, 0, len(c)+len(messages))
	ret = append(ret, c...)
	return append(ret, messages...)
}

func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	return append(Conversation{}, c...)
}

// Last returns the most recently appended message.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

func (c Conversation) Contains(m Message) bool {
	for _, m_ := range c {
		if m_ == m {
			return true
		}
	}
	return false
}

// Tail returns the last n messages. n <= 0 returns the whole conversation.
func (c Conversation) Tail(n int) Conversation {
	if n <= 0 || n >= len(c) {
		return c.Clone()
	}
	return append(Conversation{}, c[len(c)-n:]...)
}

func (c Conversation) Equal(other Conversation) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

func (c Conversation) View() string {
	var sb strings.Builder
	for _, m := range c {
		sb.WriteString(m.View())
		sb.WriteString("\n")
	}
	return sb.String()
}

// History is a non-empty conversation, as held by the store.
type History struct {
	messages Conversation
}

func NewHistory(messages ...Message) (History, error) {
	if len(messages) == 0 {
		return History{}, &ValidationError{
			Field:  "data",
			Reason: "chat history must contain at least one message",
		}
	}
	return History{messages: NewConversation(messages...)}, nil
}

func (h History) Messages() Conversation {
	return h.messages.Clone()
}

func (h History) Len() int {
	return len(h.messages)
}

// Merge appends every message of incoming that is not structurally present yet,
// preserving order. Timestamps are kept as they are.
func (h History) Merge(incoming Conversation) History {
	merged := h.messages.Clone()
	for _, m := range incoming {
		if !merged.Contains(m) {
			merged = append(merged, m)
		}
	}
	return History{messages: merged}
}

// Dedup drops structural duplicates, keeping the first occurrence.
func Dedup(c Conversation) Conversation {
	ret := make(Conversation, 0, len(c))
	for _, m := range c {
		if !ret.Contains(m) {
			ret = append(ret, m)
		}
	}
	return ret
}
