package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// TimestampLayout is the literal etl_time layout: UTC, millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleHuman, RoleAI:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", &ValidationError{
			Field:  "role",
			Value:  s,
			Reason: "must be one of system, human, ai",
		}
	}
	return r, nil
}

// Message is a single conversation turn. It is a value type: two messages are
// the same message iff role, text and timestamp are equal, so == works.
type Message struct {
	role      Role
	text      string
	timestamp string
}

// NewMessage validates the raw fields and builds a Message.
func NewMessage(role Role, text string, timestamp string) (Message, error) {
	if !role.IsValid() {
		return Message{}, &ValidationError{
			Field:  "role",
			Value:  string(role),
			Reason: "must be one of system, human, ai",
		}
	}
	if text == "" {
		return Message{}, &ValidationError{
			Field:  "message",
			Reason: "must not be empty",
		}
	}
	// JSON encoding replaces invalid bytes, which would break dedup on merge
	if !utf8.ValidString(text) {
		return Message{}, &ValidationError{
			Field:  "message",
			Reason: "must be valid UTF-8",
		}
	}
	if !timestampPattern.MatchString(timestamp) {
		return Message{}, &ValidationError{
			Field:  "etl_time",
			Value:  timestamp,
			Reason: "expected format YYYY-MM-DDTHH:MM:SS.sssZ",
		}
	}

	return Message{
		role:      role,
		text:      text,
		timestamp: timestamp,
	}, nil
}

// NewMessageAt stamps the message with t, converted to UTC.
func NewMessageAt(role Role, text string, t time.Time) (Message, error) {
	return NewMessage(role, text, FormatTimestamp(t))
}

func NewHumanMessage(text string, t time.Time) (Message, error) {
	return NewMessageAt(RoleHuman, text, t)
}

func NewAIMessage(text string, t time.Time) (Message, error) {
	return NewMessageAt(RoleAI, text, t)
}

func NewSystemMessage(text string, t time.Time) (Message, error) {
	return NewMessageAt(RoleSystem, text, t)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func (m Message) Role() Role {
	return m.role
}

func (m Message) Text() string {
	return m.text
}

func (m Message) Timestamp() string {
	return m.timestamp
}

// IsZero reports whether m was never constructed.
func (m Message) IsZero() bool {
	return m == Message{}
}

func (m Message) Equal(other Message) bool {
	return m == other
}

func (m Message) String() string {
	return m.text
}

func (m Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.role, strings.TrimRight(m.text, "\n"))
}
