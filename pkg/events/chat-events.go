package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeNodeStart and EventTypeNodeEnd bracket a single graph node.
	EventTypeNodeStart EventType = "node-start"
	EventTypeNodeEnd   EventType = "node-end"
	// EventTypeReply carries the text the engine produced for a turn.
	EventTypeReply EventType = "reply"
	// EventTypeSuspend is emitted when an interactive session waits for input.
	EventTypeSuspend EventType = "suspend"
	// EventTypeSessionEnd is emitted when a session sees a stop word.
	EventTypeSessionEnd EventType = "session-end"
	EventTypeError      EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventMetadata struct {
	ID       uuid.UUID `json:"message_id" yaml:"message_id"`
	ThreadID string    `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	UserID   string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Node     string    `json:"node,omitempty" yaml:"node,omitempty"`
	// Model is the "provider|model" tag of the engine in use.
	Model string    `json:"model,omitempty" yaml:"model,omitempty"`
	Time  time.Time `json:"time" yaml:"time"`
}

// NewEventMetadata fills in a fresh message ID and the current time.
func NewEventMetadata(threadID, userID, node string) EventMetadata {
	return EventMetadata{
		ID:       uuid.New(),
		ThreadID: threadID,
		UserID:   userID,
		Node:     node,
		Time:     time.Now().UTC(),
	}
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.ThreadID != "" {
		e.Str("thread_id", em.ThreadID)
	}
	if em.UserID != "" {
		e.Str("user_id", em.UserID)
	}
	if em.Node != "" {
		e.Str("node", em.Node)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// raw JSON when the event was decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventNodeStart struct {
	EventImpl
	// MessageCount is the size of the working conversation on entry.
	MessageCount int `json:"message_count"`
}

func NewNodeStartEvent(metadata EventMetadata, messageCount int) *EventNodeStart {
	return &EventNodeStart{
		EventImpl:    EventImpl{Type_: EventTypeNodeStart, Metadata_: metadata},
		MessageCount: messageCount,
	}
}

type EventNodeEnd struct {
	EventImpl
	MessageCount int `json:"message_count"`
	// Next is the node the graph transitions to, empty at END.
	Next       string `json:"next,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func NewNodeEndEvent(metadata EventMetadata, messageCount int, next string, d time.Duration) *EventNodeEnd {
	return &EventNodeEnd{
		EventImpl:    EventImpl{Type_: EventTypeNodeEnd, Metadata_: metadata},
		MessageCount: messageCount,
		Next:         next,
		DurationMs:   d.Milliseconds(),
	}
}

type EventReply struct {
	EventImpl
	Text      string `json:"text"`
	Timestamp string `json:"etl_time"`
}

func NewReplyEvent(metadata EventMetadata, text, timestamp string) *EventReply {
	return &EventReply{
		EventImpl: EventImpl{Type_: EventTypeReply, Metadata_: metadata},
		Text:      text,
		Timestamp: timestamp,
	}
}

type EventSuspend struct {
	EventImpl
	Next string `json:"next"`
}

func NewSuspendEvent(metadata EventMetadata, next string) *EventSuspend {
	return &EventSuspend{
		EventImpl: EventImpl{Type_: EventTypeSuspend, Metadata_: metadata},
		Next:      next,
	}
}

type EventSessionEnd struct {
	EventImpl
	StopWord string `json:"stop_word"`
}

func NewSessionEndEvent(metadata EventMetadata, stopWord string) *EventSessionEnd {
	return &EventSessionEnd{
		EventImpl: EventImpl{Type_: EventTypeSessionEnd, Metadata_: metadata},
		StopWord:  stopWord,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

var (
	_ Event = &EventNodeStart{}
	_ Event = &EventNodeEnd{}
	_ Event = &EventReply{}
	_ Event = &EventSuspend{}
	_ Event = &EventSessionEnd{}
	_ Event = &EventError{}
)

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}

	return ret, true
}

// NewEventFromJson decodes a serialized event into its concrete type.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("empty event payload")
	}

	e.payload = b

	var (
		ret Event
		ok  bool
	)
	switch e.Type_ {
	case EventTypeNodeStart:
		ret, ok = decodeAs[EventNodeStart](e)
	case EventTypeNodeEnd:
		ret, ok = decodeAs[EventNodeEnd](e)
	case EventTypeReply:
		ret, ok = decodeAs[EventReply](e)
	case EventTypeSuspend:
		ret, ok = decodeAs[EventSuspend](e)
	case EventTypeSessionEnd:
		ret, ok = decodeAs[EventSessionEnd](e)
	case EventTypeError:
		ret, ok = decodeAs[EventError](e)
	default:
		return e, nil
	}
	if !ok {
		return nil, errors.Errorf("could not cast event to %s", e.Type_)
	}
	return ret, nil
}

type payloadSetter interface {
	setPayload([]byte)
}

func (e *EventImpl) setPayload(b []byte) {
	e.payload = b
}

func decodeAs[T any, PT interface {
	*T
	Event
	payloadSetter
}](e *EventImpl) (Event, bool) {
	ret, ok := ToTypedEvent[T](e)
	if !ok || ret == nil {
		return nil, false
	}
	p := PT(ret)
	p.setPayload(e.payload)
	return p, true
}
