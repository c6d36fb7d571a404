package conversation

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// wireMessage is the on-disk form of a Message.
type wireMessage struct {
	Role    string `json:"role" jsonschema:"enum=system,enum=human,enum=ai"`
	Message string `json:"message" jsonschema:"minLength=1"`
	EtlTime string `json:"etl_time" jsonschema:"pattern=^\\d{4}-\\d{2}-\\d{2}T\\d{2}:\\d{2}:\\d{2}\\.\\d{3}Z$"`
}

type wireHistory struct {
	Data []wireMessage `json:"data" jsonschema:"minItems=1"`
}

var (
	wireSchemaOnce sync.Once
	wireSchema     *gojsonschema.Schema
	wireSchemaErr  error
)

// WireSchema returns the JSON schema of the persisted chat history blob.
func WireSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&wireHistory{})
	// gojsonschema does not know the 2020-12 draft URI, the keywords we use are draft-07 compatible.
	schema.Version = ""
	return schema
}

func compiledWireSchema() (*gojsonschema.Schema, error) {
	wireSchemaOnce.Do(func() {
		b, err := json.Marshal(WireSchema())
		if err != nil {
			wireSchemaErr = errors.Wrap(err, "could not marshal chat history schema")
			return
		}
		wireSchema, wireSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		if wireSchemaErr != nil {
			wireSchemaErr = errors.Wrap(wireSchemaErr, "could not compile chat history schema")
		}
	})
	return wireSchema, wireSchemaErr
}

// ToWire serializes messages into the {"data": [...]} blob format.
func ToWire(messages Conversation) ([]byte, error) {
	if len(messages) == 0 {
		return nil, &ValidationError{
			Field:  "data",
			Reason: "chat history must contain at least one message",
		}
	}

	h := wireHistory{Data: make([]wireMessage, 0, len(messages))}
	for _, m := range messages {
		if m.IsZero() {
			return nil, &ValidationError{Field: "message", Reason: "uninitialized message"}
		}
		h.Data = append(h.Data, wireMessage{
			Role:    string(m.Role()),
			Message: m.Text(),
			EtlTime: m.Timestamp(),
		})
	}

	return json.Marshal(h)
}

// FromWire parses and validates a chat history blob.
func FromWire(blob []byte) (History, error) {
	schema, err := compiledWireSchema()
	if err != nil {
		return History{}, err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(blob))
	if err != nil {
		return History{}, &ValidationError{
			Field:  "data",
			Reason: "malformed JSON: " + err.Error(),
		}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return History{}, &ValidationError{
			Field:  "data",
			Reason: strings.Join(reasons, "; "),
		}
	}

	var h wireHistory
	if err := json.Unmarshal(blob, &h); err != nil {
		return History{}, &ValidationError{
			Field:  "data",
			Reason: "malformed JSON: " + err.Error(),
		}
	}

	messages := make([]Message, 0, len(h.Data))
	for _, wm := range h.Data {
		role, err := ParseRole(wm.Role)
		if err != nil {
			return History{}, err
		}
		m, err := NewMessage(role, wm.Message, wm.EtlTime)
		if err != nil {
			return History{}, err
		}
		messages = append(messages, m)
	}

	return NewHistory(messages...)
}
