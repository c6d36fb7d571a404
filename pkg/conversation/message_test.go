package conversation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_Valid(t *testing.T) {
	m, err := NewMessage(RoleHuman, "Help me to find the answer of 2 + 2", "2024-10-18T08:10:19.192Z")
	require.NoError(t, err)

	assert.Equal(t, RoleHuman, m.Role())
	assert.Equal(t, "Help me to find the answer of 2 + 2", m.Text())
	assert.Equal(t, "2024-10-18T08:10:19.192Z", m.Timestamp())
}

func TestNewMessage_RejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name      string
		role      Role
		text      string
		timestamp string
		field     string
	}{
		{"unknown role", Role("bot"), "hi", "2024-01-01T00:00:00.000Z", "role"},
		{"assistant is not a role", Role("assistant"), "hi", "2024-01-01T00:00:00.000Z", "role"},
		{"empty text", RoleAI, "", "2024-01-01T00:00:00.000Z", "message"},
		{"latin-1 text", RoleHuman, "caf\xe9", "2024-01-01T00:00:00.000Z", "message"},
		{"truncated rune", RoleAI, "\xe2\x9c", "2024-01-01T00:00:00.000Z", "message"},
		{"missing millis", RoleAI, "hi", "2024-01-01T00:00:00Z", "etl_time"},
		{"microseconds", RoleAI, "hi", "2024-01-01T00:00:00.000000Z", "etl_time"},
		{"offset instead of Z", RoleAI, "hi", "2024-01-01T00:00:00.000+00:00", "etl_time"},
		{"date only", RoleAI, "hi", "2024-01-01", "etl_time"},
		{"trailing garbage", RoleAI, "hi", "2024-01-01T00:00:00.000Zx", "etl_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMessage(tt.role, tt.text, tt.timestamp)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("ai")
	require.NoError(t, err)
	assert.Equal(t, RoleAI, r)

	_, err = ParseRole("assistant")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)
	assert.Equal(t, "assistant", verr.Value)
}

func TestNewMessageAt_FormatsUTCMillis(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2024, 10, 18, 10, 10, 11, 9_876_543, loc)

	m, err := NewMessageAt(RoleSystem, "You are a helpful assistant", ts)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-18T08:10:11.009Z", m.Timestamp())
}

func TestMessage_StructuralEquality(t *testing.T) {
	a, err := NewMessage(RoleAI, "It is 4", "2024-10-18T08:11:11.007Z")
	require.NoError(t, err)
	b, err := NewMessage(RoleAI, "It is 4", "2024-10-18T08:11:11.007Z")
	require.NoError(t, err)
	c, err := NewMessage(RoleAI, "It is 4", "2024-10-18T08:11:11.008Z")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, NewConversation(a).Contains(b))
	assert.False(t, NewConversation(a).Contains(c))
}

func TestNewHistory_RejectsEmpty(t *testing.T) {
	_, err := NewHistory()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "data", verr.Field)
}

func TestConversation_AppendDoesNotAlias(t *testing.T) {
	m1 := mustMessage(t, RoleHuman, "one", "2024-01-01T00:00:00.000Z")
	m2 := mustMessage(t, RoleAI, "two", "2024-01-01T00:00:01.000Z")
	m3 := mustMessage(t, RoleAI, "three", "2024-01-01T00:00:02.000Z")

	base := make(Conversation, 0, 10)
	base = append(base, m1)

	left := base.Append(m2)
	right := base.Append(m3)

	assert.Equal(t, Conversation{m1, m2}, left)
	assert.Equal(t, Conversation{m1, m3}, right)
	assert.Len(t, base, 1)
}

func TestConversation_Tail(t *testing.T) {
	c := NewConversation(
		mustMessage(t, RoleSystem, "sys", "2024-01-01T00:00:00.000Z"),
		mustMessage(t, RoleHuman, "q", "2024-01-01T00:00:01.000Z"),
		mustMessage(t, RoleAI, "a", "2024-01-01T00:00:02.000Z"),
	)

	assert.Equal(t, c, c.Tail(0))
	assert.Equal(t, c, c.Tail(5))
	assert.Equal(t, c[1:], c.Tail(2))
}

func TestHistory_MergeAppendsOnlyNewMessages(t *testing.T) {
	sys := mustMessage(t, RoleSystem, "You are a helpful assistant", "2024-10-18T08:10:11.009Z")
	human1 := mustMessage(t, RoleHuman, "Help me to find the answer of 2 + 2", "2024-10-18T08:10:19.192Z")
	ai1 := mustMessage(t, RoleAI, "It is 4", "2024-10-18T08:11:11.007Z")
	human2 := mustMessage(t, RoleHuman, "And 3 + 3?", "2024-10-18T08:12:00.000Z")
	ai2 := mustMessage(t, RoleAI, "It is 6", "2024-10-18T08:12:01.500Z")

	h, err := NewHistory(sys, human1, ai1)
	require.NoError(t, err)

	merged := h.Merge(NewConversation(ai1, human2, ai2, human2))
	assert.Equal(t, Conversation{sys, human1, ai1, human2, ai2}, merged.Messages())

	again := merged.Merge(NewConversation(human2, ai2))
	assert.Equal(t, merged.Messages(), again.Messages())
}

func mustMessage(t *testing.T, role Role, text string, ts string) Message {
	t.Helper()
	m, err := NewMessage(role, text, ts)
	require.NoError(t, err)
	return m
}
