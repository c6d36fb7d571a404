package cmds

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/graph"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/chat"
	"github.com/go-go-golems/chatgraph/pkg/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestSession(t *testing.T, engine *chat.MockEngine) (*graph.Session, *store.MemoryBlobStore) {
	t.Helper()
	blobs := store.NewMemoryBlobStore()
	g, err := graph.New(store.NewConversationStore(blobs), engine, "u1", graph.WithClock(fixedClock()))
	require.NoError(t, err)
	return g.NewSession(""), blobs
}

func storedTexts(t *testing.T, blobs *store.MemoryBlobStore) []string {
	t.Helper()
	b, ok := blobs.Raw(store.Key("u1"))
	require.True(t, ok)
	h, err := conversation.FromWire(b)
	require.NoError(t, err)
	var ret []string
	for _, m := range h.Messages() {
		ret = append(ret, m.Text())
	}
	return ret
}

func TestRunChat_ConversationUntilStopWord(t *testing.T) {
	engine := chat.NewMockEngine("Hi there", "Fine, thanks")
	s, blobs := newTestSession(t, engine)

	in := strings.NewReader("Hello\n\nHow are you?\nquit\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), s, fixedClock(), in, &out, true))

	assert.Equal(t, "User: AI: Hi there\nUser: User: AI: Fine, thanks\nUser: ", out.String())
	assert.True(t, s.Done())
	assert.Equal(t, []string{"Hello", "Hi there", "How are you?", "Fine, thanks"}, storedTexts(t, blobs))
}

func TestRunChat_StopWordBeforeFirstTurn(t *testing.T) {
	engine := chat.NewMockEngine("unused")
	s, blobs := newTestSession(t, engine)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), s, fixedClock(), strings.NewReader("EXIT\n"), &out, true))
	assert.Empty(t, engine.Calls())
	assert.Equal(t, 0, blobs.Gets+blobs.Puts)
}

func TestRunChat_EOFEndsChat(t *testing.T) {
	s, _ := newTestSession(t, chat.NewMockEngine("Hi there"))
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), s, fixedClock(), strings.NewReader("Hello\n"), &out, false))
	assert.Equal(t, "User: User: \n", out.String())
}

func TestRunChat_FailedTurnContinues(t *testing.T) {
	engine := chat.NewMockEngine("Hi there")
	engine.Err = errors.New("provider down")
	s, blobs := newTestSession(t, engine)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), s, fixedClock(), strings.NewReader("Hello\nq\n"), &out, true))
	assert.Nil(t, s.Checkpoint())
	assert.Equal(t, 0, blobs.Puts)
}

func TestRunChat_InvalidUTF8LineIsSkipped(t *testing.T) {
	engine := chat.NewMockEngine("Bonjour", "Oui")
	s, blobs := newTestSession(t, engine)

	in := strings.NewReader("caf\xe9\ncafé ☕\nencore café\nq\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), s, fixedClock(), in, &out, true))

	assert.Len(t, engine.Calls(), 2)
	assert.Equal(t, []string{"café ☕", "Bonjour", "encore café", "Oui"}, storedTexts(t, blobs))
}

func TestRunChat_CorruptHistoryStops(t *testing.T) {
	s, blobs := newTestSession(t, chat.NewMockEngine("Hi there"))
	blobs.Seed(store.Key("u1"), []byte(`{"data": []}`))

	var out bytes.Buffer
	err := runChat(context.Background(), s, fixedClock(), strings.NewReader("Hello\nagain\n"), &out, true)
	assert.ErrorIs(t, err, store.ErrCorruptHistory)
}

func mustConversation(t *testing.T) conversation.Conversation {
	t.Helper()
	h, err := conversation.NewMessage(conversation.RoleHuman, "Hello", "2024-05-01T10:00:00.000Z")
	require.NoError(t, err)
	a, err := conversation.NewMessage(conversation.RoleAI, "Hi there", "2024-05-01T10:00:01.000Z")
	require.NoError(t, err)
	return conversation.NewConversation(h, a)
}

func TestPrintHistory(t *testing.T) {
	msgs := mustConversation(t)

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, msgs, "json"))
	var decoded map[string][]map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded["data"], 2)
	assert.Equal(t, "ai", decoded["data"][1]["role"])
	assert.Equal(t, "2024-05-01T10:00:01.000Z", decoded["data"][1]["etl_time"])

	buf.Reset()
	require.NoError(t, printHistory(&buf, msgs, "yaml"))
	var y map[string][]map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &y))
	assert.Equal(t, "Hello", y["data"][0]["message"])

	buf.Reset()
	require.NoError(t, printHistory(&buf, msgs, "text"))
	assert.Contains(t, buf.String(), "Hi there")

	assert.Error(t, printHistory(&buf, msgs, "xml"))
}

func TestSetScalar_KeepsCommentsAndCreatesPaths(t *testing.T) {
	p := filepath.Join(t.TempDir(), "agent_config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("# agent\nuser_id: 30291 # the user\nllm: \"openai|gpt-4o\"\n"), 0o644))

	root, err := readAndParseConfig(p)
	require.NoError(t, err)
	setScalar(root, []string{"llm"}, "groq|llama3-8b-8192")
	setScalar(root, []string{"store", "bucket"}, "my-bucket")
	require.NoError(t, writeConfig(p, root))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "# the user")

	var decoded struct {
		UserID int    `yaml:"user_id"`
		LLM    string `yaml:"llm"`
		Store  struct {
			Bucket string `yaml:"bucket"`
		} `yaml:"store"`
	}
	require.NoError(t, yaml.Unmarshal(b, &decoded))
	assert.Equal(t, 30291, decoded.UserID)
	assert.Equal(t, "groq|llama3-8b-8192", decoded.LLM)
	assert.Equal(t, "my-bucket", decoded.Store.Bucket)
}

func TestReadAndParseConfig_MissingFileIsEmpty(t *testing.T) {
	root, err := readAndParseConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	setScalar(root, []string{"user_id"}, "u")
	assert.Equal(t, "user_id", mappingNode(root).Content[0].Value)
}
