package bedrock

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	in    *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
	calls int
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.calls++
	f.in = in
	return f.out, f.err
}

func msg(t *testing.T, role conversation.Role, text string) conversation.Message {
	t.Helper()
	m, err := conversation.NewMessage(role, text, "2024-05-01T10:00:00.000Z")
	require.NoError(t, err)
	return m
}

func textOut(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		Usage: &brtypes.TokenUsage{InputTokens: aws.Int32(5), OutputTokens: aws.Int32(2)},
	}
}

func TestMakeConverseInput(t *testing.T) {
	chat := settings.NewChatSettings()
	in, err := MakeConverseInput("anthropic.claude-3-haiku-20240307-v1:0", chat, conversation.NewConversation(
		msg(t, conversation.RoleSystem, "Be brief."),
		msg(t, conversation.RoleAI, "dangling reply"),
		msg(t, conversation.RoleHuman, "Hello"),
		msg(t, conversation.RoleAI, "Hi there"),
		msg(t, conversation.RoleHuman, "One"),
		msg(t, conversation.RoleHuman, "Two"),
	))
	require.NoError(t, err)

	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(in.ModelId))
	require.Len(t, in.System, 1)
	require.Len(t, in.Messages, 3)
	assert.Equal(t, brtypes.ConversationRoleUser, in.Messages[0].Role)
	assert.Equal(t, brtypes.ConversationRoleAssistant, in.Messages[1].Role)
	assert.Len(t, in.Messages[2].Content, 2)
	require.NotNil(t, in.InferenceConfig)
	assert.Equal(t, float32(0), aws.ToFloat32(in.InferenceConfig.Temperature))
}

func TestMakeConverseInput_NoUserMessage(t *testing.T) {
	_, err := MakeConverseInput("m", nil, conversation.NewConversation(msg(t, conversation.RoleSystem, "x")))
	assert.Error(t, err)
}

func TestBedrockEngine_RunInference(t *testing.T) {
	fake := &fakeConverse{out: textOut("Hi there")}
	now := time.Date(2024, 5, 1, 10, 0, 3, 0, time.UTC)
	e, err := newBedrockEngine(settings.NewStepSettings(), "amazon.titan-text-express-v1", fake,
		engine.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	reply, err := e.RunInference(context.Background(), conversation.NewConversation(msg(t, conversation.RoleHuman, "Hello")))
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Text())
	assert.Equal(t, conversation.RoleAI, reply.Role())
	assert.Equal(t, "2024-05-01T10:00:03.000Z", reply.Timestamp())
	assert.Equal(t, 1, fake.calls)
}

func TestBedrockEngine_WrapsErrors(t *testing.T) {
	cause := errors.New("throttled")
	fake := &fakeConverse{err: cause}
	e, err := newBedrockEngine(settings.NewStepSettings(), "amazon.titan-text-express-v1", fake)
	require.NoError(t, err)

	_, err = e.RunInference(context.Background(), conversation.NewConversation(msg(t, conversation.RoleHuman, "Hello")))
	var invErr *engine.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "amazon", invErr.Provider)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, fake.calls)
}

func TestBedrockEngine_EmptyOutput(t *testing.T) {
	fake := &fakeConverse{out: &bedrockruntime.ConverseOutput{}}
	e, err := newBedrockEngine(settings.NewStepSettings(), "m", fake)
	require.NoError(t, err)

	_, err = e.RunInference(context.Background(), conversation.NewConversation(msg(t, conversation.RoleHuman, "Hello")))
	var invErr *engine.InvocationError
	assert.ErrorAs(t, err, &invErr)
}
