package factory

import (
	"context"
	"testing"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/go-go-golems/chatgraph/pkg/inference/middleware"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/chat"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderTag(t *testing.T) {
	tag, err := ParseProviderTag("openai|gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, types.ApiTypeOpenAI, tag.Provider)
	assert.Equal(t, "gpt-4o-mini", tag.Model)
	assert.Equal(t, "openai|gpt-4o-mini", tag.String())

	tag, err = ParseProviderTag("amazon|anthropic.claude-3-haiku-20240307-v1:0")
	require.NoError(t, err)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", tag.Model)
}

func TestParseProviderTag_Rejects(t *testing.T) {
	for _, tag := range []string{
		"",
		"gpt-4o",
		"openai|",
		"|gpt-4o",
		"openai|gpt|4o",
		"azure|gpt-4o",
	} {
		t.Run(tag, func(t *testing.T) {
			_, err := ParseProviderTag(tag)
			var upe *UnsupportedProviderError
			require.ErrorAs(t, err, &upe)
			assert.Equal(t, tag, upe.Tag)
		})
	}
}

func TestAvailableModels(t *testing.T) {
	for _, m := range AvailableModels {
		_, err := ParseProviderTag(m)
		assert.NoError(t, err, m)
	}
	assert.NoError(t, ValidateModel("groq|llama3-8b-8192"))
	assert.Error(t, ValidateModel("openai|gpt-2"))

	var upe *UnsupportedProviderError
	assert.ErrorAs(t, ValidateModel("cohere|command-r"), &upe)
}

func TestStandardRegistry_GoogleRejectsNonGeminiModels(t *testing.T) {
	ss := settings.NewStepSettings()
	ss.API.APIKeys[types.ApiTypeGoogle.APIKeyName()] = "key"

	_, err := NewStandardRegistry().CreateEngine(context.Background(), "google|gpt-4o", ss)
	var upe *UnsupportedProviderError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, "google|gpt-4o", upe.Tag)
}

func TestRegistry_CreateEngine(t *testing.T) {
	mock := chat.NewMockEngine("Hi there")
	var gotModel string
	var gotSettings *settings.StepSettings

	r := NewRegistry()
	r.Register(types.ApiTypeGroq, func(_ context.Context, ss *settings.StepSettings, model string, _ ...engine.Option) (engine.Engine, error) {
		gotModel = model
		gotSettings = ss
		return mock, nil
	})

	ss := settings.NewStepSettings()
	e, err := r.CreateEngine(context.Background(), "groq|llama3-8b-8192", ss)
	require.NoError(t, err)
	assert.Same(t, mock, e)
	assert.Equal(t, "llama3-8b-8192", gotModel)
	require.NotNil(t, gotSettings.Chat.ApiType)
	assert.Equal(t, types.ApiTypeGroq, *gotSettings.Chat.ApiType)
	assert.Nil(t, ss.Chat.ApiType, "caller settings must not be modified")

	_, err = r.CreateEngine(context.Background(), "openai|gpt-4o", ss)
	var upe *UnsupportedProviderError
	assert.ErrorAs(t, err, &upe)
}

func TestRegistry_WrapsWithMiddleware(t *testing.T) {
	mock := chat.NewMockEngine("Hi there")
	r := NewRegistry()
	r.Register(types.ApiTypeOpenAI, func(context.Context, *settings.StepSettings, string, ...engine.Option) (engine.Engine, error) {
		return mock, nil
	})
	calls := 0
	r.Use(func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
			calls++
			return next(ctx, messages)
		}
	})

	e, err := r.CreateEngine(context.Background(), "openai|gpt-4o", settings.NewStepSettings())
	require.NoError(t, err)
	reply, err := e.RunInference(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Text())
	assert.Equal(t, 1, calls)
}

func TestStandardRegistry_Providers(t *testing.T) {
	r := NewStandardRegistry()
	assert.Equal(t, []string{"amazon", "google", "groq", "openai"}, r.SupportedProviders())

	// missing API key surfaces at creation time, not at invocation
	_, err := r.CreateEngine(context.Background(), "openai|gpt-4o", settings.NewStepSettings())
	assert.Error(t, err)

	ss := settings.NewStepSettings()
	ss.API.APIKeys["openai-api-key"] = "sk-test"
	e, err := r.CreateEngine(context.Background(), "openai|gpt-4o", ss)
	require.NoError(t, err)
	assert.NotNil(t, e)
}
