package openai

import (
	"context"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
}

// OpenAIEngine talks to OpenAI and to OpenAI-compatible providers such as Groq.
type OpenAIEngine struct {
	apiType  ai_types.ApiType
	model    string
	settings *settings.StepSettings
	config   *engine.Config
	client   chatCompletionAPI
}

func NewOpenAIEngine(ss *settings.StepSettings, apiType ai_types.ApiType, model string, options ...engine.Option) (*OpenAIEngine, error) {
	if ss == nil {
		return nil, errors.New("settings cannot be nil")
	}
	client, err := MakeClient(ss, apiType)
	if err != nil {
		return nil, err
	}
	return newOpenAIEngineWithClient(ss, apiType, model, client, options...)
}

func newOpenAIEngineWithClient(ss *settings.StepSettings, apiType ai_types.ApiType, model string, client chatCompletionAPI, options ...engine.Option) (*OpenAIEngine, error) {
	config := engine.NewConfig()
	if err := engine.ApplyOptions(config, options...); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, errors.New("no model specified")
	}

	return &OpenAIEngine{
		apiType:  apiType,
		model:    model,
		settings: ss,
		config:   config,
		client:   client,
	}, nil
}

func (e *OpenAIEngine) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
	req, err := MakeCompletionRequest(e.model, e.settings.Chat, messages)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(string(e.apiType), e.model, err)
	}

	e.config.Logger.Debug().
		Str("provider", string(e.apiType)).
		Str("model", e.model).
		Int("num_messages", len(req.Messages)).
		Msg("OpenAI RunInference started")

	resp, err := e.client.CreateChatCompletion(ctx, *req)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(string(e.apiType), e.model, err)
	}
	if len(resp.Choices) == 0 {
		return conversation.Message{}, engine.NewInvocationError(string(e.apiType), e.model, errors.New("no choices in response"))
	}

	e.config.Logger.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("OpenAI RunInference finished")

	reply, err := conversation.NewMessageAt(conversation.RoleAI, resp.Choices[0].Message.Content, e.config.Clock())
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(string(e.apiType), e.model, errors.Wrap(err, "invalid reply"))
	}
	return reply, nil
}

var _ engine.Engine = (*OpenAIEngine)(nil)
