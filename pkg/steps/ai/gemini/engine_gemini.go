package gemini

import (
	"context"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// generateFunc sends a prepared chat request and returns the raw response.
type generateFunc func(ctx context.Context, req *chatRequest) (*genai.GenerateContentResponse, error)

// GeminiEngine implements engine.Engine on top of Google's Gemini API.
type GeminiEngine struct {
	model    string
	settings *settings.StepSettings
	config   *engine.Config
	generate generateFunc
}

func NewGeminiEngine(ss *settings.StepSettings, model string, options ...engine.Option) (*GeminiEngine, error) {
	if ss == nil || ss.API == nil {
		return nil, errors.New("settings cannot be nil")
	}
	apiKey, ok := ss.API.APIKey(ai_types.ApiTypeGoogle)
	if !ok {
		return nil, errors.Errorf("missing API key %s", ai_types.ApiTypeGoogle.APIKeyName())
	}
	baseURL, _ := ss.API.BaseURL(ai_types.ApiTypeGoogle)

	e, err := newGeminiEngine(ss, model, nil, options...)
	if err != nil {
		return nil, err
	}
	e.generate = func(ctx context.Context, req *chatRequest) (*genai.GenerateContentResponse, error) {
		opts := []option.ClientOption{option.WithAPIKey(apiKey)}
		if baseURL != "" {
			opts = append(opts, option.WithEndpoint(baseURL))
		}
		client, err := genai.NewClient(ctx, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create gemini client")
		}
		defer func() {
			if err := client.Close(); err != nil {
				e.config.Logger.Error().Err(err).Msg("failed to close gemini client")
			}
		}()

		m := client.GenerativeModel(e.model)
		if ss.Chat != nil {
			if ss.Chat.Temperature != nil {
				m.SetTemperature(float32(*ss.Chat.Temperature))
			}
			if ss.Chat.MaxResponseTokens != nil {
				m.SetMaxOutputTokens(int32(*ss.Chat.MaxResponseTokens)) // #nosec G115
			}
		}
		m.SystemInstruction = req.System

		cs := m.StartChat()
		cs.History = req.History
		return cs.SendMessage(ctx, req.Prompt...)
	}
	return e, nil
}

func newGeminiEngine(ss *settings.StepSettings, model string, generate generateFunc, options ...engine.Option) (*GeminiEngine, error) {
	cfg := engine.NewConfig()
	if err := engine.ApplyOptions(cfg, options...); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, errors.New("no model specified")
	}
	return &GeminiEngine{model: model, settings: ss, config: cfg, generate: generate}, nil
}

func (e *GeminiEngine) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
	provider := string(ai_types.ApiTypeGoogle)

	req, err := buildChatRequest(messages)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, err)
	}

	e.config.Logger.Debug().
		Str("model", e.model).
		Int("history", len(req.History)).
		Msg("Gemini RunInference started")

	resp, err := e.generate(ctx, req)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, err)
	}

	reply, err := conversation.NewMessageAt(conversation.RoleAI, text, e.config.Clock())
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, errors.Wrap(err, "invalid reply"))
	}
	return reply, nil
}

var _ engine.Engine = (*GeminiEngine)(nil)
