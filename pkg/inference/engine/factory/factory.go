package factory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/go-go-golems/chatgraph/pkg/inference/middleware"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/bedrock"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/gemini"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/openai"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Tag identifies a model as "provider|model".
type Tag struct {
	Provider types.ApiType
	Model    string
}

func (t Tag) String() string {
	return string(t.Provider) + "|" + t.Model
}

// UnsupportedProviderError is returned for malformed tags and for
// providers that have no registered constructor.
type UnsupportedProviderError struct {
	Tag    string
	Reason string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported model %q: %s", e.Tag, e.Reason)
}

var knownProviders = map[types.ApiType]bool{
	types.ApiTypeOpenAI: true,
	types.ApiTypeGoogle: true,
	types.ApiTypeGroq:   true,
	types.ApiTypeAmazon: true,
}

// ParseProviderTag splits "provider|model" on its single separator.
func ParseProviderTag(tag string) (Tag, error) {
	parts := strings.Split(tag, "|")
	if len(parts) != 2 {
		return Tag{}, &UnsupportedProviderError{Tag: tag, Reason: `expected exactly one "|" separator`}
	}
	provider, model := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if provider == "" || model == "" {
		return Tag{}, &UnsupportedProviderError{Tag: tag, Reason: "provider and model must be non-empty"}
	}
	if !knownProviders[types.ApiType(provider)] {
		return Tag{}, &UnsupportedProviderError{Tag: tag, Reason: fmt.Sprintf("unknown provider %q", provider)}
	}
	return Tag{Provider: types.ApiType(provider), Model: model}, nil
}

// Constructor builds an engine for one model of a provider.
type Constructor func(ctx context.Context, ss *settings.StepSettings, model string, options ...engine.Option) (engine.Engine, error)

// Registry maps providers to engine constructors. Engines are built once
// when the configuration is resolved, not per invocation.
type Registry struct {
	constructors map[types.ApiType]Constructor
	middlewares  []middleware.Middleware
}

func NewRegistry() *Registry {
	return &Registry{constructors: map[types.ApiType]Constructor{}}
}

// NewStandardRegistry registers the OpenAI, Groq, Google and Amazon engines.
// Every engine it creates is wrapped with the logging middleware.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	r.Register(types.ApiTypeOpenAI, openAICompatible(types.ApiTypeOpenAI))
	r.Register(types.ApiTypeGroq, openAICompatible(types.ApiTypeGroq))
	r.Register(types.ApiTypeGoogle, func(_ context.Context, ss *settings.StepSettings, model string, options ...engine.Option) (engine.Engine, error) {
		if !gemini.IsGeminiEngine(model) {
			return nil, &UnsupportedProviderError{
				Tag:    string(types.ApiTypeGoogle) + "|" + model,
				Reason: "google only serves gemini models",
			}
		}
		return gemini.NewGeminiEngine(ss, model, options...)
	})
	r.Register(types.ApiTypeAmazon, func(ctx context.Context, ss *settings.StepSettings, model string, options ...engine.Option) (engine.Engine, error) {
		return bedrock.NewBedrockEngine(ctx, ss, model, options...)
	})
	r.Use(middleware.NewLoggingMiddleware(log.Logger))
	return r
}

func openAICompatible(apiType types.ApiType) Constructor {
	return func(_ context.Context, ss *settings.StepSettings, model string, options ...engine.Option) (engine.Engine, error) {
		return openai.NewOpenAIEngine(ss, apiType, model, options...)
	}
}

func (r *Registry) Register(provider types.ApiType, c Constructor) {
	r.constructors[provider] = c
}

// Use appends middleware applied to every engine created afterwards.
func (r *Registry) Use(m ...middleware.Middleware) {
	r.middlewares = append(r.middlewares, m...)
}

func (r *Registry) SupportedProviders() []string {
	ret := make([]string, 0, len(r.constructors))
	for p := range r.constructors {
		ret = append(ret, string(p))
	}
	sort.Strings(ret)
	return ret
}

// CreateEngine parses tag, copies ss with the tag's provider and model,
// and builds the engine.
func (r *Registry) CreateEngine(ctx context.Context, tag string, ss *settings.StepSettings, options ...engine.Option) (engine.Engine, error) {
	if ss == nil {
		return nil, errors.New("settings cannot be nil")
	}
	t, err := ParseProviderTag(tag)
	if err != nil {
		return nil, err
	}
	c, ok := r.constructors[t.Provider]
	if !ok {
		return nil, &UnsupportedProviderError{
			Tag:    tag,
			Reason: fmt.Sprintf("no engine registered, supported providers: %s", strings.Join(r.SupportedProviders(), ", ")),
		}
	}

	ss_ := ss.Clone()
	if ss_.Chat == nil {
		ss_.Chat = settings.NewChatSettings()
	}
	model := t.Model
	provider := t.Provider
	ss_.Chat.Engine = &model
	ss_.Chat.ApiType = &provider

	e, err := c(ctx, ss_, t.Model, options...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create engine for %s", tag)
	}

	log.Debug().Str("llm", tag).Interface("settings", ss_.GetMetadata()).Msg("created engine")

	if len(r.middlewares) == 0 {
		return e, nil
	}
	return middleware.NewEngineWithMiddleware(e, append([]middleware.Middleware{middleware.WithModelTag(tag)}, r.middlewares...)...), nil
}
