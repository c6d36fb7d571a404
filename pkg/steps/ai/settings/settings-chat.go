package settings

import (
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
)

type ChatSettings struct {
	// Engine is the provider-side model name, e.g. "gpt-4o-mini".
	Engine      *string        `yaml:"engine,omitempty"`
	ApiType     *types.ApiType `yaml:"api_type,omitempty"`
	Temperature *float64       `yaml:"temperature,omitempty"`
	// MaxResponseTokens is left to the provider default when nil.
	MaxResponseTokens *int `yaml:"max_response_tokens,omitempty"`
}

func NewChatSettings() *ChatSettings {
	temperature := 0.0
	return &ChatSettings{
		Temperature: &temperature,
	}
}
