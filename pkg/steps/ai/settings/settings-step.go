package settings

import (
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
)

// APISettings holds per-provider credentials and endpoints, keyed
// "<provider>-api-key" and "<provider>-base-url".
type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty"`
}

func NewAPISettings() *APISettings {
	return &APISettings{
		APIKeys:  map[string]string{},
		BaseUrls: map[string]string{},
	}
}

func (a *APISettings) APIKey(apiType types.ApiType) (string, bool) {
	v, ok := a.APIKeys[apiType.APIKeyName()]
	return v, ok && v != ""
}

func (a *APISettings) BaseURL(apiType types.ApiType) (string, bool) {
	v, ok := a.BaseUrls[apiType.BaseURLName()]
	return v, ok && v != ""
}

type BedrockSettings struct {
	Region string `yaml:"region,omitempty"`
}

type StepSettings struct {
	Chat    *ChatSettings    `yaml:"chat,omitempty"`
	API     *APISettings     `yaml:"api,omitempty"`
	Client  *ClientSettings  `yaml:"client,omitempty"`
	Bedrock *BedrockSettings `yaml:"bedrock,omitempty"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		Chat:    NewChatSettings(),
		API:     NewAPISettings(),
		Client:  NewClientSettings(),
		Bedrock: &BedrockSettings{},
	}
}

func (ss *StepSettings) Clone() *StepSettings {
	return clone.Clone(ss).(*StepSettings)
}

// GetMetadata returns the settings that are safe to log (no API keys).
func (ss *StepSettings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})

	if ss.Chat != nil {
		if ss.Chat.Engine != nil {
			metadata["ai-engine"] = *ss.Chat.Engine
		}
		if ss.Chat.ApiType != nil {
			metadata["ai-api-type"] = string(*ss.Chat.ApiType)
		}
		if ss.Chat.Temperature != nil {
			metadata["ai-temperature"] = *ss.Chat.Temperature
		}
		if ss.Chat.MaxResponseTokens != nil {
			metadata["ai-max-response-tokens"] = *ss.Chat.MaxResponseTokens
		}
	}

	if ss.API != nil {
		for k, v := range ss.API.BaseUrls {
			metadata[k] = v
		}
	}

	if ss.Client != nil && ss.Client.Timeout != nil {
		metadata["timeout"] = ss.Client.Timeout.String()
	}

	if ss.Bedrock != nil && ss.Bedrock.Region != "" {
		metadata["bedrock-region"] = ss.Bedrock.Region
	}

	return metadata
}
