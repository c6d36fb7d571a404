package openai

import (
	"math"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// MakeClient builds a go-openai client for an OpenAI-compatible provider.
// A missing base URL falls back to the provider's public endpoint.
func MakeClient(ss *settings.StepSettings, apiType ai_types.ApiType) (*go_openai.Client, error) {
	if ss.API == nil {
		return nil, errors.New("no API settings")
	}
	apiKey, ok := ss.API.APIKey(apiType)
	if !ok {
		return nil, errors.Errorf("no API key for %s", apiType)
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL, ok := ss.API.BaseURL(apiType); ok {
		config.BaseURL = baseURL
	} else if apiType == ai_types.ApiTypeGroq {
		config.BaseURL = DefaultGroqBaseURL
	}
	if ss.Client != nil {
		config.HTTPClient = ss.Client.GetHTTPClient()
	}
	return go_openai.NewClientWithConfig(config), nil
}

func roleToOpenAI(r conversation.Role) (string, error) {
	switch r {
	case conversation.RoleSystem:
		return go_openai.ChatMessageRoleSystem, nil
	case conversation.RoleHuman:
		return go_openai.ChatMessageRoleUser, nil
	case conversation.RoleAI:
		return go_openai.ChatMessageRoleAssistant, nil
	default:
		return "", errors.Errorf("unknown role %q", r)
	}
}

// MakeCompletionRequest maps a conversation onto a chat completion request.
func MakeCompletionRequest(model string, chat *settings.ChatSettings, messages conversation.Conversation) (*go_openai.ChatCompletionRequest, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages to send")
	}

	msgs := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role, err := roleToOpenAI(m.Role())
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Text(),
		})
	}

	req := &go_openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}

	if chat != nil {
		if chat.Temperature != nil {
			t := float32(*chat.Temperature)
			// go-openai drops a zero temperature through omitempty
			if t == 0 {
				t = math.SmallestNonzeroFloat32
			}
			req.Temperature = t
		}
		if chat.MaxResponseTokens != nil {
			req.MaxTokens = *chat.MaxResponseTokens
		}
	}

	return req, nil
}
