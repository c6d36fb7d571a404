// Package bedrock runs inference against Amazon Bedrock through the
// model-agnostic Converse API.
package bedrock

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	"github.com/pkg/errors"
)

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type BedrockEngine struct {
	model    string
	settings *settings.StepSettings
	config   *engine.Config
	client   converseAPI
}

// NewBedrockEngine resolves AWS credentials through the default chain.
func NewBedrockEngine(ctx context.Context, ss *settings.StepSettings, model string, options ...engine.Option) (*BedrockEngine, error) {
	if ss == nil {
		return nil, errors.New("settings cannot be nil")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if ss.Bedrock != nil && ss.Bedrock.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(ss.Bedrock.Region))
	}
	if ss.Client != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(ss.Client.GetHTTPClient()))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	var clientOpts []func(*bedrockruntime.Options)
	if ss.API != nil {
		if baseURL, ok := ss.API.BaseURL(ai_types.ApiTypeAmazon); ok {
			clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
				o.BaseEndpoint = aws.String(baseURL)
			})
		}
	}

	return newBedrockEngine(ss, model, bedrockruntime.NewFromConfig(cfg, clientOpts...), options...)
}

func newBedrockEngine(ss *settings.StepSettings, model string, client converseAPI, options ...engine.Option) (*BedrockEngine, error) {
	cfg := engine.NewConfig()
	if err := engine.ApplyOptions(cfg, options...); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, errors.New("no model specified")
	}
	return &BedrockEngine{model: model, settings: ss, config: cfg, client: client}, nil
}

// MakeConverseInput maps a conversation onto a Converse request. Bedrock
// requires the exchange to open with a user turn and to alternate, so
// leading assistant turns are dropped and adjacent turns of the same role
// are merged into one message with several content blocks.
func MakeConverseInput(model string, chat *settings.ChatSettings, messages conversation.Conversation) (*bedrockruntime.ConverseInput, error) {
	in := &bedrockruntime.ConverseInput{ModelId: aws.String(model)}

	for _, m := range messages {
		var role brtypes.ConversationRole
		switch m.Role() {
		case conversation.RoleSystem:
			in.System = append(in.System, &brtypes.SystemContentBlockMemberText{Value: m.Text()})
			continue
		case conversation.RoleHuman:
			role = brtypes.ConversationRoleUser
		case conversation.RoleAI:
			role = brtypes.ConversationRoleAssistant
		default:
			return nil, errors.Errorf("unknown role %q", m.Role())
		}

		if len(in.Messages) == 0 && role != brtypes.ConversationRoleUser {
			continue
		}
		block := &brtypes.ContentBlockMemberText{Value: m.Text()}
		if n := len(in.Messages); n > 0 && in.Messages[n-1].Role == role {
			in.Messages[n-1].Content = append(in.Messages[n-1].Content, block)
			continue
		}
		in.Messages = append(in.Messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{block},
		})
	}

	if len(in.Messages) == 0 {
		return nil, errors.New("no user message to send")
	}

	if chat != nil && (chat.Temperature != nil || chat.MaxResponseTokens != nil) {
		ic := &brtypes.InferenceConfiguration{}
		if chat.Temperature != nil {
			ic.Temperature = aws.Float32(float32(*chat.Temperature))
		}
		if chat.MaxResponseTokens != nil {
			ic.MaxTokens = aws.Int32(int32(*chat.MaxResponseTokens)) // #nosec G115
		}
		in.InferenceConfig = ic
	}

	return in, nil
}

func outputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("empty response")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.Errorf("unexpected output type %T", out.Output)
	}
	var sb strings.Builder
	for _, c := range msg.Value.Content {
		if t, ok := c.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(t.Value)
		}
	}
	if sb.Len() == 0 {
		return "", errors.Errorf("no text in response (stop reason %s)", out.StopReason)
	}
	return sb.String(), nil
}

func (e *BedrockEngine) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Message, error) {
	provider := string(ai_types.ApiTypeAmazon)

	in, err := MakeConverseInput(e.model, e.settings.Chat, messages)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, err)
	}

	e.config.Logger.Debug().
		Str("model", e.model).
		Int("num_messages", len(in.Messages)).
		Msg("Bedrock RunInference started")

	out, err := e.client.Converse(ctx, in)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, err)
	}

	text, err := outputText(out)
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, err)
	}

	if out.Usage != nil {
		e.config.Logger.Debug().
			Int32("input_tokens", aws.ToInt32(out.Usage.InputTokens)).
			Int32("output_tokens", aws.ToInt32(out.Usage.OutputTokens)).
			Msg("Bedrock RunInference finished")
	}

	reply, err := conversation.NewMessageAt(conversation.RoleAI, text, e.config.Clock())
	if err != nil {
		return conversation.Message{}, engine.NewInvocationError(provider, e.model, errors.Wrap(err, "invalid reply"))
	}
	return reply, nil
}

var _ engine.Engine = (*BedrockEngine)(nil)
