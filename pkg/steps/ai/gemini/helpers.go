package gemini

import (
	"strings"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
)

func IsGeminiEngine(engine string) bool {
	return strings.HasPrefix(engine, "gemini")
}

// chatRequest is a conversation split the way a Gemini chat session wants it.
type chatRequest struct {
	System  *genai.Content
	History []*genai.Content
	Prompt  []genai.Part
}

// buildChatRequest moves system messages into the system instruction and
// sends the final human message as the prompt. Consecutive messages from
// the same side are merged since Gemini expects alternating turns.
func buildChatRequest(messages conversation.Conversation) (*chatRequest, error) {
	ret := &chatRequest{}
	var systemParts []genai.Part
	var turns []*genai.Content

	for _, m := range messages {
		var role string
		switch m.Role() {
		case conversation.RoleSystem:
			systemParts = append(systemParts, genai.Text(m.Text()))
			continue
		case conversation.RoleHuman:
			role = "user"
		case conversation.RoleAI:
			role = "model"
		default:
			return nil, errors.Errorf("unknown role %q", m.Role())
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, genai.Text(m.Text()))
			continue
		}
		turns = append(turns, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Text())}})
	}

	if len(turns) == 0 {
		return nil, errors.New("no user message to send")
	}
	last := turns[len(turns)-1]
	if last.Role != "user" {
		return nil, errors.New("last message must come from the user")
	}

	if len(systemParts) > 0 {
		ret.System = &genai.Content{Parts: systemParts}
	}
	ret.History = turns[:len(turns)-1]
	ret.Prompt = last.Parts
	return ret, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", errors.Errorf("empty candidate (finish reason %s)", c.FinishReason.String())
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text in response")
	}
	return sb.String(), nil
}
