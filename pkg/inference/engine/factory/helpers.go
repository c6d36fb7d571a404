package factory

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// AvailableModels is the closed set of "provider|model" values accepted in
// configuration.
var AvailableModels = []string{
	"openai|gpt-4o",
	"openai|gpt-4o-mini",
	"openai|gpt-4-turbo",
	"openai|gpt-3.5-turbo",
	"google|gemini-1.5-pro",
	"google|gemini-1.5-flash",
	"google|gemini-1.0-pro",
	"groq|llama3-70b-8192",
	"groq|llama3-8b-8192",
	"groq|mixtral-8x7b-32768",
	"groq|gemma-7b-it",
	"amazon|anthropic.claude-3-sonnet-20240229-v1:0",
	"amazon|anthropic.claude-3-haiku-20240307-v1:0",
	"amazon|meta.llama3-70b-instruct-v1:0",
	"amazon|mistral.mistral-large-2402-v1:0",
}

func IsAvailableModel(tag string) bool {
	for _, m := range AvailableModels {
		if m == tag {
			return true
		}
	}
	return false
}

// ValidateModel checks that tag parses and belongs to AvailableModels.
func ValidateModel(tag string) error {
	if _, err := ParseProviderTag(tag); err != nil {
		return err
	}
	if !IsAvailableModel(tag) {
		models := append([]string(nil), AvailableModels...)
		sort.Strings(models)
		return errors.Errorf("llm %q is not one of the available models: %s", tag, strings.Join(models, ", "))
	}
	return nil
}
