package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepSettings_CloneIsDeep(t *testing.T) {
	s := NewStepSettings()
	engine := "gpt-4o"
	s.Chat.Engine = &engine
	s.API.APIKeys["openai-api-key"] = "a"

	c := s.Clone()
	*c.Chat.Engine = "gpt-4o-mini"
	c.API.APIKeys["openai-api-key"] = "b"

	assert.Equal(t, "gpt-4o", *s.Chat.Engine)
	assert.Equal(t, "a", s.API.APIKeys["openai-api-key"])
}

func TestStepSettings_GetMetadataOmitsKeys(t *testing.T) {
	s := NewStepSettings()
	engine := "gpt-4o"
	s.Chat.Engine = &engine
	s.API.APIKeys["openai-api-key"] = "secret"

	md := s.GetMetadata()
	assert.Equal(t, "gpt-4o", md["ai-engine"])
	for _, v := range md {
		assert.NotEqual(t, "secret", v)
	}
}
