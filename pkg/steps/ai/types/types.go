package types

type ApiType string

const (
	ApiTypeOpenAI ApiType = "openai"
	ApiTypeGoogle ApiType = "google"
	ApiTypeGroq   ApiType = "groq"
	// Amazon Bedrock
	ApiTypeAmazon ApiType = "amazon"
)

func (a ApiType) APIKeyName() string {
	return string(a) + "-api-key"
}

func (a ApiType) BaseURLName() string {
	return string(a) + "-base-url"
}
