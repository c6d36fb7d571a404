package config

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-go-golems/chatgraph/pkg/inference/engine/factory"
	"github.com/go-go-golems/chatgraph/pkg/security"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/settings"
	"github.com/go-go-golems/chatgraph/pkg/steps/ai/types"
	"github.com/go-go-golems/chatgraph/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	StoreBackendS3    = "s3"
	StoreBackendLocal = "local"

	DefaultSystemPrompt = "You are a helpful assistant. Answer the user's questions concisely and accurately."
	// DefaultRetrievedMessages matches the number of messages loaded per turn
	// when number_retrieved_msgs is not configured.
	DefaultRetrievedMessages = 10
)

type StoreConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend"`
	Bucket       string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Region       string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	UsePathStyle bool   `mapstructure:"use_path_style" yaml:"use_path_style,omitempty"`
	LocalPath    string `mapstructure:"local_path" yaml:"local_path,omitempty"`
	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// Config is the agent configuration, built once at startup.
type Config struct {
	ThreadID int `mapstructure:"thread_id" yaml:"thread_id"`
	// UserID keys the stored history. Integer ids are accepted and kept as
	// their decimal string.
	UserID              string  `mapstructure:"user_id" yaml:"user_id"`
	LLM                 string  `mapstructure:"llm" yaml:"llm"`
	Temperature         float64 `mapstructure:"temperature" yaml:"temperature"`
	NumberRetrievedMsgs int     `mapstructure:"number_retrieved_msgs" yaml:"number_retrieved_msgs"`
	SystemPrompt        string  `mapstructure:"system_prompt" yaml:"system_prompt"`
	MaxResponseTokens   int     `mapstructure:"max_response_tokens" yaml:"max_response_tokens,omitempty"`
	// TimeoutSeconds bounds each provider HTTP call.
	TimeoutSeconds int `mapstructure:"timeout" yaml:"timeout,omitempty"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`

	APIKeys       map[string]string `mapstructure:"api_keys" yaml:"api_keys,omitempty"`
	BaseURLs      map[string]string `mapstructure:"base_urls" yaml:"base_urls,omitempty"`
	BedrockRegion string            `mapstructure:"bedrock_region" yaml:"bedrock_region,omitempty"`
	// AllowLocalEndpoints lets base_urls and store.endpoint point at plain
	// http or local-network hosts.
	AllowLocalEndpoints bool `mapstructure:"allow_local_endpoints" yaml:"allow_local_endpoints,omitempty"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	// keys need a default for AutomaticEnv to reach them in Unmarshal
	v.SetDefault("user_id", "")
	v.SetDefault("thread_id", 1)
	v.SetDefault("max_response_tokens", 0)
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key_id", "")
	v.SetDefault("store.secret_access_key", "")
	v.SetDefault("bedrock_region", "")
	v.SetDefault("allow_local_endpoints", false)
	v.SetDefault("llm", "openai|gpt-4o-mini")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("number_retrieved_msgs", DefaultRetrievedMessages)
	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("timeout", 60)
	v.SetDefault("store.backend", StoreBackendS3)
	v.SetDefault("store.local_path", ".chatgraph")
}

// Load reads the config file (if any) into a new viper instance, with
// CHATGRAPH_* environment overrides, and decodes it.
func Load(configFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("chatgraph")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, errors.Wrapf(err, "could not read config file %s", configFile)
		}
	}

	c, err := FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return c, v, nil
}

func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "could not decode configuration")
	}
	c.UserID = strings.TrimSpace(c.UserID)
	c.LLM = strings.TrimSpace(c.LLM)
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.APIKeys == nil {
		c.APIKeys = map[string]string{}
	}
	if c.BaseURLs == nil {
		c.BaseURLs = map[string]string{}
	}
	return c, nil
}

// ApplyEnvironment fills values the configuration leaves empty from the
// process environment.
func (c *Config) ApplyEnvironment(e *Environment) {
	if e == nil {
		return
	}
	if c.Store.Bucket == "" {
		c.Store.Bucket = e.S3Bucket
	}
	if c.Store.Region == "" {
		c.Store.Region = e.AWSRegion
	}
	if c.BedrockRegion == "" {
		c.BedrockRegion = e.AWSRegion
	}
	if c.APIKeys == nil {
		c.APIKeys = map[string]string{}
	}
	for apiType, value := range map[types.ApiType]string{
		types.ApiTypeOpenAI: e.OpenAIAPIKey,
		types.ApiTypeGoogle: e.GoogleAPIKey,
		types.ApiTypeGroq:   e.GroqAPIKey,
	} {
		if value != "" && c.APIKeys[apiType.APIKeyName()] == "" {
			c.APIKeys[apiType.APIKeyName()] = value
		}
	}
}

func (c *Config) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	if err := factory.ValidateModel(c.LLM); err != nil {
		return err
	}
	if c.Temperature < 0 {
		return errors.Errorf("temperature must be >= 0, got %v", c.Temperature)
	}
	if c.NumberRetrievedMsgs < 0 {
		return errors.Errorf("number_retrieved_msgs must be >= 0, got %d", c.NumberRetrievedMsgs)
	}
	switch c.Store.Backend {
	case StoreBackendS3:
		if c.Store.Bucket == "" {
			return errors.New("store.bucket (or AWS_S3_BUCKET_NAME) is required for the s3 backend")
		}
	case StoreBackendLocal:
		if c.Store.LocalPath == "" {
			return errors.New("store.local_path is required for the local backend")
		}
	default:
		return errors.Errorf("unknown store backend %q (expected s3 or local)", c.Store.Backend)
	}

	policy := security.EndpointPolicy{AllowLocal: c.AllowLocalEndpoints}
	if c.Store.Endpoint != "" {
		if err := security.ValidateEndpoint(c.Store.Endpoint, policy); err != nil {
			return errors.Wrap(err, "store.endpoint")
		}
	}
	keys := make([]string, 0, len(c.BaseURLs))
	for k := range c.BaseURLs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if c.BaseURLs[k] == "" {
			continue
		}
		if err := security.ValidateEndpoint(c.BaseURLs[k], policy); err != nil {
			return errors.Wrapf(err, "base_urls.%s", k)
		}
	}
	return nil
}

// StepSettings converts the configuration into provider settings.
func (c *Config) StepSettings() *settings.StepSettings {
	ss := settings.NewStepSettings()
	temperature := c.Temperature
	ss.Chat.Temperature = &temperature
	if c.MaxResponseTokens > 0 {
		maxTokens := c.MaxResponseTokens
		ss.Chat.MaxResponseTokens = &maxTokens
	}
	for k, v := range c.APIKeys {
		ss.API.APIKeys[k] = v
	}
	for k, v := range c.BaseURLs {
		ss.API.BaseUrls[k] = v
	}
	if c.TimeoutSeconds > 0 {
		timeout := time.Duration(c.TimeoutSeconds) * time.Second
		seconds := c.TimeoutSeconds
		ss.Client.Timeout = &timeout
		ss.Client.TimeoutSeconds = &seconds
	}
	ss.Bedrock.Region = c.BedrockRegion
	return ss
}

// OpenBlobStore creates the configured blob backend.
func (c *Config) OpenBlobStore(ctx context.Context, logger zerolog.Logger) (store.BlobStore, error) {
	switch c.Store.Backend {
	case StoreBackendS3:
		return store.NewS3BlobStore(ctx, store.S3Settings{
			Bucket:          c.Store.Bucket,
			Region:          c.Store.Region,
			Endpoint:        c.Store.Endpoint,
			UsePathStyle:    c.Store.UsePathStyle,
			AccessKeyID:     c.Store.AccessKeyID,
			SecretAccessKey: c.Store.SecretAccessKey,
		}, logger)
	case StoreBackendLocal:
		return store.NewLocalBlobStore(c.Store.LocalPath, logger)
	default:
		return nil, errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
}

// Redacted returns a copy that is safe to print.
func (c *Config) Redacted() *Config {
	ret := *c
	ret.APIKeys = make(map[string]string, len(c.APIKeys))
	for k, v := range c.APIKeys {
		if v != "" {
			ret.APIKeys[k] = "***"
		}
	}
	if ret.Store.SecretAccessKey != "" {
		ret.Store.SecretAccessKey = "***"
	}
	ret.BaseURLs = make(map[string]string, len(c.BaseURLs))
	for k, v := range c.BaseURLs {
		ret.BaseURLs[k] = v
	}
	return &ret
}
