package engine

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures provider engines.
type Option func(*Config) error

type Config struct {
	// Clock stamps the reply, it defaults to time.Now.
	Clock  func() time.Time
	Logger zerolog.Logger
}

func NewConfig() *Config {
	return &Config{
		Clock:  time.Now,
		Logger: log.Logger,
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Config) error {
		c.Clock = clock
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

func ApplyOptions(config *Config, options ...Option) error {
	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}
	return nil
}
