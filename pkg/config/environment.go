package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Environment is the process environment the CLI depends on. It is read
// once in main and handed to the components that need it.
type Environment struct {
	Workdir      string `env:"WORKDIR"`
	S3Bucket     string `env:"AWS_S3_BUCKET_NAME"`
	AWSRegion    string `env:"AWS_REGION"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	GroqAPIKey   string `env:"GROQ_API_KEY"`
}

// LoadEnvironment loads the first .env files found in paths (variables that
// are already set win) and parses the environment.
func LoadEnvironment(dotenvPaths ...string) (*Environment, error) {
	for _, p := range dotenvPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return nil, errors.Wrapf(err, "could not load %s", p)
		}
		log.Debug().Str("path", p).Msg("Loaded dotenv file")
	}

	e := &Environment{}
	if err := env.Parse(e); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	e.Workdir = strings.TrimSpace(e.Workdir)
	e.S3Bucket = strings.TrimSpace(e.S3Bucket)
	e.AWSRegion = strings.TrimSpace(e.AWSRegion)
	return e, nil
}

// DefaultDotenvPaths is ".env" in the current directory.
func DefaultDotenvPaths() []string {
	return []string{".env"}
}

// ConfigFileName is the agent configuration file looked up in WORKDIR.
const ConfigFileName = "agent_config.yaml"

// FindConfigFile picks the configuration file: explicit wins, then
// $WORKDIR/agent_config.yaml, then ./agent_config.yaml. It returns "" when
// none exists.
func FindConfigFile(explicit string, e *Environment) string {
	if explicit != "" {
		return explicit
	}
	var candidates []string
	if e != nil && e.Workdir != "" {
		candidates = append(candidates, filepath.Join(e.Workdir, ConfigFileName))
	}
	candidates = append(candidates, ConfigFileName)
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}
