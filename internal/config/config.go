// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ErrMissingCredentials is returned by Validate when Bedrock credentials
// are incomplete.
var ErrMissingCredentials = errors.New(
	"missing AWS Bedrock credentials: provide AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, and AWS_REGION")

// Config is the process configuration. It is built once at startup and
// passed explicitly.
type Config struct {
	AWS      AWSConfig      `koanf:"aws"`
	Model    ModelConfig    `koanf:"model"`
	Log      LogConfig      `koanf:"log"`
	MCP      MCPConfig      `koanf:"mcp"`
	Session  SessionConfig  `koanf:"session"`
	Workflow WorkflowConfig `koanf:"workflow"`
}

// AWSConfig holds Bedrock credentials.
type AWSConfig struct {
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	Region          string `koanf:"region"`
}

// ModelConfig holds inference defaults.
type ModelConfig struct {
	Name           string  `koanf:"name"            validate:"required"`
	Temperature    float64 `koanf:"temperature"`
	MaxTokens      int     `koanf:"max_tokens"      validate:"gt=0"`
	TimeoutSeconds int     `koanf:"timeout_seconds" validate:"gt=0"`
	MaxRetries     int     `koanf:"max_retries"     validate:"gte=0,lte=10"`
	SystemPrompt   string  `koanf:"system_prompt"`
}

// Timeout returns TimeoutSeconds as a duration.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// LogConfig selects log level and handler. An empty Format lets the caller
// pick one for its run mode.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

// MCPConfig points at an optional MCP tool server.
type MCPConfig struct {
	ServerURL string `koanf:"server_url" validate:"omitempty,url"`
}

// SessionConfig selects the transcript store. An empty DBPath keeps
// transcripts in memory.
type SessionConfig struct {
	DBPath string `koanf:"db_path"`
}

// WorkflowConfig bounds pipeline invocations.
type WorkflowConfig struct {
	MaxIterations int `koanf:"max_iterations" validate:"gt=0"`
}

// envKeys maps recognized environment variables to config keys.
var envKeys = map[string]string{
	"AWS_ACCESS_KEY_ID":     "aws.access_key_id",
	"AWS_SECRET_ACCESS_KEY": "aws.secret_access_key",
	"AWS_SESSION_TOKEN":     "aws.session_token",
	"AWS_REGION":            "aws.region",
	"MODEL_NAME":            "model.name",
	"TEMPERATURE":           "model.temperature",
	"MAX_TOKENS":            "model.max_tokens",
	"TIMEOUT_SECONDS":       "model.timeout_seconds",
	"MAX_RETRIES":           "model.max_retries",
	"SYSTEM_PROMPT":         "model.system_prompt",
	"LOG_LEVEL":             "log.level",
	"LOG_FORMAT":            "log.format",
	"MCP_SERVER_URL":        "mcp.server_url",
	"SESSION_DB_PATH":       "session.db_path",
	"MAX_ITERATIONS":        "workflow.max_iterations",
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		AWS: AWSConfig{Region: "us-east-1"},
		Model: ModelConfig{
			Name:           "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
			Temperature:    0.7,
			MaxTokens:      4096,
			TimeoutSeconds: 60,
		},
		Log:      LogConfig{Level: "info"},
		Workflow: WorkflowConfig{MaxIterations: 100},
	}
}

type loadOptions struct {
	envFiles []string
	environ  func() []string
}

// Option configures Load.
type Option func(*loadOptions)

// WithEnvFiles sets the .env files read before the environment.
// Missing files are ignored. Default: ".env".
func WithEnvFiles(paths ...string) Option {
	return func(o *loadOptions) { o.envFiles = paths }
}

// WithEnviron replaces the process environment as the variable source.
func WithEnviron(environ func() []string) Option {
	return func(o *loadOptions) { o.environ = environ }
}

// Load builds a Config from defaults, .env files and the environment, in
// increasing precedence. When several .env files set a variable, the first
// file wins.
func Load(opts ...Option) (*Config, error) {
	lo := loadOptions{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(&lo)
	}

	dotenv := make(map[string]string)
	for _, path := range lo.envFiles {
		vars, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range vars {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// .env entries load first so real environment variables win.
	dotenvList := make([]string, 0, len(dotenv))
	for key, v := range dotenv {
		dotenvList = append(dotenvList, key+"="+v)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: transformEnv,
		EnvironFunc:   func() []string { return dotenvList },
	}), nil); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	envOpt := env.Opt{TransformFunc: transformEnv}
	if lo.environ != nil {
		envOpt.EnvironFunc = lo.environ
	}
	if err := k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	cfg.normalize()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.AWS.Region = strings.TrimSpace(c.AWS.Region)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch {
	case c.Model.Temperature < 0:
		c.Model.Temperature = 0
	case c.Model.Temperature > 1:
		c.Model.Temperature = 1
	}
}

// HasBedrockCredentials reports whether the access key, secret and region
// are all set.
func (c *Config) HasBedrockCredentials() bool {
	return c.AWS.AccessKeyID != "" && c.AWS.SecretAccessKey != "" && c.AWS.Region != ""
}

// HasMCP reports whether an MCP server is configured.
func (c *Config) HasMCP() bool {
	return c.MCP.ServerURL != ""
}

// Validate fails when Bedrock credentials are incomplete.
func (c *Config) Validate() error {
	if !c.HasBedrockCredentials() {
		return ErrMissingCredentials
	}
	return nil
}

// transformEnv maps a recognized variable to its config key and blanks
// everything else.
func transformEnv(key, value string) (string, any) {
	path, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	return path, value
}
