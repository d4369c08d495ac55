package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. TUTORBOX_TUTOR_API_KEY.
const EnvPrefix = "TUTORBOX"

// DefaultSystemPrompt is the instruction the tutor starts every conversation with.
const DefaultSystemPrompt = "You are an AI tutor that helps students learn Python. " +
	"Provide clear, concise, and helpful explanations."

// Supported server transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Sandbox SandboxConfig `mapstructure:"sandbox" yaml:"sandbox"`
	Tutor   TutorConfig   `mapstructure:"tutor" yaml:"tutor"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport          string `mapstructure:"transport" yaml:"transport"`
	HTTPPort           int    `mapstructure:"http_port" yaml:"http_port"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// SandboxConfig holds configuration for running student submissions.
type SandboxConfig struct {
	Interpreter     string   `mapstructure:"interpreter" yaml:"interpreter"`
	InterpreterArgs []string `mapstructure:"interpreter_args" yaml:"interpreter_args"`
	TimeoutSec      int      `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	KillGraceMS     int      `mapstructure:"kill_grace_ms" yaml:"kill_grace_ms"`
	TempDir         string   `mapstructure:"temp_dir" yaml:"temp_dir"`
	MaxOutputKB     int      `mapstructure:"max_output_kb" yaml:"max_output_kb"`
	MaxSourceKB     int      `mapstructure:"max_source_kb" yaml:"max_source_kb"`
	Environment     []string `mapstructure:"environment" yaml:"environment"`
}

// TutorConfig holds the chat-completion backend settings.
type TutorConfig struct {
	BaseURL           string `mapstructure:"base_url" yaml:"base_url"`
	Model             string `mapstructure:"model" yaml:"model"`
	APIKey            string `mapstructure:"api_key" yaml:"api_key"`
	SystemPrompt      string `mapstructure:"system_prompt" yaml:"system_prompt"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// SessionConfig controls in-memory browser sessions.
type SessionConfig struct {
	TTLMin int `mapstructure:"ttl_min" yaml:"ttl_min"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode" yaml:"mode"`
	Level string `mapstructure:"level" yaml:"level"`
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
	"dpanic": true, "panic": true, "fatal": true,
}

// New loads and validates the application configuration
func New() (*Config, error) {
	return Load(viper.New(), "")
}

// Load reads configuration into v. When path is empty the usual search paths
// are used and a missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// Defaults always decode; an error here would be a programming mistake.
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("decoding default config: %v", err))
	}
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", TransportHTTP)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout_sec", 10)

	v.SetDefault("sandbox.interpreter", "python3")
	v.SetDefault("sandbox.interpreter_args", []string{})
	v.SetDefault("sandbox.timeout_sec", 10)
	v.SetDefault("sandbox.kill_grace_ms", 2000)
	v.SetDefault("sandbox.temp_dir", "")
	v.SetDefault("sandbox.max_output_kb", 1024)
	v.SetDefault("sandbox.max_source_kb", 256)
	// KEY=VALUE pairs; viper lowercases map keys, so a list is used instead.
	v.SetDefault("sandbox.environment", []string{
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONIOENCODING=utf-8",
	})

	v.SetDefault("tutor.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("tutor.model", "gemini-1.5-flash")
	v.SetDefault("tutor.api_key", "")
	v.SetDefault("tutor.system_prompt", DefaultSystemPrompt)
	v.SetDefault("tutor.request_timeout_sec", 60)

	v.SetDefault("session.ttl_min", 120)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != TransportStdio && c.Server.Transport != TransportHTTP {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got: %d", c.Server.HTTPPort)
	}

	if c.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive, got: %d", c.Server.ShutdownTimeoutSec)
	}

	if strings.TrimSpace(c.Sandbox.Interpreter) == "" {
		return errors.New("sandbox.interpreter must not be empty")
	}

	if c.Sandbox.TimeoutSec <= 0 {
		return fmt.Errorf("sandbox.timeout_sec must be positive, got: %d", c.Sandbox.TimeoutSec)
	}

	if c.Sandbox.KillGraceMS <= 0 {
		return fmt.Errorf("sandbox.kill_grace_ms must be positive, got: %d", c.Sandbox.KillGraceMS)
	}

	if c.Sandbox.MaxOutputKB <= 0 {
		return fmt.Errorf("sandbox.max_output_kb must be positive, got: %d", c.Sandbox.MaxOutputKB)
	}

	if c.Sandbox.MaxSourceKB <= 0 {
		return fmt.Errorf("sandbox.max_source_kb must be positive, got: %d", c.Sandbox.MaxSourceKB)
	}

	for _, kv := range c.Sandbox.Environment {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("sandbox.environment entry must be KEY=VALUE, got: %q", kv)
		}
	}

	if c.Sandbox.TempDir != "" {
		info, err := os.Stat(c.Sandbox.TempDir)
		if err != nil {
			return fmt.Errorf("sandbox.temp_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("sandbox.temp_dir is not a directory: %s", c.Sandbox.TempDir)
		}
	}

	if strings.TrimSpace(c.Tutor.Model) == "" {
		return errors.New("tutor.model must not be empty")
	}

	if c.Tutor.RequestTimeoutSec <= 0 {
		return fmt.Errorf("tutor.request_timeout_sec must be positive, got: %d", c.Tutor.RequestTimeoutSec)
	}

	if c.Session.TTLMin <= 0 {
		return fmt.Errorf("session.ttl_min must be positive, got: %d", c.Session.TTLMin)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// GetTimeout returns the execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutSec) * time.Second
}

// GetShutdownTimeout returns how long in-flight requests may take to finish on shutdown.
func (c *Config) GetShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

// GetKillGrace returns how long a killed submission may keep its output pipes open.
func (c *Config) GetKillGrace() time.Duration {
	return time.Duration(c.Sandbox.KillGraceMS) * time.Millisecond
}

// GetTutorTimeout returns the per-request timeout for the tutor backend.
func (c *Config) GetTutorTimeout() time.Duration {
	return time.Duration(c.Tutor.RequestTimeoutSec) * time.Second
}

// GetSessionTTL returns how long an idle session is kept.
func (c *Config) GetSessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMin) * time.Minute
}

// YAML renders the configuration as a config.yaml document. The API key is
// never written out.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	out.Tutor.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteExample writes the default configuration to path.
func WriteExample(path string) error {
	data, err := Default().YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing example config: %w", err)
	}
	return nil
}
