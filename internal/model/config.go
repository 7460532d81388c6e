package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable that overrides a config key,
// e.g. TODOAGENT_SYNC_ENABLED overrides sync.enabled.
const EnvPrefix = "TODOAGENT"

// AIConfig holds settings for the screenshot extraction client.
type AIConfig struct {
	// BaseURL is the root of an OpenAI-compatible API, without /chat/completions.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Model is the vision-capable model identifier.
	Model string `mapstructure:"model" yaml:"model"`

	// CustomPrompt is appended to the system instruction.
	CustomPrompt string `mapstructure:"custom_prompt" yaml:"custom_prompt"`

	// CustomHeadersJSON is a JSON object of headers sent with every request,
	// after the default headers.
	CustomHeadersJSON string `mapstructure:"custom_headers_json" yaml:"custom_headers_json"`

	// CustomBodyJSON is a JSON object merged over the request body before it
	// is sent. It is kept as text because viper lowercases map keys and
	// provider parameters such as topP are case-sensitive.
	CustomBodyJSON string `mapstructure:"custom_body_json" yaml:"custom_body_json"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Headers decodes CustomHeadersJSON. An empty value yields nil.
func (c AIConfig) Headers() (map[string]string, error) {
	if strings.TrimSpace(c.CustomHeadersJSON) == "" {
		return nil, nil
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(c.CustomHeadersJSON), &headers); err != nil {
		return nil, fmt.Errorf("ai.custom_headers_json: %w", err)
	}
	return headers, nil
}

// Body decodes CustomBodyJSON. An empty value yields nil.
func (c AIConfig) Body() (map[string]any, error) {
	if strings.TrimSpace(c.CustomBodyJSON) == "" {
		return nil, nil
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(c.CustomBodyJSON), &body); err != nil {
		return nil, fmt.Errorf("ai.custom_body_json: %w", err)
	}
	return body, nil
}

// Timeout returns the transport timeout for extraction calls.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// StorageConfig describes the S3-compatible bucket used for sync.
type StorageConfig struct {
	// Endpoint is host[:port] of the object store, e.g. "oss-cn-hangzhou.aliyuncs.com".
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket      string `mapstructure:"bucket" yaml:"bucket"`
	Region      string `mapstructure:"region" yaml:"region"`
	AccessKeyID string `mapstructure:"access_key_id" yaml:"access_key_id"`
	UseSSL      bool   `mapstructure:"use_ssl" yaml:"use_ssl"`

	// ObjectKey is the fixed key holding the sync snapshot.
	ObjectKey string `mapstructure:"object_key" yaml:"object_key"`
}

// Configured reports whether enough is set to reach a bucket.
func (c StorageConfig) Configured() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.AccessKeyID != ""
}

// SyncConfig controls the periodic sync loop.
type SyncConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	IntervalMin int  `mapstructure:"interval_min" yaml:"interval_min"`
}

// Interval returns the delay between scheduled sync cycles.
func (c SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMin) * time.Minute
}

// HTTPConfig holds the local API listener settings.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig selects slog level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	DBPath  string        `mapstructure:"db_path" yaml:"db_path"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/todoagent, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "todoagent")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/todoagent/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultDBPath returns the default location of the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(ConfigDir(), "todos.db")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		DBPath: DefaultDBPath(),
		AI: AIConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			TimeoutSec: 60,
		},
		Storage: StorageConfig{
			Region:    "us-east-1",
			UseSSL:    true,
			ObjectKey: "todo-agent-data.json",
		},
		Sync: SyncConfig{
			Enabled:     false,
			IntervalMin: 60,
		},
		HTTP: HTTPConfig{Addr: "127.0.0.1:7788"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.custom_prompt", "")
	v.SetDefault("ai.custom_headers_json", "")
	v.SetDefault("ai.custom_body_json", "")
	v.SetDefault("ai.timeout_sec", d.AI.TimeoutSec)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", d.Storage.Region)
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.use_ssl", d.Storage.UseSSL)
	v.SetDefault("storage.object_key", d.Storage.ObjectKey)
	v.SetDefault("sync.enabled", d.Sync.Enabled)
	v.SetDefault("sync.interval_min", d.Sync.IntervalMin)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TODOAGENT_ override file values.
// If the file does not exist, defaults plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if _, err := cfg.AI.Headers(); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if _, err := cfg.AI.Body(); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.IntervalMin <= 0 {
		cfg.Sync.IntervalMin = 60
	}
	if cfg.AI.TimeoutSec <= 0 {
		cfg.AI.TimeoutSec = 60
	}
	if cfg.Storage.ObjectKey == "" {
		cfg.Storage.ObjectKey = "todo-agent-data.json"
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. Secrets never pass through here.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("db_path", cfg.DBPath)
	v.Set("ai", cfg.AI)
	v.Set("storage", cfg.Storage)
	v.Set("sync", cfg.Sync)
	v.Set("http", cfg.HTTP)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
