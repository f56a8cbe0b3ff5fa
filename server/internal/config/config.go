package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quickbite/quickbite/pkg/types"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultLogLevel       = "info"
	DefaultStoreBackend   = "memory"
	DefaultKeyPrefix      = "quickbite:"
	DefaultRetention      = 24 * time.Hour
	DefaultSendBuffer     = 32
	DefaultMaxMessageSize = 64 << 10
	DefaultCooldown       = 5 * time.Minute
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `client:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and websocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of debug | info | warn | error. Hot-reloadable.
	LogLevel string `yaml:"log_level"`

	// CORSOrigins lists browser origins allowed to call the REST API.
	// Empty allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`

	Auth   AuthConfig   `yaml:"auth"`
	Store  StoreConfig  `yaml:"store"`
	Hub    HubConfig    `yaml:"hub"`
	Notify NotifyConfig `yaml:"notify"`
}

// AuthConfig controls admin authentication for REST routes and the admin room.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StoreConfig selects and tunes the order store.
type StoreConfig struct {
	// Backend is one of: memory | redis.
	Backend string `yaml:"backend"`

	// RedisURLEnv names the environment variable holding the redis:// URL.
	RedisURLEnv string `yaml:"redis_url_env"`

	// KeyPrefix namespaces every Redis key (default "quickbite:").
	KeyPrefix string `yaml:"key_prefix"`

	// Retention is how long completed and cancelled orders are kept
	// (default 24h). Zero keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

// RedisURL returns the Redis URL resolved from the environment.
func (s StoreConfig) RedisURL() string {
	if s.RedisURLEnv == "" {
		return ""
	}
	return os.Getenv(s.RedisURLEnv)
}

// HubConfig tunes the websocket transport.
type HubConfig struct {
	// SendBuffer is the per-connection outbound queue depth (default 32).
	SendBuffer int `yaml:"send_buffer"`

	// MaxMessageSize caps inbound frames in bytes (default 64 KiB).
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// NotifyConfig configures outbound webhook notifications.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`

	// Cooldown suppresses repeat notifications with the same dedupe key.
	// Defaults to 5 minutes.
	Cooldown time.Duration `yaml:"cooldown"`

	// Events limits which event kinds are forwarded. Empty forwards all.
	Events []types.EventKind `yaml:"events"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Level returns the parsed log level. Load has already validated it.
func (s ServerConfig) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Auth:     AuthConfig{Mode: "none"},
			Store: StoreConfig{
				Backend:   DefaultStoreBackend,
				KeyPrefix: DefaultKeyPrefix,
				Retention: DefaultRetention,
			},
			Hub: HubConfig{
				SendBuffer:     DefaultSendBuffer,
				MaxMessageSize: DefaultMaxMessageSize,
			},
			Notify: NotifyConfig{
				Cooldown: DefaultCooldown,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	switch s.Store.Backend {
	case "memory":
	case "redis":
		if s.Store.RedisURLEnv == "" {
			return fmt.Errorf("server.store.redis_url_env is required for the redis backend")
		}
	default:
		return fmt.Errorf("server.store.backend %q unknown: want memory|redis", s.Store.Backend)
	}
	if s.Store.Retention < 0 {
		return fmt.Errorf("server.store.retention must not be negative")
	}
	if s.Hub.SendBuffer <= 0 {
		return fmt.Errorf("server.hub.send_buffer must be positive")
	}
	if s.Hub.MaxMessageSize <= 0 {
		return fmt.Errorf("server.hub.max_message_size must be positive")
	}
	if s.Notify.Cooldown < 0 {
		return fmt.Errorf("server.notify.cooldown must not be negative")
	}
	for i, w := range s.Notify.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.notify.webhooks[%d].type %q unknown: want slack|teams|http", i, w.Type)
		}
		if w.URLEnv == "" {
			return fmt.Errorf("server.notify.webhooks[%d].url_env is required", i)
		}
	}
	for _, k := range s.Notify.Events {
		if k != types.KindOrderPlaced && k != types.KindStatusChanged {
			return fmt.Errorf("server.notify.events: unknown kind %q", k)
		}
	}
	return nil
}
