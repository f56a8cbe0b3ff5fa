package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quickbite/quickbite/pkg/types"
)

// Default values for the client configuration.
const (
	DefaultServerURL      = "http://localhost:8080"
	DefaultLogLevel       = "info"
	DefaultRequestTimeout = 10 * time.Second
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 60 * time.Second
	DefaultBufferSize     = 10
	DefaultDisplayWindow  = 5 * time.Second
	DefaultToastDelay     = 50 * time.Millisecond
)

// Config holds the client-side configuration parsed from the `client:` section
// of config.yaml. The `server:` key in the same file is ignored.
type Config struct {
	Client ClientConfig `yaml:"client"`
}

// ClientConfig holds all client settings.
type ClientConfig struct {
	// ServerURL is the http(s) base URL of the server. The websocket endpoint
	// is derived from it.
	ServerURL string `yaml:"server_url"`

	// LogLevel is one of debug | info | warn | error. Hot-reloadable.
	LogLevel string `yaml:"log_level"`

	// RequestTimeout bounds every REST call (default 10s).
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Identity  IdentityConfig  `yaml:"identity"`
	Auth      AuthConfig      `yaml:"auth"`
	TLS       TLSConfig       `yaml:"tls"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Feed      FeedConfig      `yaml:"feed"`
}

// IdentityConfig is who this client joins the hub as.
type IdentityConfig struct {
	// UserType is admin or customer.
	UserType string `yaml:"user_type"`

	// UserID is required for customers; it selects the personal room.
	UserID string `yaml:"user_id"`

	UserName  string `yaml:"user_name"`
	UserEmail string `yaml:"user_email"`
}

// Admin reports whether the identity joins the admin room.
func (i IdentityConfig) Admin() bool {
	return i.UserType == types.UserTypeAdmin
}

// AuthConfig configures how the client authenticates to the server.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header carries the key (default "x-api-key").
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the API key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// TLSConfig holds TLS dial options for https and wss endpoints.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification.
	// Only use this against development servers.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `yaml:"ca_file"`
}

// ReconnectConfig bounds the websocket reconnect backoff.
type ReconnectConfig struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// FeedConfig tunes the notification feed.
type FeedConfig struct {
	// BufferSize is how many recent notifications are retained (default 10).
	BufferSize int `yaml:"buffer_size"`

	// DisplayWindow is how long a notification stays visible (default 5s).
	DisplayWindow time.Duration `yaml:"display_window"`

	// ToastDelay defers toast announcements after each event (default 50ms).
	ToastDelay time.Duration `yaml:"toast_delay"`
}

// Level returns the parsed log level.
func (c ClientConfig) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// StreamURL returns the websocket endpoint derived from ServerURL.
func (c ClientConfig) StreamURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String()
}

// Load reads and parses the config file at path, returning the client configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("client config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given: an admin
// client against the local server.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Client: ClientConfig{
			ServerURL:      DefaultServerURL,
			LogLevel:       DefaultLogLevel,
			RequestTimeout: DefaultRequestTimeout,
			Identity:       IdentityConfig{UserType: types.UserTypeAdmin},
			Auth:           AuthConfig{Mode: "none"},
			Reconnect: ReconnectConfig{
				Initial: DefaultBackoffInitial,
				Max:     DefaultBackoffMax,
			},
			Feed: FeedConfig{
				BufferSize:    DefaultBufferSize,
				DisplayWindow: DefaultDisplayWindow,
				ToastDelay:    DefaultToastDelay,
			},
		},
	}
}

// Validate checks c after flags have overridden file values.
func (c ClientConfig) Validate() error {
	return validate(&Config{Client: c})
}

func validate(cfg *Config) error {
	c := cfg.Client

	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("client.server_url %q is not an absolute URL", c.ServerURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("client.server_url scheme %q must be http or https", u.Scheme)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("client.log_level %q must be one of: debug, info, warn, error", c.LogLevel)
	}

	switch c.Identity.UserType {
	case types.UserTypeAdmin:
	case types.UserTypeCustomer:
		if c.Identity.UserID == "" {
			return fmt.Errorf("client.identity.user_id is required for customers")
		}
		if !types.ValidRoom(types.CustomerRoom(c.Identity.UserID)) {
			return fmt.Errorf("client.identity.user_id %q contains invalid characters", c.Identity.UserID)
		}
	default:
		return fmt.Errorf("client.identity.user_type %q must be admin or customer", c.Identity.UserType)
	}

	switch c.Auth.Mode {
	case "none", "":
	case "apikey":
		if c.Auth.KeyEnv == "" {
			return fmt.Errorf("client.auth.key_env is required when mode is apikey")
		}
	default:
		return fmt.Errorf("client.auth.mode %q must be apikey or none", c.Auth.Mode)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("client.request_timeout must be positive")
	}
	if c.Reconnect.Initial <= 0 || c.Reconnect.Max < c.Reconnect.Initial {
		return fmt.Errorf("client.reconnect: initial must be positive and not exceed max")
	}
	if c.Feed.BufferSize < 1 {
		return fmt.Errorf("client.feed.buffer_size must be at least 1")
	}
	if c.Feed.DisplayWindow < 0 || c.Feed.ToastDelay < 0 {
		return fmt.Errorf("client.feed durations must not be negative")
	}
	return nil
}
