package eventchannel

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// DefaultBaseURL points at the local development backend.
	DefaultBaseURL = "ws://localhost:8000"

	DefaultKeepAliveInterval    = 30 * time.Second
	DefaultReconnectBaseDelay   = time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultDialTimeout          = 10 * time.Second
)

// Config carries the tunables of a channel client. Zero fields are replaced
// with defaults by applyDefaults, so a zero Config is usable.
type Config struct {
	// BaseURL is the ws:// or wss:// address of the realtime backend.
	BaseURL string
	// KeepAliveInterval is the cadence of the keep-alive token while open.
	KeepAliveInterval time.Duration
	// ReconnectBaseDelay is the delay before the first reconnect attempt;
	// it doubles on every consecutive failure.
	ReconnectBaseDelay time.Duration
	// MaxReconnectAttempts bounds consecutive reconnect attempts before the
	// client gives up and waits for an explicit connect call.
	MaxReconnectAttempts int
	DialTimeout          time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:              DefaultBaseURL,
		KeepAliveInterval:    DefaultKeepAliveInterval,
		ReconnectBaseDelay:   DefaultReconnectBaseDelay,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		DialTimeout:          DefaultDialTimeout,
	}
}

// ConfigFromEnv builds a Config from EVENTCHANNEL_* environment variables,
// loading a .env file first when one is present. Unset or unparsable
// variables fall back to defaults.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("EVENTCHANNEL_WS_URL"); v != "" {
		cfg.BaseURL = v
	}
	if d, ok := envDuration("EVENTCHANNEL_KEEPALIVE_INTERVAL"); ok {
		cfg.KeepAliveInterval = d
	}
	if d, ok := envDuration("EVENTCHANNEL_RECONNECT_BASE_DELAY"); ok {
		cfg.ReconnectBaseDelay = d
	}
	if v := os.Getenv("EVENTCHANNEL_MAX_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxReconnectAttempts = n
		}
	}
	if d, ok := envDuration("EVENTCHANNEL_DIAL_TIMEOUT"); ok {
		cfg.DialTimeout = d
	}

	return cfg
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = def.KeepAliveInterval
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
}

// endpoint resolves the connection URL for a target, of the form
// {base}/ws/user/{id} or {base}/ws/mester/{id}.
func (c Config) endpoint(t target) (url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return url.URL{}, errors.Wrapf(ErrCannotConnect, "bad base url %q: %s", c.BaseURL, err)
	}

	u.Path = "/ws/" + string(t.kind) + "/" + t.id

	return *u, nil
}
