package eventchannel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, 30*time.Second, cfg.KeepAliveInterval)
	require.Equal(t, time.Second, cfg.ReconnectBaseDelay)
	require.Equal(t, 5, cfg.MaxReconnectAttempts)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("EVENTCHANNEL_WS_URL", "wss://rt.example.com")
	t.Setenv("EVENTCHANNEL_KEEPALIVE_INTERVAL", "15s")
	t.Setenv("EVENTCHANNEL_RECONNECT_BASE_DELAY", "500ms")
	t.Setenv("EVENTCHANNEL_MAX_RECONNECT_ATTEMPTS", "8")

	cfg := ConfigFromEnv()

	require.Equal(t, "wss://rt.example.com", cfg.BaseURL)
	require.Equal(t, 15*time.Second, cfg.KeepAliveInterval)
	require.Equal(t, 500*time.Millisecond, cfg.ReconnectBaseDelay)
	require.Equal(t, 8, cfg.MaxReconnectAttempts)
}

func TestConfigFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("EVENTCHANNEL_KEEPALIVE_INTERVAL", "soonish")
	t.Setenv("EVENTCHANNEL_MAX_RECONNECT_ATTEMPTS", "-2")

	cfg := ConfigFromEnv()

	require.Equal(t, DefaultKeepAliveInterval, cfg.KeepAliveInterval)
	require.Equal(t, DefaultMaxReconnectAttempts, cfg.MaxReconnectAttempts)
}

func TestApplyDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{BaseURL: "ws://custom:9000"}
	cfg.applyDefaults()

	require.Equal(t, "ws://custom:9000", cfg.BaseURL)
	require.Equal(t, DefaultKeepAliveInterval, cfg.KeepAliveInterval)
	require.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
}

func TestEndpointResolution(t *testing.T) {
	cfg := DefaultConfig()

	u, err := cfg.endpoint(target{kind: targetUser, id: "42"})
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8000/ws/user/42", u.String())

	u, err = cfg.endpoint(target{kind: targetMester, id: "m-9"})
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8000/ws/mester/m-9", u.String())
}

func TestEndpointBadBaseURL(t *testing.T) {
	cfg := Config{BaseURL: "://nope"}

	_, err := cfg.endpoint(target{kind: targetUser, id: "1"})
	require.ErrorIs(t, err, ErrCannotConnect)
}
