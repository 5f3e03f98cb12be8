package eventchannel

import (
	"sync"
)

// ConnectionState is the lifecycle state of the channel, owned exclusively
// by the client.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

type targetKind string

const (
	targetUser   targetKind = "user"
	targetMester targetKind = "mester"
)

// target identifies the channel endpoint: exactly one identity kind plus its
// id. At most one target is active per client.
type target struct {
	kind targetKind
	id   string
}

// Option configures a Channel at construction time.
type Option func(*Channel)

// WithLogger replaces the default stderr logger.
func WithLogger(l Logger) Option {
	return func(c *Channel) {
		c.logger = l
	}
}

// WithOnGiveUp registers a callback fired once when the client exhausts its
// reconnect attempts. Without it, exhaustion is observable only through
// IsConnected.
func WithOnGiveUp(fn func()) Option {
	return func(c *Channel) {
		c.onGiveUp = fn
	}
}

// withDialFunc swaps the websocket dialer for a scripted one. Test hook.
func withDialFunc(d dialFunc) Option {
	return func(c *Channel) {
		c.dial = d
	}
}

// Channel maintains at most one live connection to the realtime backend for
// a user or mester identity, recovers from unintended disconnects with
// exponential backoff, and fans inbound messages out to registered handlers.
//
// Create one instance per logical subscriber and dispose of it with Close.
// All methods are safe for concurrent use.
type Channel struct {
	cfg      Config
	logger   Logger
	dial     dialFunc
	registry *handlerRegistry
	onGiveUp func()

	mu    sync.Mutex
	sess  *session
	conn  transport
	state ConnectionState
}

// New builds a disconnected Channel. Zero Config fields take defaults.
func New(cfg Config, opts ...Option) *Channel {
	cfg.applyDefaults()

	c := &Channel{
		cfg:      cfg,
		logger:   NewDefaultLogger(),
		registry: newHandlerRegistry(),
		state:    StateDisconnected,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dial == nil {
		c.dial = newWebsocketDialFunc(c.logger, cfg.DialTimeout)
	}

	return c
}

// ConnectAsUser opens the channel scoped to a customer identity. A no-op
// when already open to the same user; any other active connection is torn
// down first, without reconnection for the old target.
func (c *Channel) ConnectAsUser(userID string) {
	if userID == "" {
		c.logger.Warnf("connect ignored: empty user id")
		return
	}
	c.connect(target{kind: targetUser, id: userID})
}

// ConnectAsMester opens the channel scoped to a professional (mester)
// identity. Same replacement semantics as ConnectAsUser.
func (c *Channel) ConnectAsMester(mesterID string) {
	if mesterID == "" {
		c.logger.Warnf("connect ignored: empty mester id")
		return
	}
	c.connect(target{kind: targetMester, id: mesterID})
}

func (c *Channel) connect(t target) {
	c.mu.Lock()
	if c.sess != nil && c.sess.target == t && c.state == StateOpen {
		c.mu.Unlock()
		c.logger.Debugf("already connected to %s/%s", t.kind, t.id)
		return
	}

	prevSess := c.sess
	prevConn := c.conn
	s := newSession(t)
	c.sess = s
	c.conn = nil
	c.state = StateConnecting
	c.mu.Unlock()

	// Intentional close of the previous target: its run loop must not
	// reconnect.
	if prevSess != nil {
		prevSess.close()
	}
	if prevConn != nil {
		prevConn.Close()
	}

	go c.run(s)
}

// Disconnect intentionally closes the channel: the keep-alive ticker stops,
// no reconnection is attempted, and the transport is released. Idempotent
// and safe to call while disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	s := c.sess
	conn := c.conn
	c.sess = nil
	c.conn = nil
	if c.state != StateDisconnected {
		c.state = StateClosing
	}
	c.mu.Unlock()

	if s != nil {
		s.close()
	}
	if conn != nil {
		conn.Close()
	}

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
}

// Close disconnects and drops every handler registration. The Channel must
// not be reused afterwards.
func (c *Channel) Close() {
	c.Disconnect()
	c.registry.clear()
}

// On registers a handler for one message type. The returned function
// deregisters exactly that handler; the last removal for a type prunes its
// registry entry. Registrations survive reconnects.
func (c *Channel) On(t MessageType, h Handler) func() {
	return c.registry.on(t, h)
}

// OnAny registers a wildcard handler invoked for every inbound message,
// after the type-specific handlers.
func (c *Channel) OnAny(h Handler) func() {
	return c.registry.on(TypeAny, h)
}

// Send transmits raw verbatim over the open connection. When the channel is
// not open the message is dropped with a warning; nothing is ever queued
// across reconnects.
func (c *Channel) Send(raw string) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		c.logger.Warnf("send dropped, channel is not open")
		return
	}

	if err := conn.Send([]byte(raw)); err != nil {
		c.logger.Warnf("send failed: %s", err)
	}
}

// IsConnected reports whether the transport is currently open.
func (c *Channel) IsConnected() bool {
	return c.State() == StateOpen
}

func (c *Channel) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setOpen installs conn as the live transport unless the session was closed
// or replaced while dialing.
func (c *Channel) setOpen(s *session, conn transport) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.isClosed() || c.sess != s {
		return false
	}

	c.conn = conn
	c.state = StateOpen
	c.logger.Infof("channel open to %s/%s", s.target.kind, s.target.id)

	return true
}

func (c *Channel) clearOpen(s *session, conn transport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	if c.sess == s && c.state == StateOpen {
		c.state = StateDisconnected
	}
}

// dispatch parses one inbound frame and fans it out. Malformed frames are
// logged and dropped; they never reach handlers or the caller.
func (c *Channel) dispatch(raw []byte) {
	m, err := parseMessage(raw)
	if err != nil {
		c.logger.Errorf("dropping inbound frame: %s", err)
		return
	}

	c.registry.dispatch(m, c.logger)
}
