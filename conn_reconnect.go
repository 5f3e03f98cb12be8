package eventchannel

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// session is one connect call's lifetime. Closing it is the intentional
// teardown signal: the run loop stops dialing and serving for this target.
type session struct {
	target    target
	closeC    chan struct{}
	closeOnce sync.Once
}

func newSession(t target) *session {
	return &session{
		target: t,
		closeC: make(chan struct{}),
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.closeC)
	})
}

func (s *session) isClosed() bool {
	select {
	case <-s.closeC:
		return true
	default:
		return false
	}
}

// newBackoff yields the reconnect delay schedule: base, 2x base, 4x base...
// No jitter, so the k-th attempt waits exactly base * 2^(k-1). The schedule
// is bounded by the attempt counter, not by an interval or elapsed-time cap.
func (c *Channel) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectBaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 24 * time.Hour
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// run drives one session through the lifecycle state machine: dial, serve
// while open, then either stop (intentional close), back off and redial
// (unintended close, attempts remaining), or give up. A successful open
// resets the attempt counter and the backoff schedule.
func (c *Channel) run(s *session) {
	bo := c.newBackoff()
	attempts := 0

	for {
		if s.isClosed() {
			return
		}

		conn, err := c.dialTarget(s.target)

		switch {
		case err != nil:
			c.logger.Warnf("dial %s/%s failed: %s", s.target.kind, s.target.id, err)
		case !c.setOpen(s, conn):
			// Session closed or replaced while the dial was in flight.
			conn.Close()
			return
		default:
			attempts = 0
			bo.Reset()
			c.serve(s, conn)
			c.clearOpen(s, conn)
		}

		if s.isClosed() {
			return
		}

		attempts++
		if attempts > c.cfg.MaxReconnectAttempts {
			c.giveUp(s, attempts-1)
			return
		}

		delay := bo.NextBackOff()
		c.logger.Infof(
			"reconnecting to %s/%s, attempt %d/%d in %s",
			s.target.kind, s.target.id, attempts, c.cfg.MaxReconnectAttempts, delay,
		)

		select {
		case <-time.After(delay):
		case <-s.closeC:
			return
		}
	}
}

func (c *Channel) dialTarget(t target) (transport, error) {
	u, err := c.cfg.endpoint(t)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()

	return c.dial(ctx, u)
}

// giveUp abandons the session after exhausting reconnect attempts. The
// caller must explicitly reconnect; the optional onGiveUp callback is the
// only active signal.
func (c *Channel) giveUp(s *session, attempts int) {
	c.mu.Lock()
	current := c.sess == s
	if current {
		c.sess = nil
		c.state = StateDisconnected
	}
	cb := c.onGiveUp
	c.mu.Unlock()

	if !current {
		return
	}

	c.logger.Warnf(
		"giving up on %s/%s after %d reconnect attempts",
		s.target.kind, s.target.id, attempts,
	)

	if cb != nil {
		cb()
	}
}
