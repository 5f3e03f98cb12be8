package eventchannel

import (
	"time"
)

// keepAliveToken is the literal frame sent periodically while open so the
// server does not drop the connection on idle timeout. The server may answer
// with a keep_alive_ack message, dispatched like any other.
const keepAliveToken = "ping"

// serve is the open-state loop: it owns the keep-alive ticker (started on
// entering open, stopped on any way out) and drains inbound frames in
// arrival order. Returns when the session is closed intentionally or the
// transport dies.
func (c *Channel) serve(s *session, conn transport) {
	ticker := time.NewTicker(c.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeC:
			conn.Close()
			return
		case <-conn.CloseChan():
			c.logger.Warnf("connection to %s/%s closed: %s", s.target.kind, s.target.id, conn.CloseErr())
			return
		case raw := <-conn.Recv():
			c.dispatch(raw)
		case <-ticker.C:
			if err := conn.Send([]byte(keepAliveToken)); err != nil {
				c.logger.Warnf("keep-alive send failed: %s", err)
			}
		}
	}
}
