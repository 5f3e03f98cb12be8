package eventchannel

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

type (
	// transport is one live connection to the realtime backend. It pushes
	// every inbound text frame to Recv and signals closure via CloseChan.
	transport interface {
		Send(data []byte) error
		Recv() <-chan []byte
		CloseChan() <-chan struct{}
		CloseErr() error
		Close()
	}

	// dialFunc opens a transport to u. Production uses the websocket
	// dialer; tests inject an in-memory fake.
	dialFunc func(ctx context.Context, u url.URL) (transport, error)
)

// wsConn is the websocket-backed transport.
type wsConn struct {
	logger          Logger
	conn            *websocket.Conn
	recv            chan []byte
	closeChan       chan struct{}
	closeOnce       sync.Once
	closeReason     error
	closeReasonOnce sync.Once
	writeMu         sync.Mutex
	writeTimeout    time.Duration
}

// newWebsocketDialFunc returns the production dialFunc. Dial failures are
// wrapped as ErrCannotConnect; a successful dial spawns the read pump.
func newWebsocketDialFunc(logger Logger, dialTimeout time.Duration) dialFunc {
	return func(ctx context.Context, u url.URL) (transport, error) {
		dialer := &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: dialTimeout,
		}

		conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if resp != nil {
				return nil, errors.Wrapf(ErrCannotConnect, "%s (status %d)", err, resp.StatusCode)
			}
			return nil, errors.Wrap(ErrCannotConnect, err.Error())
		}

		w := &wsConn{
			logger:       logger.WithField("net", "ws_connection"),
			conn:         conn,
			recv:         make(chan []byte, 32),
			closeChan:    make(chan struct{}),
			writeTimeout: time.Second,
		}

		conn.SetCloseHandler(func(code int, text string) error {
			w.logger.Debugf("<= [CLOSE] %d %s", code, text)
			w.setCloseReason(errors.Wrapf(ErrConnectionClosed, "close frame %d", code))
			return nil
		})

		go w.read()

		return w, nil
	}
}

func (w *wsConn) Recv() <-chan []byte {
	return w.recv
}

func (w *wsConn) CloseChan() <-chan struct{} {
	return w.closeChan
}

func (w *wsConn) CloseErr() error {
	return w.closeReason
}

// Send writes one text frame. Sends are direct and never queued across
// reconnects.
func (w *wsConn) Send(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	select {
	case <-w.closeChan:
		return ErrConnectionClosed
	default:
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}

	return nil
}

func (w *wsConn) Close() {
	w.setCloseReason(ErrTerminated)
	w.safeClose()
}

// read pumps inbound frames into recv until the socket fails or is closed
// locally. Closing the underlying conn unblocks ReadMessage.
func (w *wsConn) read() {
	defer w.safeClose()

	for {
		_, bts, err := w.conn.ReadMessage()
		if err != nil {
			w.setCloseReason(errors.Wrap(ErrConnectionClosed, err.Error()))
			return
		}

		w.logger.Debugf("<= [DATA] %s", bts)

		select {
		case w.recv <- bts:
		case <-w.closeChan:
			return
		}
	}
}

func (w *wsConn) safeClose() {
	w.closeOnce.Do(func() {
		_ = w.conn.Close()
		close(w.closeChan)
	})
}

func (w *wsConn) setCloseReason(err error) {
	w.closeReasonOnce.Do(func() {
		w.closeReason = err
	})
}
