package eventchannel

import (
	"context"
	"net/url"
	"sync"

	"github.com/pkg/errors"
)

// fakeTransport is an in-memory transport for tests. Inbound frames are
// injected with push, closure is driven with fail (unintended) or Close
// (local), and outbound frames are recorded.
type fakeTransport struct {
	mu        sync.Mutex
	sent      [][]byte
	recv      chan []byte
	closeC    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		recv:   make(chan []byte, 32),
		closeC: make(chan struct{}),
	}
}

func (f *fakeTransport) Send(data []byte) error {
	select {
	case <-f.closeC:
		return ErrConnectionClosed
	default:
	}

	f.mu.Lock()
	f.sent = append(f.sent, append([]byte(nil), data...))
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Recv() <-chan []byte {
	return f.recv
}

func (f *fakeTransport) CloseChan() <-chan struct{} {
	return f.closeC
}

func (f *fakeTransport) CloseErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeErr
}

func (f *fakeTransport) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		if f.closeErr == nil {
			f.closeErr = ErrTerminated
		}
		f.mu.Unlock()
		close(f.closeC)
	})
}

// push injects an inbound frame as if read from the wire.
func (f *fakeTransport) push(raw string) {
	f.recv <- []byte(raw)
}

// fail closes the transport as the server would: an unintended close.
func (f *fakeTransport) fail() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closeErr = ErrConnectionClosed
		f.mu.Unlock()
		close(f.closeC)
	})
}

func (f *fakeTransport) sentFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.sent))
	for i, b := range f.sent {
		out[i] = string(b)
	}
	return out
}

// fakeDialer scripts consecutive dial outcomes. Each dial either fails
// (nil entry) or hands out a fresh fakeTransport.
type fakeDialer struct {
	mu    sync.Mutex
	fails int // number of leading dials that fail
	conns []*fakeTransport
	urls  []string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{}
}

// failNext makes the next n dials fail with ErrCannotConnect.
func (d *fakeDialer) failNext(n int) {
	d.mu.Lock()
	d.fails = n
	d.mu.Unlock()
}

func (d *fakeDialer) dial(_ context.Context, u url.URL) (transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, u.String())

	if d.fails > 0 {
		d.fails--
		return nil, errors.Wrap(ErrCannotConnect, "scripted dial failure")
	}

	conn := newFakeTransport()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) dialedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// conn returns the i-th successfully dialed transport, nil when absent.
func (d *fakeDialer) conn(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i < 0 || i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}
