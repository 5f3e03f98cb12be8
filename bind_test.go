package eventchannel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBindRejectsInvalidIdentity(t *testing.T) {
	ch := newTestChannel(t, newFakeDialer())

	err := Bind(context.Background(), ch, Identity{}, BindOptions{})
	require.ErrorIs(t, err, ErrInvalidIdentity)

	err = Bind(context.Background(), ch, Identity{UserID: "1", MesterID: "2"}, BindOptions{})
	require.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestBindConnectsAndDelivers(t *testing.T) {
	d := newFakeDialer()
	ch := newTestChannel(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var any, acks int

	err := Bind(ctx, ch, Identity{UserID: "42"}, BindOptions{
		OnMessage: func(m *Message) {
			mu.Lock()
			any++
			mu.Unlock()
		},
		OnConnected: func(m *Message) {
			mu.Lock()
			acks++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	waitConnected(t, ch)

	d.conn(0).push(`{"type":"connection_ack"}`)
	d.conn(0).push(`{"type":"new_offer","data":{"id":3}}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		// The ack reaches both its typed handler and the wildcard.
		return acks == 1 && any == 2
	}, waitFor, tick)
}

func TestBindTearsDownOnContextExit(t *testing.T) {
	d := newFakeDialer()
	ch := newTestChannel(t, d)

	ctx, cancel := context.WithCancel(context.Background())

	err := Bind(ctx, ch, Identity{MesterID: "m-7"}, BindOptions{
		OnMessage: func(m *Message) {},
	})
	require.NoError(t, err)
	waitConnected(t, ch)

	cancel()

	require.Eventually(t, func() bool {
		return !ch.IsConnected()
	}, waitFor, tick)

	require.Eventually(t, func() bool {
		ch.registry.lock.RLock()
		defer ch.registry.lock.RUnlock()
		return len(ch.registry.handlers) == 0
	}, waitFor, tick, "bind must remove its registrations on teardown")

	dials := d.dialCount()
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, dials, d.dialCount(), "teardown must not trigger reconnection")
}

func TestBindTypeRespectsEnabledFlag(t *testing.T) {
	d := newFakeDialer()
	ch := newTestChannel(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var enabledCalls, disabledCalls int

	BindType(ctx, ch, TypeNotification, func(m *Message) {
		mu.Lock()
		enabledCalls++
		mu.Unlock()
	}, true)
	BindType(ctx, ch, TypeNotification, func(m *Message) {
		mu.Lock()
		disabledCalls++
		mu.Unlock()
	}, false)

	ch.ConnectAsUser("42")
	waitConnected(t, ch)

	d.conn(0).push(`{"type":"notification","data":{"id":1}}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return enabledCalls == 1
	}, waitFor, tick)

	mu.Lock()
	require.Zero(t, disabledCalls)
	mu.Unlock()
}

func TestBindTypeUnsubscribesOnContextExit(t *testing.T) {
	d := newFakeDialer()
	ch := newTestChannel(t, d)

	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var calls int
	BindType(ctx, ch, TypeNewMessage, func(m *Message) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, true)

	ch.ConnectAsUser("42")
	waitConnected(t, ch)

	d.conn(0).push(`{"type":"new_message","data":{"id":1}}`)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, waitFor, tick)

	cancel()
	require.Eventually(t, func() bool {
		ch.registry.lock.RLock()
		defer ch.registry.lock.RUnlock()
		return len(ch.registry.handlers) == 0
	}, waitFor, tick)

	d.conn(0).push(`{"type":"new_message","data":{"id":2}}`)
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	require.Equal(t, 1, calls, "handler must not fire after unsubscribe")
	mu.Unlock()
}
