package eventchannel

import (
	"context"
)

// Identity selects the channel scope. Exactly one of UserID or MesterID
// must be set.
type Identity struct {
	UserID   string
	MesterID string
}

func (id Identity) valid() bool {
	return (id.UserID == "") != (id.MesterID == "")
}

// BindOptions are the optional callbacks attached by Bind.
type BindOptions struct {
	// OnMessage receives every inbound message (wildcard).
	OnMessage Handler
	// OnConnected fires when the server acknowledges the connection.
	OnConnected Handler
}

// Bind establishes the subscription for the lifetime of ctx: it registers
// the optional callbacks, connects the channel for the given identity, and
// tears both down when ctx is done. The only error is an invalid identity.
func Bind(ctx context.Context, ch *Channel, id Identity, opts BindOptions) error {
	if !id.valid() {
		return ErrInvalidIdentity
	}

	var offs []func()
	if opts.OnMessage != nil {
		offs = append(offs, ch.OnAny(opts.OnMessage))
	}
	if opts.OnConnected != nil {
		offs = append(offs, ch.On(TypeConnectionAck, opts.OnConnected))
	}

	if id.UserID != "" {
		ch.ConnectAsUser(id.UserID)
	} else {
		ch.ConnectAsMester(id.MesterID)
	}

	go func() {
		<-ctx.Done()
		for _, off := range offs {
			off()
		}
		ch.Disconnect()
	}()

	return nil
}

// BindType subscribes h to one message type for the lifetime of ctx. The
// enabled flag gates the whole subscription, so call sites can toggle it
// without branching.
func BindType(ctx context.Context, ch *Channel, t MessageType, h Handler, enabled bool) {
	if !enabled || h == nil {
		return
	}

	off := ch.On(t, h)

	go func() {
		<-ctx.Done()
		off()
	}()
}
