package eventchannel

import (
	"sync"

	"github.com/google/uuid"
)

// Handler is a caller-supplied callback invoked once per matching inbound
// message. Handlers registered for the same type run in registration order.
type Handler func(*Message)

type registration struct {
	id uuid.UUID
	fn Handler
}

// handlerRegistry maps message types (including the TypeAny wildcard) to
// ordered handler registrations. Registrations outlive individual
// connections; they are removed only through the function returned by on.
type handlerRegistry struct {
	lock     sync.RWMutex
	handlers map[MessageType][]registration
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		handlers: make(map[MessageType][]registration),
	}
}

// on registers a handler and returns a deregistration function that removes
// exactly that handler without disturbing siblings of the same type.
func (r *handlerRegistry) on(t MessageType, h Handler) func() {
	id := uuid.New()

	r.lock.Lock()
	r.handlers[t] = append(r.handlers[t], registration{id: id, fn: h})
	r.lock.Unlock()

	return func() {
		r.off(t, id)
	}
}

func (r *handlerRegistry) off(t MessageType, id uuid.UUID) {
	r.lock.Lock()
	defer r.lock.Unlock()

	regs := r.handlers[t]
	for i, reg := range regs {
		if reg.id == id {
			r.handlers[t] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(r.handlers[t]) == 0 {
		delete(r.handlers, t)
	}
}

// dispatch delivers m to the handlers registered for its type, then to
// wildcard handlers. Unknown-type messages reach wildcard handlers only.
// A panicking handler is logged and never blocks the remaining ones.
func (r *handlerRegistry) dispatch(m *Message, logger Logger) {
	r.lock.RLock()
	var regs []registration
	if !m.Type.Is(TypeUnknown) {
		regs = append(regs, r.handlers[m.Type]...)
	}
	regs = append(regs, r.handlers[TypeAny]...)
	r.lock.RUnlock()

	for _, reg := range regs {
		invoke(reg.fn, m, logger)
	}
}

func invoke(h Handler, m *Message, logger Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("handler panicked on %s: %v", m.Type, rec)
		}
	}()

	h(m)
}

func (r *handlerRegistry) clear() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.handlers = make(map[MessageType][]registration)
}
