// Package dispatch fans inbound frames out to type-scoped subscribers,
// decoupling the channel from game logic. Consumers hold only an
// unsubscribe handle, never the connection.
package dispatch

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

// Handler receives the raw payload of a matching frame.
type Handler func(payload json.RawMessage)

type subscriber struct {
	id int
	fn Handler
}

// Dispatcher parses frames into {type, payload} envelopes and invokes
// every subscriber registered for the frame's type, in subscription
// order. Malformed or unknown frames are dropped and logged; a panicking
// subscriber never prevents the others from running.
type Dispatcher struct {
	log *zap.Logger

	mu     sync.Mutex
	nextID int
	subs   map[types.EventType][]subscriber
}

func New(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		log:  log,
		subs: make(map[types.EventType][]subscriber),
	}
}

// Subscribe registers fn for frames of type t and returns its
// unsubscribe function, which is safe to call more than once and after
// the channel has closed.
func (d *Dispatcher) Subscribe(t types.EventType, fn Handler) (unsubscribe func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs[t] = append(d.subs[t], subscriber{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		list := d.subs[t]
		for i, s := range list {
			if s.id == id {
				d.subs[t] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// OnFrame is the channel manager's frame sink.
func (d *Dispatcher) OnFrame(raw []byte) {
	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.log.Warn("dropping malformed frame", zap.Error(err))
		return
	}
	if !env.Type.Known() {
		d.log.Warn("dropping frame of unknown type", zap.String("type", string(env.Type)))
		return
	}

	d.mu.Lock()
	list := append([]subscriber(nil), d.subs[env.Type]...)
	d.mu.Unlock()

	for _, s := range list {
		d.invoke(env.Type, s, env.Payload)
	}
}

func (d *Dispatcher) invoke(t types.EventType, s subscriber, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("subscriber panicked",
				zap.String("type", string(t)),
				zap.Int("subscriber", s.id),
				zap.Any("panic", r))
		}
	}()
	s.fn(payload)
}
