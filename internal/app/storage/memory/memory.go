// Package memory provides the in-memory persistence backend. A Bus models
// one shared storage area; each Adapter attached to it models one engine
// replica (one browser tab, in storefront terms). Writes through one adapter
// notify the subscribers of every other adapter sharing the namespace,
// mirroring how storage change events fire everywhere except the writing
// context.
package memory

import (
	"context"
	"sync"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/storage"
)

// Bus is a shared in-memory storage area. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	records  map[string][]byte
	adapters map[*Adapter]struct{}
}

// NewBus creates an empty storage area.
func NewBus() *Bus {
	return &Bus{
		records:  make(map[string][]byte),
		adapters: make(map[*Adapter]struct{}),
	}
}

// Adapter attaches a new replica adapter for the given namespace.
func (b *Bus) Adapter(namespace string) *Adapter {
	a := &Adapter{
		bus:         b,
		key:         storage.RecordKey(namespace),
		subscribers: make(map[int]func(cart.Cart)),
	}
	b.mu.Lock()
	b.adapters[a] = struct{}{}
	b.mu.Unlock()
	return a
}

func (b *Bus) write(key string, data []byte, source *Adapter) {
	b.mu.Lock()
	b.records[key] = append([]byte(nil), data...)
	targets := make([]*Adapter, 0, len(b.adapters))
	for a := range b.adapters {
		if a != source && a.key == key {
			targets = append(targets, a)
		}
	}
	b.mu.Unlock()

	for _, a := range targets {
		a.deliver(data)
	}
}

func (b *Bus) read(key string) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]byte(nil), b.records[key]...)
}

func (b *Bus) detach(a *Adapter) {
	b.mu.Lock()
	delete(b.adapters, a)
	b.mu.Unlock()
}

// Adapter implements storage.CartStore over a Bus.
type Adapter struct {
	bus *Bus
	key string

	mu          sync.Mutex
	nextSub     int
	subscribers map[int]func(cart.Cart)
	closed      bool
}

var _ storage.CartStore = (*Adapter)(nil)

// Load reads and decodes the persisted cart. Missing and malformed records
// both decode as an empty cart.
func (a *Adapter) Load(_ context.Context) (cart.Cart, error) {
	return storage.Decode(a.bus.read(a.key)), nil
}

// Save encodes and writes the cart, then notifies the other replicas on the
// bus sharing this namespace.
func (a *Adapter) Save(_ context.Context, c cart.Cart) error {
	data, err := storage.Encode(c)
	if err != nil {
		return err
	}
	a.bus.write(a.key, data, a)
	return nil
}

// Subscribe registers a callback for external writes to this namespace.
func (a *Adapter) Subscribe(fn func(cart.Cart)) (func(), error) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}, nil
}

// Close detaches the adapter from the bus and drops its subscribers.
func (a *Adapter) Close() error {
	a.bus.detach(a)
	a.mu.Lock()
	a.closed = true
	a.subscribers = make(map[int]func(cart.Cart))
	a.mu.Unlock()
	return nil
}

func (a *Adapter) deliver(data []byte) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	fns := make([]func(cart.Cart), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	// Decode per subscriber so each callback owns its snapshot outright.
	for _, fn := range fns {
		fn(storage.Decode(data))
	}
}
