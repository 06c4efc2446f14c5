// Package hooks is a name-keyed table of action and filter callbacks.
//
// Actions run for their side effects; filters thread a value through every
// callback registered under a name. Callbacks run in ascending priority,
// ties in registration order.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultPriority matches the priority callbacks get when none is chosen.
const DefaultPriority = 10

var ErrCallbackType = errors.New("hook callback type mismatch")

// Handle identifies one registered callback so it can be removed.
type Handle struct {
	name string
	id   uint64
}

type entry struct {
	id       uint64
	priority int
	fn       any
}

// Registry holds callbacks keyed by hook name. The zero value is not usable;
// use NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	nextID  uint64
	entries map[string][]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string][]entry)}
}

func (r *Registry) add(name string, priority int, fn any) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	list := append(r.entries[name], entry{id: r.nextID, priority: priority, fn: fn})
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	r.entries[name] = list
	return Handle{name: name, id: r.nextID}
}

// Remove unregisters the callback behind h. It reports whether one was found.
func (r *Registry) Remove(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[h.name]
	for i, e := range list {
		if e.id == h.id {
			r.entries[h.name] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether any callback is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[name]) > 0
}

func (r *Registry) snapshot(name string) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.entries[name]
	out := make([]entry, len(list))
	copy(out, list)
	return out
}

// AddAction registers fn under name.
func AddAction[T any](r *Registry, name string, priority int, fn func(context.Context, T) error) Handle {
	return r.add(name, priority, fn)
}

// DoAction runs every action registered under name with arg, stopping at
// the first error.
func DoAction[T any](ctx context.Context, r *Registry, name string, arg T) error {
	for _, e := range r.snapshot(name) {
		fn, ok := e.fn.(func(context.Context, T) error)
		if !ok {
			return fmt.Errorf("%w: action %q", ErrCallbackType, name)
		}
		if err := fn(ctx, arg); err != nil {
			return fmt.Errorf("action %q: %w", name, err)
		}
	}
	return nil
}

// AddFilter registers fn under name.
func AddFilter[V, A any](r *Registry, name string, priority int, fn func(context.Context, V, A) (V, error)) Handle {
	return r.add(name, priority, fn)
}

// ApplyFilters passes value through every filter registered under name.
// On error the value as it stood before the failing filter is returned.
func ApplyFilters[V, A any](ctx context.Context, r *Registry, name string, value V, arg A) (V, error) {
	for _, e := range r.snapshot(name) {
		fn, ok := e.fn.(func(context.Context, V, A) (V, error))
		if !ok {
			return value, fmt.Errorf("%w: filter %q", ErrCallbackType, name)
		}
		next, err := fn(ctx, value, arg)
		if err != nil {
			return value, fmt.Errorf("filter %q: %w", name, err)
		}
		value = next
	}
	return value, nil
}
