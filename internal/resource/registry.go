// Package resource holds engine-wide singletons keyed by their Go type.
//
// Modules insert resources while they initialize, system factories look them
// up while the schedule is committed, and systems read them every tick.
package resource

import (
	"reflect"
	"sort"
	"sync"
)

// Registry maps a type to the single pointer stored for it.
type Registry struct {
	mu    sync.RWMutex
	items map[reflect.Type]any
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{items: make(map[reflect.Type]any)}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Insert stores v as the resource for T, replacing any previous value.
func Insert[T any](r *Registry, v *T) {
	if r == nil || v == nil {
		return
	}
	r.mu.Lock()
	r.items[typeOf[T]()] = v
	r.mu.Unlock()
}

// Get returns the resource stored for T.
func Get[T any](r *Registry) (*T, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[typeOf[T]()]
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// GetOrInsert returns the resource for T, inserting the value built by init
// when none exists yet.
func GetOrInsert[T any](r *Registry, init func() *T) *T {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := typeOf[T]()
	if v, ok := r.items[t]; ok {
		return v.(*T)
	}
	v := init()
	r.items[t] = v
	return v
}

// Remove drops the resource for T and reports whether one was present.
func Remove[T any](r *Registry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := typeOf[T]()
	if _, ok := r.items[t]; !ok {
		return false
	}
	delete(r.items, t)
	return true
}

// Len returns the number of stored resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Types returns the sorted type names of every stored resource.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for t := range r.items {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}
