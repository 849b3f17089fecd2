package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mattjoyce/hearth/internal/resource"
)

// Frame is the per-tick context passed to every system. It is created at
// tick start and dropped at tick end; nothing in it survives a tick.
type Frame struct {
	Tick      uint64
	Delta     time.Duration
	Resources *resource.Registry
	Logger    *slog.Logger

	mu    sync.Mutex
	slots map[string]any
}

func newFrame(tick uint64, delta time.Duration, res *resource.Registry, logger *slog.Logger) *Frame {
	return &Frame{
		Tick:      tick,
		Delta:     delta,
		Resources: res,
		Logger:    logger,
		slots:     make(map[string]any),
	}
}

// Acquire stores v under key for the rest of the tick. A key can be held
// by one value at a time.
func (f *Frame) Acquire(key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.slots[key]; ok {
		return fmt.Errorf("%w: %s", ErrSlotTaken, key)
	}
	f.slots[key] = v
	return nil
}

// Slot returns the value held under key.
func (f *Frame) Slot(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.slots[key]
	return v, ok
}

// Release drops key and returns what it held.
func (f *Frame) Release(key string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.slots[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotEmpty, key)
	}
	delete(f.slots, key)
	return v, nil
}

// Held returns the keys still acquired, sorted.
func (f *Frame) Held() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.slots))
	for k := range f.slots {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SlotValue returns the value under key as T.
func SlotValue[T any](f *Frame, key string) (T, error) {
	var zero T
	v, ok := f.Slot(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrSlotEmpty, key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("engine: slot %s holds %T", key, v)
	}
	return t, nil
}

// ReleaseValue releases key and returns its value as T.
func ReleaseValue[T any](f *Frame, key string) (T, error) {
	var zero T
	v, err := f.Release(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("engine: slot %s holds %T", key, v)
	}
	return t, nil
}
