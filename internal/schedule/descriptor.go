package schedule

import (
	"fmt"
	"slices"
	"strconv"
)

// Affinity selects the group a unit is registered into.
type Affinity int

const (
	// Parallel units may run concurrently with each other when no
	// constraint links them.
	Parallel Affinity = iota
	// ThreadLocal units run sequentially on the engine goroutine.
	ThreadLocal
)

func (a Affinity) String() string {
	switch a {
	case Parallel:
		return "parallel"
	case ThreadLocal:
		return "thread_local"
	default:
		return "affinity(" + strconv.Itoa(int(a)) + ")"
	}
}

func (a Affinity) valid() bool {
	return a == Parallel || a == ThreadLocal
}

// Descriptor is the scheduling metadata of one work unit.
type Descriptor struct {
	Name     string   `json:"name"`
	Priority int      `json:"priority"`
	After    []string `json:"after,omitempty"`
	Before   []string `json:"before,omitempty"`
}

// Named starts a descriptor for a referenceable unit.
func Named(name string) Descriptor {
	return Descriptor{Name: name}
}

// Anonymous starts a descriptor for a unit nothing can depend on.
func Anonymous() Descriptor {
	return Descriptor{}
}

// WithPriority returns a copy with the given priority. Lower runs earlier.
func (d Descriptor) WithPriority(p int) Descriptor {
	d.Priority = p
	return d
}

// RunAfter returns a copy that must be placed after every named unit.
func (d Descriptor) RunAfter(names ...string) Descriptor {
	d.After = append(slices.Clip(d.After), names...)
	return d
}

// RunBefore returns a copy that must be placed before every named unit.
func (d Descriptor) RunBefore(names ...string) Descriptor {
	d.Before = append(slices.Clip(d.Before), names...)
	return d
}

// IsAnonymous reports whether the unit has no name.
func (d Descriptor) IsAnonymous() bool {
	return d.Name == ""
}

func (d Descriptor) clone() Descriptor {
	d.After = slices.Clone(d.After)
	d.Before = slices.Clone(d.Before)
	return d
}

func (d Descriptor) validate() error {
	for _, n := range d.After {
		if n == "" {
			return fmt.Errorf("%w: %s has an empty after-name", ErrInvalidDescriptor, label(d.Name, -1))
		}
	}
	for _, n := range d.Before {
		if n == "" {
			return fmt.Errorf("%w: %s has an empty before-name", ErrInvalidDescriptor, label(d.Name, -1))
		}
	}
	return nil
}

// label names a unit in diagnostics. Anonymous units are shown with their
// registration sequence when one is known.
func label(name string, seq int) string {
	if name != "" {
		return name
	}
	if seq < 0 {
		return "<anonymous>"
	}
	return "<anonymous#" + strconv.Itoa(seq) + ">"
}
