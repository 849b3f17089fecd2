package schedule

import (
	"fmt"
	"sync"

	"github.com/mattjoyce/hearth/internal/resource"
)

// Factory builds the payload of a unit. It runs once, during Commit, in
// resolved order.
type Factory[T any] func(*BuildContext) (T, error)

// BuildContext is handed to a Factory.
type BuildContext struct {
	Name      string
	Owner     string
	After     []string
	Affinity  Affinity
	Resources *resource.Registry
}

type pendingUnit[T any] struct {
	unitRef
	factory Factory[T]
}

type nameEntry struct {
	affinity Affinity
	owner    string
}

// names is shared by the groups of one init context so that duplicates are
// caught across both.
type names struct {
	mu     sync.Mutex
	seen   map[string]nameEntry
	sealed bool
}

func newNames() *names {
	return &names{seen: make(map[string]nameEntry)}
}

// Group collects the pending units of one affinity class.
type Group[T any] struct {
	affinity Affinity
	names    *names
	owner    string
	units    []pendingUnit[T]
}

// NewGroup returns a standalone group.
func NewGroup[T any](a Affinity) *Group[T] {
	return &Group[T]{affinity: a, names: newNames()}
}

// Affinity returns the group's affinity class.
func (g *Group[T]) Affinity() Affinity {
	return g.affinity
}

// Len returns the number of registered units.
func (g *Group[T]) Len() int {
	return len(g.units)
}

// Dispatch queues a unit. Names referenced by d need not exist yet.
func (g *Group[T]) Dispatch(d Descriptor, f Factory[T]) error {
	if f == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, label(d.Name, -1))
	}
	if err := d.validate(); err != nil {
		return err
	}

	g.names.mu.Lock()
	defer g.names.mu.Unlock()
	if g.names.sealed {
		return ErrSealed
	}
	if !d.IsAnonymous() {
		if prev, ok := g.names.seen[d.Name]; ok {
			return &DuplicateNameError{
				Name:       d.Name,
				Affinity:   g.affinity,
				Owner:      g.owner,
				First:      prev.affinity,
				FirstOwner: prev.owner,
			}
		}
		g.names.seen[d.Name] = nameEntry{affinity: g.affinity, owner: g.owner}
	}

	g.units = append(g.units, pendingUnit[T]{
		unitRef: unitRef{desc: d.clone(), owner: g.owner, seq: len(g.units)},
		factory: f,
	})
	return nil
}

// Descriptors returns the registered descriptors in registration order.
func (g *Group[T]) Descriptors() []Descriptor {
	out := make([]Descriptor, len(g.units))
	for i, u := range g.units {
		out[i] = u.desc.clone()
	}
	return out
}

// Names returns the registered non-anonymous names in registration order.
func (g *Group[T]) Names() []string {
	out := make([]string, 0, len(g.units))
	for _, u := range g.units {
		if !u.desc.IsAnonymous() {
			out = append(out, u.desc.Name)
		}
	}
	return out
}

// Resolve computes the group's order without building anything.
func (g *Group[T]) Resolve(opts ...ResolveOption) (*Resolved, error) {
	refs := make([]unitRef, len(g.units))
	for i, u := range g.units {
		refs[i] = u.unitRef
	}
	opts = append([]ResolveOption{WithGroup(g.affinity.String())}, opts...)
	order, err := resolve(refs, opts...)
	if err != nil {
		return nil, err
	}
	return newResolved(g.affinity, order), nil
}

// build invokes the factory of every entry in r, in order.
func (g *Group[T]) build(r *Resolved, res *resource.Registry) ([]T, error) {
	out := make([]T, 0, r.Len())
	for _, e := range r.entries {
		u := g.units[e.Seq]
		v, err := u.factory(&BuildContext{
			Name:      e.Name,
			Owner:     e.Owner,
			After:     append([]string(nil), e.After...),
			Affinity:  g.affinity,
			Resources: res,
		})
		if err != nil {
			return nil, fmt.Errorf("schedule: build %s (module %q): %w", e.Label(), e.Owner, err)
		}
		out = append(out, v)
	}
	return out, nil
}
