package schedule

import (
	"errors"
	"fmt"

	"github.com/mattjoyce/hearth/internal/resource"
)

// InitContext is handed to every module while it initializes. It owns the
// parallel and thread-local groups.
type InitContext[T any] struct {
	names       *names
	parallel    *Group[T]
	threadLocal *Group[T]
}

// NewInitContext returns an empty context.
func NewInitContext[T any]() *InitContext[T] {
	n := newNames()
	return &InitContext[T]{
		names:       n,
		parallel:    &Group[T]{affinity: Parallel, names: n},
		threadLocal: &Group[T]{affinity: ThreadLocal, names: n},
	}
}

// SetOwner records the module name attached to subsequent registrations.
func (c *InitContext[T]) SetOwner(module string) {
	c.parallel.owner = module
	c.threadLocal.owner = module
}

// Group returns the group for a.
func (c *InitContext[T]) Group(a Affinity) *Group[T] {
	if a == ThreadLocal {
		return c.threadLocal
	}
	return c.parallel
}

// Register queues a unit into the group for a. Every descriptor field is
// allowed.
func (c *InitContext[T]) Register(a Affinity, d Descriptor, f Factory[T]) error {
	if !a.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAffinity, int(a))
	}
	return c.Group(a).Dispatch(d, f)
}

// Dispatch queues a parallel unit that is ordered by after-names only.
// Priority and before-names are rejected with ErrRestrictedField; use
// Register for those.
func (c *InitContext[T]) Dispatch(d Descriptor, f Factory[T]) error {
	if d.Priority != 0 {
		return fmt.Errorf("%w: %s sets priority %d", ErrRestrictedField, label(d.Name, -1), d.Priority)
	}
	if len(d.Before) > 0 {
		return fmt.Errorf("%w: %s sets before %v", ErrRestrictedField, label(d.Name, -1), d.Before)
	}
	return c.parallel.Dispatch(d, f)
}

// DispatchThreadLocal queues a unit that runs on the engine goroutine.
func (c *InitContext[T]) DispatchThreadLocal(d Descriptor, f Factory[T]) error {
	return c.threadLocal.Dispatch(d, f)
}

// Sealed reports whether Commit has been called.
func (c *InitContext[T]) Sealed() bool {
	c.names.mu.Lock()
	defer c.names.mu.Unlock()
	return c.names.sealed
}

// ResolveAll resolves both groups without building anything. The
// thread-local group sees every parallel name as satisfied because it runs
// after the whole parallel group. Errors of both groups are joined.
func (c *InitContext[T]) ResolveAll() (*Resolved, *Resolved, error) {
	pNames, tNames := c.parallel.Names(), c.threadLocal.Names()
	parallel, errP := c.parallel.Resolve(WithForeign(tNames...))
	threadLocal, errT := c.threadLocal.Resolve(WithSatisfied(pNames...), WithForeign(pNames...))
	if err := errors.Join(errP, errT); err != nil {
		return nil, nil, err
	}
	return parallel, threadLocal, nil
}

// Commit seals the context, resolves both groups and builds every unit in
// resolved order, parallel group first. Any failure aborts with no plan.
func (c *InitContext[T]) Commit(res *resource.Registry) (*Plan[T], error) {
	c.names.mu.Lock()
	if c.names.sealed {
		c.names.mu.Unlock()
		return nil, ErrSealed
	}
	c.names.sealed = true
	c.names.mu.Unlock()

	rp, rt, err := c.ResolveAll()
	if err != nil {
		return nil, err
	}

	up, err := c.parallel.build(rp, res)
	if err != nil {
		return nil, err
	}
	ut, err := c.threadLocal.build(rt, res)
	if err != nil {
		return nil, err
	}

	return &Plan[T]{
		parallel:    rp,
		threadLocal: rt,
		parUnits:    up,
		tlUnits:     ut,
	}, nil
}
