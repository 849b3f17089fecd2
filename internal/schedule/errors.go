package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnresolvable matches every *ResolveError.
	ErrUnresolvable = errors.New("schedule: unresolvable constraints")
	// ErrSealed is returned for registrations after Commit.
	ErrSealed = errors.New("schedule: init context already committed")
	// ErrRestrictedField is returned when the validated parallel path is
	// given a priority or before-names.
	ErrRestrictedField = errors.New("schedule: field not allowed on this registration path")
	// ErrInvalidDescriptor is returned for malformed descriptors.
	ErrInvalidDescriptor = errors.New("schedule: invalid descriptor")
	// ErrNilFactory is returned when a unit is registered without a factory.
	ErrNilFactory = errors.New("schedule: nil factory")
	// ErrInvalidAffinity is returned for an unknown affinity value.
	ErrInvalidAffinity = errors.New("schedule: invalid affinity")
)

// ErrorKind classifies a resolution failure.
type ErrorKind string

const (
	// KindUnresolvable means a scan found no eligible unit: a cycle or an
	// after-name that is never placed.
	KindUnresolvable ErrorKind = "unresolvable"
	// KindDanglingBefore means a before-name matches no unit in the group.
	KindDanglingBefore ErrorKind = "dangling_before"
)

// Diagnostic describes one unit that could not be placed.
type Diagnostic struct {
	Name     string `json:"name"`
	Owner    string `json:"owner,omitempty"`
	Seq      int    `json:"seq"`
	Priority int    `json:"priority"`
	// UnmetAfter lists after-names not yet placed.
	UnmetAfter []string `json:"unmet_after,omitempty"`
	// UnknownAfter is the subset of UnmetAfter no unit provides at all.
	UnknownAfter []string `json:"unknown_after,omitempty"`
	// BeforeBlocks is the outstanding before-count against this unit.
	BeforeBlocks int `json:"before_blocks"`
	// BlockedBy names the pending units whose before-lists hold this unit back.
	BlockedBy []string `json:"blocked_by,omitempty"`
	// DanglingBefore lists before-names with no matching unit in the group.
	DanglingBefore []string `json:"dangling_before,omitempty"`
	// CrossGroupBefore is the subset of DanglingBefore registered in the
	// other group.
	CrossGroupBefore []string `json:"cross_group_before,omitempty"`
}

// Label is the display name of the unit.
func (d Diagnostic) Label() string {
	return label(d.Name, d.Seq)
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Label())
	if d.Owner != "" {
		fmt.Fprintf(&b, " (module %s)", d.Owner)
	}
	var parts []string
	if len(d.UnmetAfter) > 0 {
		parts = append(parts, fmt.Sprintf("waits for [%s]", strings.Join(d.UnmetAfter, ", ")))
	}
	if len(d.UnknownAfter) > 0 {
		parts = append(parts, fmt.Sprintf("never registered [%s]", strings.Join(d.UnknownAfter, ", ")))
	}
	if d.BeforeBlocks > 0 {
		parts = append(parts, fmt.Sprintf("blocked by %d before-constraint(s) from [%s]", d.BeforeBlocks, strings.Join(d.BlockedBy, ", ")))
	}
	var unknown []string
	for _, n := range d.DanglingBefore {
		if !slices.Contains(d.CrossGroupBefore, n) {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		parts = append(parts, fmt.Sprintf("runs before unknown [%s]", strings.Join(unknown, ", ")))
	}
	if len(d.CrossGroupBefore) > 0 {
		parts = append(parts, fmt.Sprintf("runs before [%s] registered in the other group; before-constraints do not cross groups", strings.Join(d.CrossGroupBefore, ", ")))
	}
	if len(parts) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	return b.String()
}

// ResolveError reports a group that cannot be linearized.
type ResolveError struct {
	Group  string
	Kind   ErrorKind
	Diags  []Diagnostic
	Placed []string
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindDanglingBefore:
		fmt.Fprintf(&b, "schedule: %s group: %d unit(s) run before names not registered in this group", e.Group, len(e.Diags))
	default:
		fmt.Fprintf(&b, "schedule: %s group: %d unit(s) cannot be placed after %d placed", e.Group, len(e.Diags), len(e.Placed))
	}
	for _, d := range e.Diags {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

// Is makes errors.Is(err, ErrUnresolvable) true for every ResolveError.
func (e *ResolveError) Is(target error) bool {
	return target == ErrUnresolvable
}

// Diagnostics returns a copy of the per-unit diagnostics.
func (e *ResolveError) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(e.Diags))
	copy(out, e.Diags)
	return out
}

// DuplicateNameError is returned when a name is registered twice in one
// init context, across both groups. Resolve reports duplicates in a bare
// descriptor slice with Group and the two positions set.
type DuplicateNameError struct {
	Name       string
	Affinity   Affinity
	Owner      string
	FirstOwner string
	First      Affinity

	Group    string
	Seq      int
	FirstSeq int
}

func (e *DuplicateNameError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("schedule: duplicate unit %q in %s group at positions %d and %d", e.Name, e.Group, e.FirstSeq, e.Seq)
	}
	return fmt.Sprintf("schedule: duplicate unit %q in %s group (module %q), first registered in %s group (module %q)",
		e.Name, e.Affinity, e.Owner, e.First, e.FirstOwner)
}

// ResolveErrors collects every *ResolveError in err, including errors joined
// with errors.Join.
func ResolveErrors(err error) []*ResolveError {
	if err == nil {
		return nil
	}
	var out []*ResolveError
	var walk func(error)
	walk = func(e error) {
		if re, ok := e.(*ResolveError); ok {
			out = append(out, re)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := u.Unwrap(); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}
