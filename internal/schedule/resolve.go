package schedule

import (
	"slices"
	"sort"
)

type resolveOptions struct {
	group     string
	satisfied map[string]struct{}
	foreign   map[string]struct{}
}

// ResolveOption tunes a resolution call.
type ResolveOption func(*resolveOptions)

// WithSatisfied marks names as already placed. Units may depend on them with
// after-names even though they are not part of the group.
func WithSatisfied(names ...string) ResolveOption {
	return func(o *resolveOptions) {
		for _, n := range names {
			if n != "" {
				o.satisfied[n] = struct{}{}
			}
		}
	}
}

// WithForeign names units registered in another group. A before-name that
// matches one is reported as crossing groups instead of unknown.
func WithForeign(names ...string) ResolveOption {
	return func(o *resolveOptions) {
		for _, n := range names {
			if n != "" {
				o.foreign[n] = struct{}{}
			}
		}
	}
}

// WithGroup sets the group name used in diagnostics.
func WithGroup(name string) ResolveOption {
	return func(o *resolveOptions) {
		o.group = name
	}
}

// unitRef is the resolver's view of one registered unit.
type unitRef struct {
	desc  Descriptor
	owner string
	seq   int
}

// Resolve orders descs and returns their indices in resolved order.
// Registration order is the slice order. A name used twice is a
// *DuplicateNameError.
func Resolve(descs []Descriptor, opts ...ResolveOption) ([]int, error) {
	units := make([]unitRef, len(descs))
	for i, d := range descs {
		units[i] = unitRef{desc: d, seq: i}
	}
	order, err := resolve(units, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(order))
	for i, u := range order {
		out[i] = u.seq
	}
	return out, nil
}

func resolve(units []unitRef, opts ...ResolveOption) ([]unitRef, error) {
	o := resolveOptions{group: "unnamed", satisfied: map[string]struct{}{}, foreign: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&o)
	}

	known := make(map[string]struct{}, len(units))
	first := make(map[string]int, len(units))
	for _, u := range units {
		if u.desc.IsAnonymous() {
			continue
		}
		if seq, dup := first[u.desc.Name]; dup {
			return nil, &DuplicateNameError{Name: u.desc.Name, Group: o.group, Seq: u.seq, FirstSeq: seq}
		}
		first[u.desc.Name] = u.seq
		known[u.desc.Name] = struct{}{}
	}

	if err := checkDangling(units, known, o.foreign, o.group); err != nil {
		return nil, err
	}

	pending := slices.Clone(units)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].desc.Priority < pending[j].desc.Priority
	})

	counts := make(map[string]int)
	for _, u := range pending {
		for _, b := range u.desc.Before {
			counts[b]++
		}
	}

	placed := make(map[string]struct{}, len(units)+len(o.satisfied))
	for n := range o.satisfied {
		placed[n] = struct{}{}
	}

	out := make([]unitRef, 0, len(pending))
	for len(pending) > 0 {
		idx := -1
		for i, u := range pending {
			if eligible(u.desc, placed, counts) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, unresolvable(o.group, pending, placed, known, counts, out)
		}

		u := pending[idx]
		pending = slices.Delete(pending, idx, idx+1)
		out = append(out, u)
		if !u.desc.IsAnonymous() {
			placed[u.desc.Name] = struct{}{}
		}
		for _, b := range u.desc.Before {
			counts[b]--
			if counts[b] <= 0 {
				delete(counts, b)
			}
		}
	}
	return out, nil
}

func eligible(d Descriptor, placed map[string]struct{}, counts map[string]int) bool {
	for _, a := range d.After {
		if _, ok := placed[a]; !ok {
			return false
		}
	}
	if d.IsAnonymous() {
		return true
	}
	return counts[d.Name] == 0
}

func checkDangling(units []unitRef, known, foreign map[string]struct{}, group string) error {
	var diags []Diagnostic
	for _, u := range units {
		var missing, crossing []string
		for _, b := range u.desc.Before {
			if _, ok := known[b]; ok || slices.Contains(missing, b) {
				continue
			}
			missing = append(missing, b)
			if _, ok := foreign[b]; ok {
				crossing = append(crossing, b)
			}
		}
		if len(missing) > 0 {
			diags = append(diags, Diagnostic{
				Name:             u.desc.Name,
				Owner:            u.owner,
				Seq:              u.seq,
				Priority:         u.desc.Priority,
				DanglingBefore:   missing,
				CrossGroupBefore: crossing,
			})
		}
	}
	if len(diags) == 0 {
		return nil
	}
	return &ResolveError{Group: group, Kind: KindDanglingBefore, Diags: diags}
}

func unresolvable(group string, pending []unitRef, placed, known map[string]struct{}, counts map[string]int, out []unitRef) *ResolveError {
	diags := make([]Diagnostic, 0, len(pending))
	for _, u := range pending {
		d := Diagnostic{
			Name:     u.desc.Name,
			Owner:    u.owner,
			Seq:      u.seq,
			Priority: u.desc.Priority,
		}
		for _, a := range u.desc.After {
			if _, ok := placed[a]; ok || slices.Contains(d.UnmetAfter, a) {
				continue
			}
			d.UnmetAfter = append(d.UnmetAfter, a)
			if _, ok := known[a]; !ok {
				d.UnknownAfter = append(d.UnknownAfter, a)
			}
		}
		if !u.desc.IsAnonymous() {
			d.BeforeBlocks = counts[u.desc.Name]
			for _, other := range pending {
				if slices.Contains(other.desc.Before, u.desc.Name) {
					d.BlockedBy = append(d.BlockedBy, label(other.desc.Name, other.seq))
				}
			}
		}
		diags = append(diags, d)
	}

	names := make([]string, len(out))
	for i, u := range out {
		names[i] = label(u.desc.Name, u.seq)
	}
	return &ResolveError{Group: group, Kind: KindUnresolvable, Diags: diags, Placed: names}
}
