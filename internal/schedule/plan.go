package schedule

// Plan is the committed outcome of an init context: one resolved schedule
// and one slice of built units per group, index-aligned.
type Plan[T any] struct {
	parallel    *Resolved
	threadLocal *Resolved
	parUnits    []T
	tlUnits     []T
}

// Schedule returns the resolved order for a.
func (p *Plan[T]) Schedule(a Affinity) *Resolved {
	if a == ThreadLocal {
		return p.threadLocal
	}
	return p.parallel
}

// Units returns the built units for a, in resolved order.
func (p *Plan[T]) Units(a Affinity) []T {
	src := p.parUnits
	if a == ThreadLocal {
		src = p.tlUnits
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}

// ParallelWaves returns the parallel units grouped by wave. Units within a
// wave are in resolved order.
func (p *Plan[T]) ParallelWaves() [][]T {
	waves := p.parallel.Waves()
	out := make([][]T, len(waves))
	for i, w := range waves {
		out[i] = make([]T, len(w))
		for j, idx := range w {
			out[i][j] = p.parUnits[idx]
		}
	}
	return out
}

// Len returns the number of units over both groups.
func (p *Plan[T]) Len() int {
	return len(p.parUnits) + len(p.tlUnits)
}
