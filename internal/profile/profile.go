// Package profile records nested timing invocations and renders them as CSV.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNoActive is returned by End when nothing is open.
var ErrNoActive = errors.New("profile: no active invocation")

// MismatchError is returned when End names a different invocation than the
// innermost open one.
type MismatchError struct {
	Open string
	End  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("profile: innermost invocation is %q, cannot end %q", e.Open, e.End)
}

type invocation struct {
	name     string
	begin    time.Time
	dur      time.Duration
	children []*invocation
}

// Frame collects invocations. Begin and End nest on a stack; Add attaches an
// already measured invocation to whatever is open. All methods are safe for
// concurrent use.
type Frame struct {
	mu       sync.Mutex
	now      func() time.Time
	active   []*invocation
	archived []*invocation
}

// NewFrame returns an empty frame. A nil clock means time.Now.
func NewFrame(now func() time.Time) *Frame {
	if now == nil {
		now = time.Now
	}
	return &Frame{now: now}
}

// Begin opens a nested invocation.
func (f *Frame) Begin(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = append(f.active, &invocation{name: name, begin: f.now()})
}

// End closes the innermost invocation, which must be name.
func (f *Frame) End(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.active) == 0 {
		return ErrNoActive
	}
	top := f.active[len(f.active)-1]
	if top.name != name {
		return &MismatchError{Open: top.name, End: name}
	}
	f.active = f.active[:len(f.active)-1]
	top.dur = f.now().Sub(top.begin)
	f.attachLocked(top)
	return nil
}

// Add records a completed invocation under the innermost open one.
func (f *Frame) Add(name string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachLocked(&invocation{name: name, dur: d})
}

func (f *Frame) attachLocked(inv *invocation) {
	if n := len(f.active); n > 0 {
		f.active[n-1].children = append(f.active[n-1].children, inv)
		return
	}
	f.archived = append(f.archived, inv)
}

// Guard closes its invocation when End is called, usually via defer.
type Guard struct {
	f    *Frame
	name string
}

// Guard opens name and returns a handle that closes it.
func (f *Frame) Guard(name string) *Guard {
	f.Begin(name)
	return &Guard{f: f, name: name}
}

// End closes the guarded invocation.
func (g *Guard) End() error {
	return g.f.End(g.name)
}

// Depth returns the number of open invocations.
func (f *Frame) Depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

// Reset drops everything recorded so far, open invocations included.
func (f *Frame) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = nil
	f.archived = nil
}

type row struct {
	name        string
	dur         time.Duration
	invocations int
	children    []*invocation
}

// DumpCSV renders closed invocations grouped by name, longest first.
// Children are prefixed with ">>" per nesting level.
func (f *Frame) DumpCSV() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	b.WriteString("Name,Duration(ms),Invocations,%\n")
	dumpList(&b, f.archived, 0)
	return b.String()
}

func dumpList(b *strings.Builder, list []*invocation, indent int) {
	byName := make(map[string]*row)
	var rows []*row
	for _, inv := range list {
		r, ok := byName[inv.name]
		if !ok {
			r = &row{name: inv.name}
			byName[inv.name] = r
			rows = append(rows, r)
		}
		r.dur += inv.dur
		r.invocations++
		r.children = append(r.children, inv.children...)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].dur != rows[j].dur {
			return rows[i].dur > rows[j].dur
		}
		return rows[i].name < rows[j].name
	})

	var total time.Duration
	for _, r := range rows {
		total += r.dur
	}
	for _, r := range rows {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(r.dur) / float64(total)
		}
		b.WriteString(strings.Repeat(">>", indent))
		fmt.Fprintf(b, "%s,%.3f,%d,%.2f\n", r.name, float64(r.dur)/float64(time.Millisecond), r.invocations, pct)
		dumpList(b, r.children, indent+1)
	}
}
