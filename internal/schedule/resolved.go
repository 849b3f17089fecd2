package schedule

import (
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/zeebo/blake3"
)

// Entry is one placed unit of a resolved group.
type Entry struct {
	Descriptor
	Owner string `json:"owner,omitempty"`
	Seq   int    `json:"seq"`
	// Wave is the dependency depth inside the group. Entries of one wave
	// have no constraint between them.
	Wave int `json:"wave"`
}

// Label is the display name of the entry.
func (e Entry) Label() string {
	return label(e.Name, e.Seq)
}

// Resolved is the committed order of one group. It is immutable.
type Resolved struct {
	affinity Affinity
	entries  []Entry
}

func newResolved(a Affinity, order []unitRef) *Resolved {
	entries := make([]Entry, len(order))
	for i, u := range order {
		entries[i] = Entry{Descriptor: u.desc.clone(), Owner: u.owner, Seq: u.seq}
		for j := 0; j < i; j++ {
			if constrained(entries[j].Descriptor, entries[i].Descriptor) && entries[j].Wave+1 > entries[i].Wave {
				entries[i].Wave = entries[j].Wave + 1
			}
		}
	}
	return &Resolved{affinity: a, entries: entries}
}

// constrained reports whether later has a direct ordering edge to earlier.
func constrained(earlier, later Descriptor) bool {
	if earlier.Name != "" && slices.Contains(later.After, earlier.Name) {
		return true
	}
	return later.Name != "" && slices.Contains(earlier.Before, later.Name)
}

// Affinity returns the group the schedule belongs to.
func (r *Resolved) Affinity() Affinity {
	return r.affinity
}

// Len returns the number of entries.
func (r *Resolved) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns a copy of the ordered entries.
func (r *Resolved) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e
		out[i].Descriptor = e.Descriptor.clone()
	}
	return out
}

// Names returns the display names in resolved order.
func (r *Resolved) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Label()
	}
	return out
}

// Waves groups entry positions by wave, in order.
func (r *Resolved) Waves() [][]int {
	if r == nil {
		return nil
	}
	var waves [][]int
	for i, e := range r.entries {
		for len(waves) <= e.Wave {
			waves = append(waves, nil)
		}
		waves[e.Wave] = append(waves[e.Wave], i)
	}
	return waves
}

// Fingerprint is a BLAKE3 hex digest of the ordered descriptors. Two runs
// with the same registrations produce the same fingerprint.
func (r *Resolved) Fingerprint() string {
	if r == nil {
		return ""
	}
	descs := make([]Descriptor, len(r.entries))
	for i := range descs {
		descs[i] = r.entries[i].Descriptor
	}
	payload, _ := json.Marshal(struct {
		Affinity string       `json:"affinity"`
		Units    []Descriptor `json:"units"`
	}{Affinity: r.affinity.String(), Units: descs})
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// MarshalJSON renders the schedule for the debug API and history store.
func (r *Resolved) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Affinity    string  `json:"affinity"`
		Fingerprint string  `json:"fingerprint"`
		Units       []Entry `json:"units"`
	}{
		Affinity:    r.affinity.String(),
		Fingerprint: r.Fingerprint(),
		Units:       r.Entries(),
	})
}
