// Package inspect renders schedules, resolve diagnostics and history for
// the terminal.
package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mattjoyce/hearth/internal/history"
	"github.com/mattjoyce/hearth/internal/profile"
	"github.com/mattjoyce/hearth/internal/schedule"
)

// Report is the structured form of a committed or dry-run schedule.
type Report struct {
	BootID     string        `json:"boot_id,omitempty"`
	ConfigHash string        `json:"config_hash,omitempty"`
	Groups     []GroupReport `json:"groups"`
}

// GroupReport is one resolved group.
type GroupReport struct {
	Affinity    string           `json:"affinity"`
	Fingerprint string           `json:"fingerprint"`
	Units       []schedule.Entry `json:"units"`
	Waves       int              `json:"waves"`
}

// BuildReport collects both groups into a Report.
func BuildReport(bootID, configHash string, groups ...*schedule.Resolved) *Report {
	r := &Report{BootID: bootID, ConfigHash: configHash}
	for _, g := range groups {
		if g == nil {
			continue
		}
		r.Groups = append(r.Groups, GroupReport{
			Affinity:    g.Affinity().String(),
			Fingerprint: g.Fingerprint(),
			Units:       g.Entries(),
			Waves:       len(g.Waves()),
		})
	}
	return r
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// RenderSchedule writes one table per group.
func RenderSchedule(w io.Writer, r *Report) {
	if r.BootID != "" {
		fmt.Fprintf(w, "Boot        : %s\n", r.BootID)
	}
	if r.ConfigHash != "" {
		fmt.Fprintf(w, "Config hash : %s\n", short(r.ConfigHash))
	}
	for _, g := range r.Groups {
		fmt.Fprintf(w, "\n%s (%d unit(s), %d wave(s), %s)\n", g.Affinity, len(g.Units), g.Waves, short(g.Fingerprint))
		t := newTable(w)
		t.AppendHeader(table.Row{"#", "Name", "Module", "Priority", "After", "Before", "Wave"})
		for i, u := range g.Units {
			t.AppendRow(table.Row{i + 1, u.Label(), dash(u.Owner), u.Priority, list(u.After), list(u.Before), u.Wave})
		}
		t.Render()
	}
}

// RenderDiagnostics writes the diagnostics of every resolve error in err.
// It reports whether anything was written.
func RenderDiagnostics(w io.Writer, err error) bool {
	errs := schedule.ResolveErrors(err)
	if len(errs) == 0 {
		return false
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Group", "Unit", "Module", "Waits for", "Never registered", "Blocked by", "Runs before unknown"})
	for _, re := range errs {
		for _, d := range re.Diagnostics() {
			blocked := "-"
			if d.BeforeBlocks > 0 {
				blocked = fmt.Sprintf("%d (%s)", d.BeforeBlocks, strings.Join(d.BlockedBy, ", "))
			}
			t.AppendRow(table.Row{re.Group, d.Label(), dash(d.Owner), list(d.UnmetAfter), list(d.UnknownAfter), blocked, list(d.DanglingBefore)})
		}
	}
	t.Render()
	return true
}

// RenderHistory lists stored schedule snapshots.
func RenderHistory(w io.Writer, snaps []history.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No schedules recorded.")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Recorded", "Boot", "Group", "Units", "Fingerprint", "Config"})
	for _, s := range snaps {
		names := make([]string, len(s.Units))
		for i, u := range s.Units {
			names[i] = u.Label()
		}
		t.AppendRow(table.Row{
			s.CreatedAt.Local().Format(time.DateTime),
			short(s.BootID),
			s.Affinity,
			strings.Join(names, " > "),
			short(s.Fingerprint),
			dash(short(s.ConfigHash)),
		})
	}
	t.Render()
}

// RenderProfile lists per-system totals.
func RenderProfile(w io.Writer, bootID string, totals []profile.Total) {
	fmt.Fprintf(w, "Profile of boot %s\n", bootID)
	t := newTable(w)
	t.AppendHeader(table.Row{"System", "Invocations", "Total (ms)", "Mean (ms)", "Max (ms)"})
	for _, tot := range totals {
		t.AppendRow(table.Row{tot.System, tot.Invocations, ms(tot.Total), ms(tot.Mean()), ms(tot.Max)})
	}
	t.Render()
}

// JSON returns v as indented JSON.
func JSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d)/float64(time.Millisecond))
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// short trims hashes and ids for table columns.
func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
