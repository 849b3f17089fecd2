package watch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

func newScheduleTable(theme Theme) table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Group", Width: 12},
			{Title: "Unit", Width: 18},
			{Title: "Module", Width: 10},
			{Title: "Pri", Width: 4},
			{Title: "Wave", Width: 4},
			{Title: "Constraints", Width: 36},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Inherit(theme.TableHeader).Bold(false)
	s.Selected = theme.TableSelected
	t.SetStyles(s)
	return t
}

func scheduleRows(s scheduleMsg) []table.Row {
	var rows []table.Row
	add := func(group string, g groupJSON, waves bool) {
		for _, u := range g.Units {
			name := u.Name
			if name == "" {
				name = "<anonymous>"
			}
			wave := "-"
			if waves {
				wave = strconv.Itoa(u.Wave)
			}
			rows = append(rows, table.Row{group, name, u.Owner, strconv.Itoa(u.Priority), wave, constraints(u)})
		}
	}
	add("parallel", s.Parallel, true)
	add("thread_local", s.ThreadLocal, false)
	return rows
}

func constraints(u unitJSON) string {
	var parts []string
	if len(u.After) > 0 {
		parts = append(parts, "after "+strings.Join(u.After, ","))
	}
	if len(u.Before) > 0 {
		parts = append(parts, "before "+strings.Join(u.Before, ","))
	}
	return strings.Join(parts, "; ")
}

func renderSchedule(t table.Model, s *scheduleMsg, theme Theme, width int) string {
	title := theme.Title.Render("SCHEDULE")
	if s == nil {
		return theme.Border.Width(width - 4).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, theme.Dim.Render("  Loading schedule...")))
	}
	summary := theme.Dim.Render(fmt.Sprintf("  %d parallel in %d wave(s) on %d worker(s), %d thread-local",
		len(s.Parallel.Units), len(s.Waves), s.Workers, len(s.ThreadLocal.Units)))
	return theme.Border.Width(width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, summary, t.View()))
}

func renderFailures(failures []*Failure, theme Theme, width int) string {
	if len(failures) == 0 {
		return ""
	}
	lines := []string{theme.Title.Render("FAILURES")}
	for _, f := range failures {
		lines = append(lines, fmt.Sprintf("  %s tick %d  panics %d  errors %d  %s",
			theme.StatusFailed.Render(f.System), f.LastTick, f.Panics, f.Errors, theme.Dim.Render(f.LastError)))
	}
	return theme.Border.Width(width - 4).Render(strings.Join(lines, "\n"))
}
