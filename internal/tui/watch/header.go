package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func renderHeader(h HealthState, ticker Ticker, fps Sparkline, theme Theme, width int, now time.Time) string {
	innerWidth := width - 4

	status := theme.StatusOK.Render("RUNNING")
	switch {
	case !h.Connected:
		status = theme.StatusFailed.Render("CONNECTING")
	case !h.Running && h.StopReason != "":
		status = theme.StatusStopped.Render("STOPPED (" + h.StopReason + ")")
	case !h.Running:
		status = theme.StatusWarn.Render("IDLE")
	case ticker.Stale(now, 5*time.Second):
		status = theme.StatusWarn.Render("STALLED")
	}

	boot := h.BootID
	if len(boot) > 8 {
		boot = boot[:8]
	}

	titleText := fmt.Sprintf(" HEARTH WATCH %s", theme.Highlight.Render(ticker.Current()))
	clock := theme.Dim.Render(now.Format("15:04:05"))
	pad := innerWidth - lipgloss.Width(titleText) - lipgloss.Width(clock) - 4
	if pad < 1 {
		pad = 1
	}
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	statsLine := fmt.Sprintf(" %s  boot %s  up %s  tick %d  fps %.1f",
		status, boot, formatDuration(time.Duration(h.UptimeSeconds)*time.Second), h.Tick, fps.Last())
	sparkLine := " FPS " + fps.Render(theme)

	return theme.Border.Width(innerWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleLine, statsLine, sparkLine),
	)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
