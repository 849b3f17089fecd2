package api

import (
	"github.com/mattjoyce/hearth/internal/history"
	"github.com/mattjoyce/hearth/internal/profile"
	"github.com/mattjoyce/hearth/internal/schedule"
)

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	BootID        string  `json:"boot_id"`
	Running       bool    `json:"running"`
	Tick          uint64  `json:"tick"`
	FPS           float64 `json:"fps"`
}

// ScheduleResponse is returned by GET /schedule.
type ScheduleResponse struct {
	BootID      string             `json:"boot_id"`
	Workers     int                `json:"workers"`
	Parallel    *schedule.Resolved `json:"parallel"`
	ThreadLocal *schedule.Resolved `json:"thread_local"`
	// Waves lists parallel-group labels per wave.
	Waves [][]string `json:"waves"`
}

// ProfileResponse is returned by GET /profile?format=json.
type ProfileResponse struct {
	BootID string          `json:"boot_id"`
	Live   bool            `json:"live"`
	Totals []profile.Total `json:"totals"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Schedules []history.Snapshot `json:"schedules"`
}
