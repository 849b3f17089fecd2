package events

import "time"

// Event types published by the engine.
const (
	EngineStarted     = "engine.started"
	ScheduleCommitted = "schedule.committed"
	EngineTick        = "engine.tick"
	EngineFPS         = "engine.fps"
	SystemPanic       = "system.panic"
	SystemFailed      = "system.failed"
	EngineStopped     = "engine.stopped"
)

type Started struct {
	BootID  string    `json:"boot_id"`
	Name    string    `json:"name"`
	Modules []string  `json:"modules"`
	At      time.Time `json:"at"`
}

type Committed struct {
	BootID      string   `json:"boot_id"`
	Affinity    string   `json:"affinity"`
	Fingerprint string   `json:"fingerprint"`
	Units       []string `json:"units"`
}

type Tick struct {
	Tick     uint64  `json:"tick"`
	DeltaMS  float64 `json:"delta_ms"`
	FPS      float64 `json:"fps"`
	Parallel int     `json:"parallel"`
	Local    int     `json:"thread_local"`
}

type FPS struct {
	Tick uint64  `json:"tick"`
	FPS  float64 `json:"fps"`
}

type Failure struct {
	Tick   uint64 `json:"tick"`
	System string `json:"system"`
	Error  string `json:"error"`
}

type Stopped struct {
	BootID string `json:"boot_id"`
	Ticks  uint64 `json:"ticks"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}
