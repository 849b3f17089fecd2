package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotHeld is returned when a tick ends with frame slots still
	// acquired.
	ErrSlotHeld = errors.New("engine: frame slot held at tick end")
	// ErrSlotTaken is returned by Frame.Acquire for a key already held.
	ErrSlotTaken = errors.New("engine: frame slot already held")
	// ErrSlotEmpty is returned when releasing or reading a key nobody holds.
	ErrSlotEmpty = errors.New("engine: frame slot not held")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("engine: already running")
	// ErrNilSystem is returned when a factory yields a nil system.
	ErrNilSystem = errors.New("engine: factory returned nil system")
)

// SystemPanicError wraps a panic recovered from a system.
type SystemPanicError struct {
	System string
	Tick   uint64
	Value  any
	Stack  []byte
}

func (e *SystemPanicError) Error() string {
	return fmt.Sprintf("engine: system %s panicked on tick %d: %v", e.System, e.Tick, e.Value)
}

// SystemError wraps an error returned by a system.
type SystemError struct {
	System string
	Tick   uint64
	Err    error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("engine: system %s failed on tick %d: %v", e.System, e.Tick, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// ModuleError wraps a failure of a module hook.
type ModuleError struct {
	Module string
	Stage  string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("engine: module %s %s: %v", e.Module, e.Stage, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }
