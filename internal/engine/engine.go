package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mattjoyce/hearth/internal/events"
	"github.com/mattjoyce/hearth/internal/profile"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
	"github.com/mattjoyce/hearth/internal/timing"
)

// Options configures an Engine.
type Options struct {
	Name string
	// TickRate is the minimum time between tick starts. Zero runs ticks
	// back to back.
	TickRate time.Duration
	// Workers bounds the goroutines of one parallel wave. Zero or less
	// means GOMAXPROCS.
	Workers int
	// MaxTicks stops Run after that many ticks. Zero runs until the
	// context is cancelled.
	MaxTicks uint64
	// Profile enables the per-tick profile frame.
	Profile bool
	// ProfileEvery dumps and resets the profile frame every N ticks.
	ProfileEvery uint64
	// TickEventEvery publishes engine.tick every N ticks. Zero disables it.
	TickEventEvery uint64
	ConfigHash     string
	// BootID identifies the instance. Empty generates a new UUID.
	BootID string

	Logger    *slog.Logger
	Events    *events.Hub
	History   HistoryRecorder
	Resources *resource.Registry
	Clock     timing.Clock
}

// Stats is a point-in-time view of a running engine.
type Stats struct {
	BootID      string    `json:"boot_id"`
	Name        string    `json:"name"`
	Running     bool      `json:"running"`
	Tick        uint64    `json:"tick"`
	FPS         float64   `json:"fps"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	Parallel    int       `json:"parallel"`
	ThreadLocal int       `json:"thread_local"`
	Waves       int       `json:"waves"`
	Workers     int       `json:"workers"`
}

type unit struct {
	label string
	sys   System
}

// Engine runs a committed plan once per tick.
type Engine struct {
	opts    Options
	logger  *slog.Logger
	events  *events.Hub
	bootID  string
	modules []Module
	res     *resource.Registry
	plan    *Plan

	waves [][]unit
	local []unit

	clock  timing.Clock
	time   *timing.Time
	fps    *timing.FPSCounter
	info   *timing.FPSInfo
	totals *profile.Totals
	prof   *profile.Frame

	running atomic.Bool
	tick    atomic.Uint64

	mu        sync.RWMutex
	lastFPS   float64
	startedAt time.Time
	lastCSV   string
}

// New initializes every module, commits the schedule and returns an engine
// ready to Run. Resolution and construction errors are returned unchanged
// in the chain so callers can inspect *schedule.ResolveError.
func New(opts Options, modules ...Module) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Name == "" {
		opts.Name = "hearth"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.BootID == "" {
		opts.BootID = uuid.NewString()
	}
	res := opts.Resources
	if res == nil {
		res = resource.New()
	}

	e := &Engine{
		opts:    opts,
		logger:  opts.Logger.With("component", "engine"),
		events:  opts.Events,
		bootID:  opts.BootID,
		modules: flatten(modules),
		res:     res,
		clock:   opts.Clock,
		totals:  profile.NewTotals(),
	}
	e.time = resource.GetOrInsert(res, func() *timing.Time { return timing.NewTime(opts.Clock) })
	e.info = resource.GetOrInsert(res, func() *timing.FPSInfo { return &timing.FPSInfo{} })
	e.fps = timing.NewFPSCounter(opts.Clock)
	if opts.Profile {
		e.prof = profile.NewFrame(opts.Clock)
	}

	ictx, err := Prepare(res, e.modules...)
	if err != nil {
		return nil, err
	}
	plan, err := ictx.Commit(res)
	if err != nil {
		return nil, fmt.Errorf("engine: commit schedule: %w", err)
	}
	if err := e.bind(plan); err != nil {
		return nil, err
	}

	e.logger.Info("Schedule committed",
		"boot_id", e.bootID,
		"parallel", plan.Schedule(schedule.Parallel).Names(),
		"thread_local", plan.Schedule(schedule.ThreadLocal).Names(),
		"waves", len(e.waves),
		"workers", opts.Workers,
	)
	return e, nil
}

// Prepare runs every module's Init against a fresh init context without
// committing it.
func Prepare(res *resource.Registry, modules ...Module) (*InitContext, error) {
	ictx := schedule.NewInitContext[System]()
	for _, m := range flatten(modules) {
		name := m.Name()
		ictx.SetOwner(name)
		if err := m.Init(ictx, res); err != nil {
			return nil, &ModuleError{Module: name, Stage: "init", Err: err}
		}
	}
	ictx.SetOwner("")
	return ictx, nil
}

func (e *Engine) bind(plan *Plan) error {
	e.plan = plan

	entries := plan.Schedule(schedule.Parallel).Entries()
	units := plan.Units(schedule.Parallel)
	for _, w := range plan.Schedule(schedule.Parallel).Waves() {
		wave := make([]unit, 0, len(w))
		for _, idx := range w {
			if units[idx] == nil {
				return fmt.Errorf("%w: %s", ErrNilSystem, entries[idx].Label())
			}
			wave = append(wave, unit{label: entries[idx].Label(), sys: units[idx]})
		}
		e.waves = append(e.waves, wave)
	}

	entries = plan.Schedule(schedule.ThreadLocal).Entries()
	units = plan.Units(schedule.ThreadLocal)
	for i, en := range entries {
		if units[i] == nil {
			return fmt.Errorf("%w: %s", ErrNilSystem, en.Label())
		}
		e.local = append(e.local, unit{label: en.Label(), sys: units[i]})
	}
	return nil
}

// BootID identifies this engine instance.
func (e *Engine) BootID() string { return e.bootID }

// Plan returns the committed plan.
func (e *Engine) Plan() *Plan { return e.plan }

// Resources returns the shared resource registry.
func (e *Engine) Resources() *resource.Registry { return e.res }

// Modules returns the flattened module names in init order.
func (e *Engine) Modules() []string {
	out := make([]string, len(e.modules))
	for i, m := range e.modules {
		out[i] = m.Name()
	}
	return out
}

// Profile returns per-system totals accumulated so far.
func (e *Engine) Profile() []profile.Total {
	return e.totals.Snapshot()
}

// ProfileCSV returns the last dumped profile frame.
func (e *Engine) ProfileCSV() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastCSV
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		BootID:      e.bootID,
		Name:        e.opts.Name,
		Running:     e.running.Load(),
		Tick:        e.tick.Load(),
		FPS:         e.lastFPS,
		StartedAt:   e.startedAt,
		Parallel:    e.plan.Schedule(schedule.Parallel).Len(),
		ThreadLocal: e.plan.Schedule(schedule.ThreadLocal).Len(),
		Waves:       len(e.waves),
		Workers:     e.opts.Workers,
	}
}

// Run starts every module and ticks until ctx is cancelled, MaxTicks is
// reached or a system fails. The calling goroutine is locked to its OS
// thread and runs the thread-local group. The context is only checked
// between ticks.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := e.start(ctx); err != nil {
		e.stop(ctx, "start_failed", err)
		return err
	}

	var ticker *time.Ticker
	if e.opts.TickRate > 0 {
		ticker = time.NewTicker(e.opts.TickRate)
		defer ticker.Stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			e.stop(ctx, "cancelled", nil)
			return nil
		}
		if err := e.Tick(); err != nil {
			e.stop(ctx, "system_error", err)
			return err
		}
		if e.opts.MaxTicks > 0 && e.tick.Load() >= e.opts.MaxTicks {
			e.stop(ctx, "max_ticks", nil)
			return nil
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
			}
		}
	}
}

func (e *Engine) start(ctx context.Context) error {
	e.mu.Lock()
	e.startedAt = e.clock().UTC()
	e.mu.Unlock()

	sc := &StartContext{BootID: e.bootID, Resources: e.res, Plan: e.plan, Logger: e.logger}
	for _, m := range e.modules {
		if s, ok := m.(Starter); ok {
			if err := s.Start(sc); err != nil {
				return &ModuleError{Module: m.Name(), Stage: "start", Err: err}
			}
		}
	}

	e.events.Publish(events.EngineStarted, events.Started{
		BootID:  e.bootID,
		Name:    e.opts.Name,
		Modules: e.Modules(),
		At:      e.startedAt,
	})
	for _, a := range []schedule.Affinity{schedule.Parallel, schedule.ThreadLocal} {
		r := e.plan.Schedule(a)
		e.events.Publish(events.ScheduleCommitted, events.Committed{
			BootID:      e.bootID,
			Affinity:    a.String(),
			Fingerprint: r.Fingerprint(),
			Units:       r.Names(),
		})
		if e.opts.History != nil {
			if err := e.opts.History.RecordSchedule(ctx, e.bootID, e.opts.ConfigHash, r); err != nil {
				e.logger.Warn("Failed to record schedule", "affinity", a.String(), "error", err)
			}
		}
	}

	e.logger.Info("Engine started", "boot_id", e.bootID, "modules", len(e.modules))
	return nil
}

func (e *Engine) stop(ctx context.Context, reason string, cause error) {
	ticks := e.tick.Load()
	if e.opts.History != nil {
		if err := e.opts.History.RecordProfile(context.WithoutCancel(ctx), e.bootID, e.totals.Snapshot()); err != nil {
			e.logger.Warn("Failed to record profile", "error", err)
		}
	}

	payload := events.Stopped{BootID: e.bootID, Ticks: ticks, Reason: reason}
	if cause != nil {
		payload.Error = cause.Error()
		e.logger.Error("Engine stopped", "reason", reason, "ticks", ticks, "error", cause)
	} else {
		e.logger.Info("Engine stopped", "reason", reason, "ticks", ticks)
	}
	e.events.Publish(events.EngineStopped, payload)
}

// Tick runs one full tick on the calling goroutine: the parallel group wave
// by wave, then the thread-local group in order. Run calls it in a loop;
// tests call it directly.
func (e *Engine) Tick() error {
	n := e.tick.Add(1)
	e.time.Update()
	e.fps.BeginFrame()

	fr := newFrame(n, e.time.Delta(), e.res, e.logger)
	if e.prof != nil {
		e.prof.Begin("tick")
	}

	err := e.runParallel(fr)
	if err == nil {
		err = e.runLocal(fr)
	}
	if e.prof != nil {
		_ = e.prof.End("tick")
	}
	if err == nil {
		if held := fr.Held(); len(held) > 0 {
			err = fmt.Errorf("engine: tick %d: %w: %s", n, ErrSlotHeld, strings.Join(held, ", "))
		}
	}
	if err != nil {
		e.publishFailure(n, err)
		return err
	}

	if e.fps.EndFrame() {
		e.info.FPS = e.fps.FPS()
		e.mu.Lock()
		e.lastFPS = e.info.FPS
		e.mu.Unlock()
		e.events.Publish(events.EngineFPS, events.FPS{Tick: n, FPS: e.info.FPS})
	}
	if e.opts.TickEventEvery > 0 && n%e.opts.TickEventEvery == 0 {
		e.events.Publish(events.EngineTick, events.Tick{
			Tick:     n,
			DeltaMS:  float64(fr.Delta) / float64(time.Millisecond),
			FPS:      e.info.FPS,
			Parallel: e.plan.Schedule(schedule.Parallel).Len(),
			Local:    len(e.local),
		})
	}
	if e.prof != nil && e.opts.ProfileEvery > 0 && n%e.opts.ProfileEvery == 0 {
		csv := e.prof.DumpCSV()
		e.prof.Reset()
		e.mu.Lock()
		e.lastCSV = csv
		e.mu.Unlock()
		e.logger.Debug("Profile frame", "tick", n, "csv", csv)
	}
	return nil
}

func (e *Engine) runParallel(fr *Frame) error {
	if e.prof != nil {
		e.prof.Begin(schedule.Parallel.String())
		defer func() { _ = e.prof.End(schedule.Parallel.String()) }()
	}
	for _, wave := range e.waves {
		if e.opts.Workers == 1 || len(wave) == 1 {
			for _, u := range wave {
				if err := e.runSystem(fr, u); err != nil {
					return err
				}
			}
			continue
		}

		var g errgroup.Group
		g.SetLimit(e.opts.Workers)
		for _, u := range wave {
			g.Go(func() error {
				return e.runSystem(fr, u)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runLocal(fr *Frame) error {
	if e.prof != nil {
		e.prof.Begin(schedule.ThreadLocal.String())
		defer func() { _ = e.prof.End(schedule.ThreadLocal.String()) }()
	}
	for _, u := range e.local {
		if err := e.runSystem(fr, u); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runSystem(fr *Frame, u unit) (err error) {
	start := e.clock()
	defer func() {
		if r := recover(); r != nil {
			err = &SystemPanicError{System: u.label, Tick: fr.Tick, Value: r, Stack: debug.Stack()}
		}
		d := e.clock().Sub(start)
		e.totals.Record(u.label, d)
		if e.prof != nil {
			e.prof.Add(u.label, d)
		}
	}()

	if err := u.sys.Run(fr); err != nil {
		return &SystemError{System: u.label, Tick: fr.Tick, Err: err}
	}
	return nil
}

func (e *Engine) publishFailure(tick uint64, err error) {
	var pe *SystemPanicError
	if errors.As(err, &pe) {
		e.logger.Error("System panicked", "system", pe.System, "tick", tick, "panic", fmt.Sprint(pe.Value), "stack", string(pe.Stack))
		e.events.Publish(events.SystemPanic, events.Failure{Tick: tick, System: pe.System, Error: err.Error()})
		return
	}
	system := ""
	var se *SystemError
	if errors.As(err, &se) {
		system = se.System
	}
	e.logger.Error("Tick failed", "system", system, "tick", tick, "error", err)
	e.events.Publish(events.SystemFailed, events.Failure{Tick: tick, System: system, Error: err.Error()})
}
