// Package doctor validates hearth configuration and dry-runs the schedule.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/mattjoyce/hearth/internal/auth"
	"github.com/mattjoyce/hearth/internal/config"
	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
	// Schedules holds the resolved order per group when resolution
	// succeeded.
	Schedules map[string][]string `json:"schedules,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a config against the modules it enables.
type Doctor struct {
	cfg     *config.Config
	modules []engine.Module
	known   []string
}

// New creates a Doctor. modules are the enabled modules, known every module
// name the binary ships.
func New(cfg *config.Config, modules []engine.Module, known []string) *Doctor {
	return &Doctor{cfg: cfg, modules: modules, known: known}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateConfig(r)
	d.validateTokenScopes(r)
	d.validateModuleRefs(r)
	d.validateSchedule(r)
	d.warnWorkers(r)
	d.warnAPIKey(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateConfig(r *Result) {
	for _, err := range config.Validate(d.cfg) {
		field, msg, ok := strings.Cut(err.Error(), ": ")
		if !ok || strings.ContainsAny(field, " ") {
			field, msg = "", err.Error()
		}
		d.addError(r, "config", field, msg)
	}
}

func (d *Doctor) validateTokenScopes(r *Result) {
	knownScopes := auth.KnownScopes()
	for i, token := range d.cfg.API.Auth.Tokens {
		for j, scope := range token.Scopes {
			if !slices.Contains(knownScopes, strings.TrimSpace(scope)) {
				d.addError(r, "token_scopes", fmt.Sprintf("api.auth.tokens[%d].scopes[%d]", i, j),
					fmt.Sprintf("unknown scope %q", scope))
			}
		}
	}
}

func (d *Doctor) validateModuleRefs(r *Result) {
	names := make([]string, 0, len(d.cfg.Modules))
	for name := range d.cfg.Modules {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if !slices.Contains(d.known, name) {
			d.addWarning(r, "modules", "modules."+name,
				fmt.Sprintf("module %q is configured but not built in", name))
		}
	}
	if len(d.modules) == 0 {
		d.addWarning(r, "modules", "modules", "no modules enabled; the engine would tick an empty schedule")
	}
}

// validateSchedule initializes every enabled module and resolves both groups
// without building any system.
func (d *Doctor) validateSchedule(r *Result) {
	ictx, err := engine.Prepare(resource.New(), d.modules...)
	if err != nil {
		var me *engine.ModuleError
		field := ""
		if errors.As(err, &me) {
			field = "modules." + me.Module
		}
		d.addError(r, "modules", field, err.Error())
		return
	}

	par, local, err := ictx.ResolveAll()
	if err != nil {
		resolveErrs := schedule.ResolveErrors(err)
		if len(resolveErrs) == 0 {
			d.addError(r, "schedule", "", err.Error())
			return
		}
		for _, re := range resolveErrs {
			for _, diag := range re.Diagnostics() {
				d.addError(r, "schedule", re.Group+"."+diag.Label(), diag.String())
			}
		}
		return
	}

	r.Schedules = map[string][]string{
		schedule.Parallel.String():    par.Names(),
		schedule.ThreadLocal.String(): local.Names(),
	}
}

func (d *Doctor) warnWorkers(r *Result) {
	if n := runtime.NumCPU(); d.cfg.Engine.Workers > n {
		d.addWarning(r, "engine", "engine.workers",
			fmt.Sprintf("workers (%d) exceeds available CPUs (%d)", d.cfg.Engine.Workers, n))
	}
}

func (d *Doctor) warnAPIKey(r *Result) {
	if d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) > 0 {
		d.addWarning(r, "api", "api.auth",
			"both api_key and tokens configured; api_key grants full access")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}

	for _, group := range []string{schedule.Parallel.String(), schedule.ThreadLocal.String()} {
		if names, ok := r.Schedules[group]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", group, strings.Join(names, " -> "))
		}
	}
	return b.String()
}

func writeIssue(b *strings.Builder, level string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", level, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", level, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
