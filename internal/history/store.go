// Package history persists committed schedules and per-system profile totals
// in the engine's SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/hearth/internal/profile"
	"github.com/mattjoyce/hearth/internal/schedule"
)

// timeLayout is fixed width so text order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoHistory is returned when no profile has been recorded yet.
var ErrNoHistory = errors.New("history: nothing recorded")

// Snapshot is one stored schedule.
type Snapshot struct {
	ID          string           `json:"id"`
	BootID      string           `json:"boot_id"`
	CreatedAt   time.Time        `json:"created_at"`
	ConfigHash  string           `json:"config_hash,omitempty"`
	Affinity    string           `json:"affinity"`
	Fingerprint string           `json:"fingerprint"`
	Units       []schedule.Entry `json:"units"`
}

// Store reads and writes history rows. It satisfies engine.HistoryRecorder.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// RecordSchedule stores r as a snapshot of bootID.
func (s *Store) RecordSchedule(ctx context.Context, bootID, configHash string, r *schedule.Resolved) error {
	if r == nil {
		return fmt.Errorf("history: nil schedule")
	}
	_, err := s.SaveSchedule(ctx, Snapshot{
		BootID:      bootID,
		ConfigHash:  configHash,
		Affinity:    r.Affinity().String(),
		Fingerprint: r.Fingerprint(),
		Units:       r.Entries(),
	})
	return err
}

// RecordProfile stores the per-system totals of bootID.
func (s *Store) RecordProfile(ctx context.Context, bootID string, totals []profile.Total) error {
	return s.SaveProfile(ctx, bootID, totals)
}

// SaveSchedule inserts a snapshot, assigning its ID and creation time.
func (s *Store) SaveSchedule(ctx context.Context, snap Snapshot) (Snapshot, error) {
	if snap.BootID == "" {
		return Snapshot{}, fmt.Errorf("history: boot id is empty")
	}
	units, err := json.Marshal(snap.Units)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal units: %w", err)
	}

	snap.ID = uuid.NewString()
	snap.CreatedAt = s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO schedule_snapshot(id, boot_id, created_at, config_hash, affinity, fingerprint, units)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, snap.ID, snap.BootID, snap.CreatedAt.Format(timeLayout), snap.ConfigHash, snap.Affinity, snap.Fingerprint, string(units))
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert schedule snapshot: %w", err)
	}
	return snap, nil
}

// ListSchedules returns up to limit snapshots, newest first.
func (s *Store) ListSchedules(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, boot_id, created_at, config_hash, affinity, fingerprint, units
FROM schedule_snapshot
ORDER BY created_at DESC, affinity ASC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list schedule snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			created string
			units   string
		)
		if err := rows.Scan(&snap.ID, &snap.BootID, &created, &snap.ConfigHash, &snap.Affinity, &snap.Fingerprint, &units); err != nil {
			return nil, fmt.Errorf("scan schedule snapshot: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		if err := json.Unmarshal([]byte(units), &snap.Units); err != nil {
			return nil, fmt.Errorf("decode units of %s: %w", snap.ID, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule snapshots: %w", err)
	}
	return out, nil
}

// SaveProfile replaces the stored totals of bootID.
func (s *Store) SaveProfile(ctx context.Context, bootID string, totals []profile.Total) error {
	if bootID == "" {
		return fmt.Errorf("history: boot id is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().Format(timeLayout)
	for _, t := range totals {
		_, err := tx.ExecContext(ctx, `
INSERT INTO system_profile(boot_id, system, invocations, total_us, max_us, recorded_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(boot_id, system) DO UPDATE SET
  invocations = excluded.invocations,
  total_us = excluded.total_us,
  max_us = excluded.max_us,
  recorded_at = excluded.recorded_at;
`, bootID, t.System, t.Invocations, t.Total.Microseconds(), t.Max.Microseconds(), now)
		if err != nil {
			return fmt.Errorf("upsert profile of %s: %w", t.System, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LastProfile returns the totals of bootID, most expensive first. An empty
// bootID selects the most recently recorded boot.
func (s *Store) LastProfile(ctx context.Context, bootID string) (string, []profile.Total, error) {
	if bootID == "" {
		err := s.db.QueryRowContext(ctx,
			"SELECT boot_id FROM system_profile ORDER BY recorded_at DESC LIMIT 1;").Scan(&bootID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrNoHistory
		}
		if err != nil {
			return "", nil, fmt.Errorf("find latest boot: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT system, invocations, total_us, max_us
FROM system_profile
WHERE boot_id = ?
ORDER BY total_us DESC, system ASC;
`, bootID)
	if err != nil {
		return "", nil, fmt.Errorf("read profile: %w", err)
	}
	defer rows.Close()

	var out []profile.Total
	for rows.Next() {
		var (
			t            profile.Total
			total, maxUS int64
		)
		if err := rows.Scan(&t.System, &t.Invocations, &total, &maxUS); err != nil {
			return "", nil, fmt.Errorf("scan profile: %w", err)
		}
		t.Total = time.Duration(total) * time.Microsecond
		t.Max = time.Duration(maxUS) * time.Microsecond
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("iterate profile: %w", err)
	}
	if len(out) == 0 {
		return bootID, nil, ErrNoHistory
	}
	return bootID, out, nil
}
