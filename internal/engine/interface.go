package engine

import (
	"context"

	"github.com/mattjoyce/hearth/internal/profile"
	"github.com/mattjoyce/hearth/internal/schedule"
)

//go:generate mockgen -destination=mocks/mock_history.go -package=mocks github.com/mattjoyce/hearth/internal/engine HistoryRecorder

// HistoryRecorder persists what the engine committed and how it ran.
type HistoryRecorder interface {
	RecordSchedule(ctx context.Context, bootID, configHash string, r *schedule.Resolved) error
	RecordProfile(ctx context.Context, bootID string, totals []profile.Total) error
}
