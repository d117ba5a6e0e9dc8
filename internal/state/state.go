package state

import (
	"context"
	"time"

	"github.com/opsgate/unit-sentinel/internal/nagios"
)

// UnitRecord is the persisted per-unit outcome of one run.
type UnitRecord struct {
	Severity    nagios.Severity `json:"severity"`
	Health      int             `json:"health"`
	Description string          `json:"description"`
}

// TargetSnapshot captures the persisted result of the latest run for one
// watch target.
type TargetSnapshot struct {
	RunID       string                `json:"run_id"`
	Fingerprint string                `json:"fingerprint"`
	Severity    nagios.Severity       `json:"severity"`
	Summary     string                `json:"summary"`
	Units       map[string]UnitRecord `json:"units"`
	EvaluatedAt time.Time             `json:"evaluated_at"`
}

// State stores snapshots for all targets.
type State struct {
	Targets map[string]TargetSnapshot `json:"targets"`
}

// Store defines the interface for persisting state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
