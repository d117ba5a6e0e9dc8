package systemd

import "context"

// UnitStatus is a point-in-time view of one unit's state. All four fields
// come from a single property fetch so classification and display text
// always describe the same snapshot.
type UnitStatus struct {
	Name        string // unit id, e.g. "nginx.service"
	LoadState   string // "loaded", "not-found", "masked", "error", ...
	ActiveState string // "active", "inactive", "failed", "activating", ...
	SubState    string // unit-type specific, e.g. "running", "dead", "exited"
}

// Client defines the interface for service manager interactions.
// This interface enables mocking in tests.
type Client interface {
	// Ping validates connectivity to the systemd manager.
	Ping(ctx context.Context) error

	// ListUnitNames returns the names of every unit the manager currently
	// tracks. Order and duplicates are the caller's problem.
	ListUnitNames(ctx context.Context) ([]string, error)

	// GetUnitStatus fetches the load/active/sub state triple for one unit.
	// A unit the manager cannot resolve returns a *LookupError.
	GetUnitStatus(ctx context.Context, name string) (UnitStatus, error)

	// Close releases resources associated with the client.
	Close() error
}
