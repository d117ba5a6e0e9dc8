package notify

import (
	"context"

	"github.com/opsgate/unit-sentinel/internal/transition"
)

// Notifier delivers unit transition alerts to external systems.
type Notifier interface {
	Notify(ctx context.Context, target string, transitions []transition.UnitTransition) error
}
