package notify

import (
	"context"

	"github.com/opsgate/unit-sentinel/internal/transition"
)

// NoopNotifier swallows notifications. Used when no sink is
// configured.
type NoopNotifier struct{}

// NewNoop returns a notifier that does nothing.
func NewNoop() *NoopNotifier {
	return &NoopNotifier{}
}

func (n *NoopNotifier) Notify(_ context.Context, _ string, _ []transition.UnitTransition) error {
	return nil
}
