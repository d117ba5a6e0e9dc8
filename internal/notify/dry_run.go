package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opsgate/unit-sentinel/internal/transition"
)

// DryRunNotifier logs what would have been sent instead of delivering
// it. Wraps the real notifier so the rest of the pipeline stays
// unchanged.
type DryRunNotifier struct {
	logger zerolog.Logger
}

// NewDryRun returns a notifier that only logs.
func NewDryRun(logger zerolog.Logger) *DryRunNotifier {
	return &DryRunNotifier{logger: logger.With().Str("notifier", "dry-run").Logger()}
}

func (n *DryRunNotifier) Notify(_ context.Context, target string, transitions []transition.UnitTransition) error {
	if n == nil {
		return nil
	}
	for _, tr := range transitions {
		n.logger.Info().
			Str("target", target).
			Str("unit", tr.Name).
			Str("previous", tr.Previous.Label()).
			Str("current", tr.Current.Label()).
			Str("description", tr.Description).
			Msg("dry-run: suppressed notification")
	}
	return nil
}
