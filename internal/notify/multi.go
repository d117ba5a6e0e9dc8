package notify

import (
	"context"
	"errors"

	"github.com/opsgate/unit-sentinel/internal/transition"
)

// MultiNotifier fans a notification out to every configured notifier
// and reports the combined failures. One sink failing does not stop
// the others from being tried.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMulti bundles notifiers into a single Notifier. Nil entries are
// dropped; a single survivor is returned unwrapped.
func NewMulti(notifiers ...Notifier) Notifier {
	kept := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	switch len(kept) {
	case 0:
		return NewNoop()
	case 1:
		return kept[0]
	}
	return &MultiNotifier{notifiers: kept}
}

func (m *MultiNotifier) Notify(ctx context.Context, target string, transitions []transition.UnitTransition) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, target, transitions); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
