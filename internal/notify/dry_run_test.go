package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opsgate/unit-sentinel/internal/transition"
)

func TestDryRunNotifierLogsInsteadOfSending(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	notifier := NewDryRun(logger)
	if err := notifier.Notify(context.Background(), "web", makeTransitions(2)); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "suppressed notification") {
		t.Fatalf("expected dry-run log lines, got %q", out)
	}
	if !strings.Contains(out, "unit-0.service") || !strings.Contains(out, "unit-1.service") {
		t.Fatalf("expected one line per transition, got %q", out)
	}
	if !strings.Contains(out, `"previous":"ok"`) || !strings.Contains(out, `"current":"critical"`) {
		t.Fatalf("expected severity labels in log, got %q", out)
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	first := &countingNotifier{}
	second := &countingNotifier{}

	notifier := NewMulti(first, nil, second)
	if err := notifier.Notify(context.Background(), "web", makeTransitions(1)); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected both notifiers called once, got %d and %d", first.calls, second.calls)
	}
}

func TestMultiNotifierCollectsErrors(t *testing.T) {
	failing := &countingNotifier{err: context.DeadlineExceeded}
	ok := &countingNotifier{}

	notifier := NewMulti(failing, ok)
	err := notifier.Notify(context.Background(), "web", makeTransitions(1))
	if err == nil {
		t.Fatal("expected combined error")
	}
	if ok.calls != 1 {
		t.Fatalf("expected healthy notifier still called, got %d calls", ok.calls)
	}
}

func TestMultiNotifierUnwrapsSingle(t *testing.T) {
	only := &countingNotifier{}
	if got := NewMulti(nil, only, nil); got != only {
		t.Fatalf("expected single notifier returned unwrapped, got %T", got)
	}
}

func TestMultiNotifierEmptyIsNoop(t *testing.T) {
	notifier := NewMulti()
	if _, ok := notifier.(*NoopNotifier); !ok {
		t.Fatalf("expected NoopNotifier, got %T", notifier)
	}
}

// countingNotifier records calls and optionally fails.
type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, string, []transition.UnitTransition) error {
	c.calls++
	return c.err
}
