package runner

import "fmt"

// CycleError captures a cycle failure that should not stop the runner
// loop, tagged with the target and the step that failed.
type CycleError struct {
	Target string
	Op     string
	Err    error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("target %s: %s: %v", e.Target, e.Op, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

func wrapCycle(target, op string, err error) error {
	if err == nil {
		return nil
	}
	return &CycleError{Target: target, Op: op, Err: err}
}
