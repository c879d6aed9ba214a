package scheduler

import "fmt"

// Kind enumerates the ways a node activation, or the run as a whole, can
// fail.
type Kind string

const (
	KindDependencyFailed        Kind = "dependency_failed"
	KindExecutionFailed         Kind = "execution_failed"
	KindPinNotReady             Kind = "pin_not_ready"
	KindConcurrencyLimitReached Kind = "concurrency_limit_reached"
	KindCancelled                Kind = "cancelled"
	KindFatal                    Kind = "fatal"
)

// FlowError is the error type the scheduler's activation and run failure
// paths produce (an execctx error such as PinNotReadyError arrives wrapped
// in Err), carrying enough context for callers to use errors.As/errors.Is
// without type-switching on ad hoc error structs.
type FlowError struct {
	Kind   Kind
	NodeID string
	Err    error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: node %s: %v", e.Kind, e.NodeID, e.Err)
	}
	return fmt.Sprintf("%s: node %s", e.Kind, e.NodeID)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, &FlowError{Kind: K}) match on kind alone.
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.NodeID != "" && t.NodeID != e.NodeID {
		return false
	}
	return true
}
