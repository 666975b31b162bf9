package ukernel

import (
	"errors"
	"fmt"
)

// Status is the closed set of outcomes a kernel operation may return.
//
// Unlike an open error hierarchy, Status is a fixed enumeration: every
// kernel primitive returns exactly one of these, synchronously, with no
// implicit retries. It mirrors the legacy osError_t taxonomy (TERR_NO_ERR,
// TERR_TIMEOUT, TERR_WRONG_PARAM, ...) one-for-one.
type Status int32

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = iota
	// StatusTimeout indicates a wait expired without its condition being satisfied.
	StatusTimeout
	// StatusWrongParam indicates an invalid argument (nil handle, out-of-range
	// priority, a zero timeout where one was required, capacity zero).
	StatusWrongParam
	// StatusNotExist indicates the object's identity tag does not match; it was
	// never initialized, or it has since been deleted.
	StatusNotExist
	// StatusWrongState indicates the call is not valid for the object's current
	// state (resuming a thread that is not suspended, deleting a thread that
	// is not dormant, unlocking a mutex not owned by the caller).
	StatusWrongState
	// StatusOverflow indicates a resource is exhausted (semaphore already at
	// its maximum count, or a block returned to a pool whose free list is
	// already full). A full queue or an empty pool is reported as
	// StatusTimeout when the caller polls or its wait expires.
	StatusOverflow
	// StatusDeleted indicates the object the caller was waiting on was deleted
	// while the caller was blocked.
	StatusDeleted
	// StatusIllegalUse indicates a forbidden parameter combination or usage
	// pattern (recursive lock of a non-recursive mutex, a blocking call from
	// ISR context).
	StatusIllegalUse
	// StatusISRContext indicates the operation is not permitted from interrupt
	// context.
	StatusISRContext
	// StatusForced indicates the wait was ended by an explicit external
	// release-wait rather than by the condition being satisfied or timing out.
	StatusForced
)

// String renders the status the way it would appear in a log entry or test
// failure message.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusTimeout:
		return "Timeout"
	case StatusWrongParam:
		return "WrongParam"
	case StatusNotExist:
		return "NotExist"
	case StatusWrongState:
		return "WrongState"
	case StatusOverflow:
		return "Overflow"
	case StatusDeleted:
		return "Deleted"
	case StatusIllegalUse:
		return "IllegalUse"
	case StatusISRContext:
		return "ISRContext"
	case StatusForced:
		return "Forced"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Sentinel errors, one per non-OK Status, so callers can use errors.Is
// against a stable value instead of comparing raw Status integers.
var (
	ErrTimeout     = errors.New("ukernel: timeout")
	ErrWrongParam  = errors.New("ukernel: wrong parameter")
	ErrNotExist    = errors.New("ukernel: object does not exist")
	ErrWrongState  = errors.New("ukernel: wrong state")
	ErrOverflow    = errors.New("ukernel: resource exhausted")
	ErrDeleted     = errors.New("ukernel: object deleted while waiting")
	ErrIllegalUse  = errors.New("ukernel: illegal use")
	ErrISRContext  = errors.New("ukernel: operation not permitted from ISR context")
	ErrForced      = errors.New("ukernel: wait released by force")
)

var statusSentinels = map[Status]error{
	StatusTimeout:    ErrTimeout,
	StatusWrongParam: ErrWrongParam,
	StatusNotExist:   ErrNotExist,
	StatusWrongState: ErrWrongState,
	StatusOverflow:   ErrOverflow,
	StatusDeleted:    ErrDeleted,
	StatusIllegalUse: ErrIllegalUse,
	StatusISRContext: ErrISRContext,
	StatusForced:     ErrForced,
}

// KernelError wraps a Status with the operation and object that produced it.
type KernelError struct {
	Status Status
	Op     string // operation name, e.g. "Mutex.Lock"
	Object string // object identifier or name, may be empty

	sentinel error
}

// newError builds a KernelError for a non-OK status; callers pass StatusOK
// through as a nil error via checkStatus.
func newError(status Status, op, object string) *KernelError {
	return &KernelError{
		Status:   status,
		Op:       op,
		Object:   object,
		sentinel: statusSentinels[status],
	}
}

func (e *KernelError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("ukernel: %s: %s: %s", e.Op, e.Object, e.Status)
	}
	return fmt.Sprintf("ukernel: %s: %s", e.Op, e.Status)
}

// Unwrap exposes the sentinel error for this status so errors.Is works.
func (e *KernelError) Unwrap() error {
	return e.sentinel
}

// Is reports whether target is the sentinel for this error's Status, or a
// KernelError with the same Status.
func (e *KernelError) Is(target error) bool {
	if target == e.sentinel {
		return true
	}
	var ke *KernelError
	if errors.As(target, &ke) {
		return ke.Status == e.Status
	}
	return false
}

// checkStatus turns a Status into an error, or nil for StatusOK.
func checkStatus(status Status, op, object string) error {
	if status == StatusOK {
		return nil
	}
	return newError(status, op, object)
}
