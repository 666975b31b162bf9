package ukernel

import (
	"fmt"
)

// FatalError reports an implementation-defined fatal condition: a thread
// entry function panicked, or a stack watermark check failed (§7, "Fatal
// misuse ... is an implementation-defined reaction — the design mandates
// only that such conditions never silently corrupt other threads' state").
//
// The Port implementation running a thread's entry function recovers the
// panic at that boundary and calls Kernel.ReportFatal, which records it
// here, transitions the thread straight to StateTerminated exactly as a
// normal exit would (running its robust-mutex release pass), and hands the
// FatalError to the configured Logger. It never propagates into the
// dispatcher or any other thread's goroutine.
type FatalError struct {
	Thread *Thread
	Cause  any // the recovered panic value
}

func (e *FatalError) Error() string {
	name := "<unnamed>"
	if e.Thread != nil {
		name = e.Thread.Name
	}
	return fmt.Sprintf("ukernel: fatal: thread %q: %v", name, e.Cause)
}

// Unwrap exposes the recovered value when it is itself an error, so
// errors.Is/errors.As can see through a panic(err) to err.
func (e *FatalError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
