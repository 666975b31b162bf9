// Package hostport is a goroutine-based Port (§6.1) for running the kernel
// on a development host instead of real hardware: for tests, for the
// cmd/blinky and cmd/pipeline example applications, and for any other
// program that wants the scheduling/synchronization semantics of the
// kernel without a cross-compiled target.
//
// Exactly one thread's goroutine is ever runnable at a time. Every other
// thread's goroutine sits blocked on a per-thread gate channel, parked by
// the previous PerformSwitch call that handed control away from it. This
// mirrors, with channels in place of saved/restored CPU registers, what a
// real architecture port's context switch does: give the illusion of a
// single core to code that assumes one.
package hostport

import (
	"math/bits"
	"runtime"
	"sync"

	"github.com/tn-go/ukernel"
)

// Port is a goroutine-based ukernel.Port. The zero value is not usable;
// construct with New.
type Port struct {
	mu    sync.Mutex
	depth int // nesting depth of EnterCritical/ExitCritical, since Go has no hardware interrupt mask to save/restore
}

// New constructs a hostport.Port. Pass the result to ukernel.NewKernel.
func New() *Port {
	return &Port{}
}

// gate is the per-thread portState: a single-slot, unbuffered-in-practice
// channel a thread's goroutine blocks receiving from, and that
// PerformSwitch sends to in order to release it.
type gate struct {
	ch chan struct{}
}

func newGate() *gate {
	return &gate{ch: make(chan struct{})}
}

func (g *gate) release() {
	g.ch <- struct{}{}
}

func (g *gate) wait() {
	<-g.ch
}

// EnterCritical acquires the Port's mutex, modeling an architecture's
// interrupt mask: while held, no other goroutine can be mid-way through a
// kernel operation, exactly as masking interrupts up to the kernel's API
// priority prevents a nested ISR from re-entering the kernel on real
// hardware. The returned token is the pre-call nesting depth, restored by
// the matching ExitCritical. The mutex is not reentrant: a second
// EnterCritical on the same goroutine before the matching ExitCritical
// blocks forever, so critical sections on hostport do not nest.
func (p *Port) EnterCritical() uint32 {
	p.mu.Lock()
	depth := p.depth
	p.depth++
	return uint32(depth)
}

// ExitCritical releases the critical section entered by the matching
// EnterCritical call.
func (p *Port) ExitCritical(token uint32) {
	p.depth = int(token)
	p.mu.Unlock()
}

// RequestSwitch is a no-op on hostport: there is no deferred exception to
// pend, since PerformSwitch always runs synchronously from endCritical.
func (p *Port) RequestSwitch() {}

// PerformSwitch releases next's goroutine and, if current is non-nil,
// blocks the calling goroutine (current's own) on its own gate until some
// future PerformSwitch releases it again. When current is nil (only true
// during Kernel.Start's boot dispatch), PerformSwitch returns immediately
// after releasing next, matching a boot ROM that hands off control and is
// never re-entered by the same call frame.
func (p *Port) PerformSwitch(current, next *ukernel.Thread) {
	if next != nil {
		nextGate, _ := next.PortState().(*gate)
		nextGate.release()
	}
	if current == nil {
		return
	}
	curGate, _ := current.PortState().(*gate)
	curGate.wait()
}

// InitStack spawns the goroutine that will run entry(arg), parked on its
// own gate until the first PerformSwitch that names it as next. A panic
// escaping entry is recovered and reported via Kernel.ReportFatal instead
// of crashing the host process, matching §7's "fatal misuse never silently
// corrupts other threads' state."
func (p *Port) InitStack(t *ukernel.Thread, entry func(arg any), arg any) {
	g := newGate()
	t.SetPortState(g)
	go func() {
		g.wait()
		defer func() {
			if r := recover(); r != nil {
				t.Kernel().ReportFatal(t, r)
			}
		}()
		entry(arg)
		t.Exit()
	}()
}

// HighestPriority is the portable bit-scan fallback named in §6.1: hostport
// has no hardware count-leading-zeros instruction, so it uses
// math/bits.TrailingZeros32, the same scan as the kernel core's own
// (unexported, unused by the dispatcher) priorityBitmap.highest.
func (p *Port) HighestPriority(bitmap uint32) (priority int, ok bool) {
	if bitmap == 0 {
		return 0, false
	}
	return bits.TrailingZeros32(bitmap), true
}

// IdleWait implements ukernel.IdleWaiter: there is no hardware wait-for-
// interrupt instruction on a host, so the idle thread's goroutine just
// yields the Go scheduler, which is cheaper and more responsive than
// idleThreadBody's time.Sleep(time.Millisecond) fallback.
func (p *Port) IdleWait() {
	runtime.Gosched()
}
