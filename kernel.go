package ukernel

import (
	"fmt"
	"time"
)

// Kernel is the scheduler instance: ready lists, priority bitmap, timer
// list and the Port it runs on (§3.1, §6). One Kernel owns one Port; a
// process hosting more than one Kernel (e.g. for testing) uses one Port
// instance per Kernel.
type Kernel struct {
	port Port
	cfg  *kernelOptions

	readyLists [NumPriorities]*listNode[*Thread]
	bitmap     priorityBitmap
	timers     *timerList
	tick       Tick

	current *Thread

	idleThread  *Thread
	timerThread *Thread

	logger Logger

	state       *fastKernelState
	nextID      int64
	nextMutexID int64
}

// NewKernel constructs a Kernel bound to port, in KernelInactive. Start
// transitions it to KernelRunning and performs the first dispatch. The idle
// thread (priority NumPriorities-1) and the dedicated timer thread
// (priority 0) are created here, per §4.11/§4.12; neither is reachable
// through NewThread, whose priority range is [1, NumPriorities-2].
func NewKernel(port Port, opts ...KernelOption) (*Kernel, error) {
	if port == nil {
		return nil, newError(StatusWrongParam, "NewKernel", "")
	}
	cfg, err := resolveKernelOptions(opts)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		port:   port,
		cfg:    cfg,
		timers: newTimerList(),
		logger: cfg.logger,
		state:  newFastKernelState(),
	}
	for i := range k.readyLists {
		k.readyLists[i] = newHeader[*Thread]()
	}

	k.idleThread = k.newSystemThread(NumPriorities-1, idleThreadBody, k, "idle")
	k.timerThread = k.newSystemThread(0, timerThreadBody, k, "timer")
	return k, nil
}

// newSystemThread creates the idle or timer thread, bypassing NewThread's
// application priority range check and startOnCreate resolution: both
// system threads are always Ready from construction.
func (k *Kernel) newSystemThread(priority int, entry func(arg any), arg any, name string) *Thread {
	t := &Thread{
		kernel:       k,
		id:           k.nextThreadID(),
		Name:         name,
		entry:        entry,
		arg:          arg,
		basePriority: priority,
		priority:     priority,
		state:        StateInactive,
		heldMutexes:  newHeader[*Mutex](),
	}
	t.link = newElem(t)
	t.event = newTimerEvent(func(kk *Kernel, ev *timerEvent) { kk.wakeTimeout(t) })
	k.port.InitStack(t, entry, arg)
	k.ready(t)
	return t
}

func (k *Kernel) nextThreadID() int64 {
	k.nextID++
	return k.nextID
}

func (k *Kernel) nextMutexIDValue() int64 {
	k.nextMutexID++
	return k.nextMutexID
}

// logf records a structured log entry if a logger is configured and
// enabled at level. t may be nil for kernel-global events (tick, dispatch
// with no prior current thread).
func (k *Kernel) logf(level LogLevel, category string, t *Thread, format string, args ...any) {
	if k.logger == nil || !k.logger.IsEnabled(level) {
		return
	}
	var tid int64
	if t != nil {
		tid = t.id
	}
	k.logger.Log(LogEntry{
		Level:     level,
		Category:  category,
		ThreadID:  tid,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	})
}

// Start transitions the kernel from Inactive to Running and performs the
// initial dispatch, handing control to the highest-priority ready thread.
// That is always the timer thread (priority 0, Ready from construction);
// it blocks at once until the next Tick, and the dispatcher then moves on
// to the highest-priority ready application thread, or to the idle thread
// if none is ready. It returns once the first hand-off has
// happened; on a hosted Port this does not block the calling goroutine,
// matching a real boot ROM that hands off to the first thread and is never
// revisited.
func (k *Kernel) Start() error {
	if !k.state.TryTransition(KernelInactive, KernelRunning) {
		return checkStatus(StatusWrongState, "Kernel.Start", "")
	}
	tok := k.port.EnterCritical()
	top := k.dispatchLocked()
	k.current = top
	if top != nil {
		top.state = StateRunning
	}
	k.port.ExitCritical(tok)
	k.logf(LevelInfo, "dispatch", top, "kernel started")
	k.port.PerformSwitch(nil, top)
	return nil
}

// CurrentThread returns the thread currently running on this Kernel,
// mirroring the original's tn_curr_run_task global. A thread's entry
// function uses this to operate on itself (Sleep, ChangePriority) without
// needing its own *Thread threaded through as the entry arg.
func (k *Kernel) CurrentThread() *Thread {
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	return k.current
}

// Shutdown transitions the kernel to Terminated. Afterward Tick has no
// effect and no context switch is performed; thread and object operations
// still update their own state but never dispatch. It exists for hosted
// ports and tests that need to tear a Kernel down deterministically.
func (k *Kernel) Shutdown() {
	k.state.Store(KernelTerminated)
}

// Tick advances the kernel's notion of time by one tick (§6.2). It is the
// external driver's sole entry point: a hardware timer ISR on target, or a
// ticker goroutine on a hosted port. Tick fires due timer events (by
// waking the dedicated timer thread, never by running callbacks itself —
// §4.10 requires callbacks to run outside any interrupt/critical context)
// and rotates round-robin ready lists for threads that have exhausted
// their slice.
func (k *Kernel) Tick() {
	if !k.state.IsRunning() {
		return
	}
	tok := k.port.EnterCritical()
	k.tick++
	if cur := k.current; cur != nil && cur != k.idleThread && cur != k.timerThread {
		if slice := k.cfg.roundRobinSlices[cur.priority]; slice > 0 {
			cur.sliceTicks++
			if cur.sliceTicks >= slice {
				cur.sliceTicks = 0
				k.rotateReady(cur.priority)
			}
		}
	}
	if _, ok := k.timers.nextDeadline(); ok && k.timerThread.state == StateBlocked {
		k.wakeLocked(k.timerThread, StatusOK)
	}
	k.port.ExitCritical(tok)
	k.endCritical()
}

// terminate performs the common self-exit / external-terminate transition
// (§4.2, §13): every mutex t still holds that was created with
// WithRobustMutex is force-released to its next waiter; every other held
// mutex is left locked and ownerless, a documented deadlock hazard rather
// than a silent correctness violation (§13 Open Question, recorded in
// DESIGN.md).
func (k *Kernel) terminate(t *Thread) {
	tok := k.port.EnterCritical()
	t.heldMutexes.each(func(n *listNode[*Mutex]) {
		n.elem.onOwnerTerminated(k)
	})
	k.timers.cancel(t.event)
	k.unlinkReady(t)
	t.link.unlink()
	t.state = StateTerminated
	t.waitReason = WaitReasonNone
	k.port.ExitCritical(tok)
	k.logf(LevelDebug, "thread", t, "terminated")
	k.endCritical()
}

// ReportFatal records a FatalError for a thread whose entry function
// panicked (or whose Port detected an unrecoverable condition, such as a
// failed stack watermark check) and terminates it exactly as a normal exit
// would, running its robust-mutex release pass (§7, §13). Port
// implementations call this from the goroutine/interrupt context that runs
// a thread's entry function, having already recovered the panic.
func (k *Kernel) ReportFatal(t *Thread, cause any) {
	k.logf(LevelError, "thread", t, "fatal: %v", cause)
	if k.logger != nil {
		k.logger.Log(LogEntry{
			Level:     LevelError,
			Category:  "thread",
			ThreadID:  t.id,
			Err:       &FatalError{Thread: t, Cause: cause},
			Timestamp: time.Now(),
		})
	}
	k.terminate(t)
}

// idleThreadBody never blocks on any synchronization object (§4.12): it
// only ever yields the processor back to the dispatcher. A Port that wants
// to execute a real wait-for-interrupt instruction implements IdleWaiter;
// otherwise idleThreadBody cooperatively yields so a hosted Port's
// goroutine scheduler can make progress.
func idleThreadBody(arg any) {
	k := arg.(*Kernel)
	waiter, hasWaiter := k.port.(IdleWaiter)
	for {
		if hasWaiter {
			waiter.IdleWait()
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

// IdleWaiter is an optional Port extension: a Port that can put the
// processor into a genuine low-power wait implements it, and the idle
// thread calls it on every iteration instead of busy-yielding.
type IdleWaiter interface {
	IdleWait()
}

// timerThreadBody is the dedicated timer thread's entry function (§4.11):
// it blocks forever waiting for Tick to wake it, then drains and runs
// every timer event whose deadline has passed, with the critical section
// released so a callback may itself call into the kernel.
func timerThreadBody(arg any) {
	k := arg.(*Kernel)
	for {
		k.timerThreadWaitForTick()
		tok := k.port.EnterCritical()
		fired := k.timers.popExpired(k.tick)
		k.port.ExitCritical(tok)
		for _, ev := range fired {
			ev.callback(k, ev)
		}
	}
}

func (k *Kernel) timerThreadWaitForTick() Status {
	tok := k.port.EnterCritical()
	return k.waitOn(tok, k.timerThread, nil, WaitReasonTimer, 0, true)
}
