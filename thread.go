package ukernel

// Thread is the kernel's execution unit (§3.1). Its control block is
// caller-provided storage: NewThread initializes one, Delete invalidates
// it, and the kernel never allocates or frees a Thread's backing memory
// beyond the Go struct itself.
type Thread struct {
	kernel *Kernel
	id     int64

	// Name is used only for logging and debugging.
	Name string

	entry func(arg any)
	arg   any

	basePriority int // immutable after creation
	priority     int // current, inherited/ceiling-adjusted

	state      ThreadState
	waitReason WaitReason
	suspended  bool // administrative suspend, orthogonal to Blocked

	pendingWakeups int // Wakeup() calls that raced ahead of Sleep()

	retVal   Status // written by whoever wakes this thread
	waitData any    // payload handed across by a direct-hand wake (pool block, queue value, message bytes)

	// link is this thread's membership node: in a ready list while Ready,
	// in an object's wait queue while Blocked on that object. A thread is
	// linked into at most one such list at a time (§3.1 invariant).
	link *listNode[*Thread]

	// event is this thread's embedded timer event, used for Sleep and for
	// the timeout side of any timed wait.
	event *timerEvent

	// heldMutexes lists, via each Mutex's ownerLink, every mutex this
	// thread currently holds (§4.6).
	heldMutexes *listNode[*Mutex]

	// blockingMutex is the mutex this thread is currently blocked trying
	// to acquire, used by the priority-inheritance chain walk (§4.6, §9).
	blockingMutex *Mutex

	sliceTicks int // round-robin ticks consumed at the current priority

	portState any // architecture-port-specific per-thread bookkeeping
}

// Priority returns the thread's current (possibly inherited/ceiling-raised)
// priority.
func (t *Thread) Priority() int { return t.priority }

// BasePriority returns the thread's immutable base priority.
func (t *Thread) BasePriority() int { return t.basePriority }

// State returns the thread's current scheduling state.
func (t *Thread) State() ThreadState { return t.state }

// Kernel returns the Kernel t was created on, so a Port implementation
// holding only a *Thread (as InitStack does) can reach back into the
// kernel it belongs to.
func (t *Thread) Kernel() *Kernel { return t.kernel }

// PortState returns the architecture-port-specific value previously stored
// with SetPortState, or nil if none has been set. The kernel core never
// reads or writes this itself; it exists solely so a Port implementation
// can attach its own per-thread bookkeeping (a goroutine's gate channel on
// a hosted port, saved register state on a real target) to a Thread
// without the core depending on any concrete Port's internals.
func (t *Thread) PortState() any { return t.portState }

// SetPortState stores v as this thread's port-specific bookkeeping, for
// later retrieval via PortState.
func (t *Thread) SetPortState(v any) { t.portState = v }

// NewThread creates a thread in StateInactive (or StateReady, with
// WithStartOnCreate). priority must be in [1, NumPriorities-2]; priority 0
// and NumPriorities-1 are reserved for the timer and idle threads (§4.11,
// §4.12, glossary).
func (k *Kernel) NewThread(priority int, entry func(arg any), arg any, opts ...ThreadOption) (*Thread, error) {
	cfg, err := resolveThreadOptions(opts)
	if err != nil {
		return nil, err
	}
	if priority <= 0 || priority >= NumPriorities-1 {
		return nil, newError(StatusWrongParam, "NewThread", "")
	}
	if entry == nil {
		return nil, newError(StatusWrongParam, "NewThread", "")
	}

	t := &Thread{
		kernel:       k,
		id:           k.nextThreadID(),
		Name:         cfg.name,
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

	k.logf(LevelDebug, "thread", t, "created priority=%d", priority)

	if cfg.startOnCreate {
		tok := k.port.EnterCritical()
		k.ready(t)
		k.port.ExitCritical(tok)
		k.endCritical()
	}
	return t, nil
}

// Activate transitions an Inactive thread to Ready (§4.2). Returns
// StatusWrongState if the thread is not Inactive.
func (t *Thread) Activate() error {
	k := t.kernel
	tok := k.port.EnterCritical()
	if t.state != StateInactive {
		k.port.ExitCritical(tok)
		return checkStatus(StatusWrongState, "Thread.Activate", t.Name)
	}
	k.ready(t)
	k.port.ExitCritical(tok)
	k.endCritical()
	return nil
}

// Suspend administratively suspends a Ready or Blocked thread, removing it
// from consideration by the dispatcher without otherwise disturbing its
// logical state (§13, supplemented from tn_task_suspend). A suspended
// thread that is also waiting on an object remains in that object's wait
// queue and can still be woken by the object's normal paths; it will not
// actually become Ready until Resume is also called.
func (t *Thread) Suspend() error {
	k := t.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if t.state == StateInactive || t.state == StateTerminated {
		return checkStatus(StatusWrongState, "Thread.Suspend", t.Name)
	}
	if t.suspended {
		return checkStatus(StatusWrongState, "Thread.Suspend", t.Name)
	}
	t.suspended = true
	if t.state == StateReady {
		k.unlinkReady(t)
	}
	return nil
}

// Resume clears administrative suspension, re-readying the thread if its
// logical state no longer has it blocked on anything.
func (t *Thread) Resume() error {
	k := t.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if !t.suspended {
		return checkStatus(StatusWrongState, "Thread.Resume", t.Name)
	}
	t.suspended = false
	if t.state == StateReady {
		k.linkReady(t)
	}
	return nil
}

// Sleep blocks the calling thread for the given number of ticks. It
// returns StatusTimeout once the ticks have elapsed, StatusOK if Wakeup
// ended the sleep early, or StatusForced if ReleaseWait did. Sleep(Forever)
// schedules no timer event and lasts until Wakeup or ReleaseWait. Sleep(0)
// still blocks: the thread becomes Ready again on the timer thread's pass
// after the next tick. A Wakeup call that arrives before the matching Sleep
// is remembered as a pending-wakeup credit and consumed immediately
// instead of blocking (§13).
func (t *Thread) Sleep(ticks Tick) Status {
	k := t.kernel
	tok := k.port.EnterCritical()
	if t.pendingWakeups > 0 {
		t.pendingWakeups--
		k.port.ExitCritical(tok)
		return StatusOK
	}
	return k.waitOn(tok, t, nil, WaitReasonSleep, ticks, ticks.isForever())
}

// Wakeup ends another thread's sleep early. If the target is not
// currently sleeping, the wakeup is banked as a pending-wakeup credit,
// consumed by the target's next Sleep call (§13).
func (t *Thread) Wakeup() error {
	k := t.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if t.state == StateBlocked && t.waitReason == WaitReasonSleep {
		k.timers.cancel(t.event)
		k.wakeLocked(t, StatusOK)
		return nil
	}
	if t.state == StateInactive || t.state == StateTerminated {
		return checkStatus(StatusWrongState, "Thread.Wakeup", t.Name)
	}
	t.pendingWakeups++
	return nil
}

// ReleaseWait forces a Blocked thread to wake with StatusForced, the only
// cancellation mechanism the kernel provides (§5 "Cancellation & timeouts").
func (t *Thread) ReleaseWait() error {
	k := t.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if t.state != StateBlocked {
		return checkStatus(StatusWrongState, "Thread.ReleaseWait", t.Name)
	}
	k.timers.cancel(t.event)
	k.wakeLocked(t, StatusForced)
	return nil
}

// ChangePriority sets the thread's base priority, recomputing its current
// priority the same way Mutex.Unlock does (max of base and every held
// mutex's required floor), and re-queues it if Ready.
func (t *Thread) ChangePriority(newPriority int) error {
	if newPriority <= 0 || newPriority >= NumPriorities-1 {
		return checkStatus(StatusWrongParam, "Thread.ChangePriority", t.Name)
	}
	k := t.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	t.basePriority = newPriority
	k.recomputePriority(t)
	return nil
}

// Exit is called by a thread's entry function to terminate itself
// voluntarily; the Port's per-thread wrapper (on hostport, the goroutine
// started by InitStack) also calls it if entry returns normally.
func (t *Thread) Exit() {
	t.kernel.terminate(t)
}

// Terminate externally terminates another thread (§4.2: "self-exit or
// external terminate"). Any mutexes flagged robust that t currently holds
// are released to their next waiter (§4.6, §13).
func (t *Thread) Terminate() error {
	k := t.kernel
	if t.state == StateTerminated || t.state == StateInactive {
		return checkStatus(StatusWrongState, "Thread.Terminate", t.Name)
	}
	k.terminate(t)
	return nil
}

// Delete invalidates the control block. The caller-provided storage is not
// freed; Delete only marks it unusable. The thread must be Terminated
// (dormant) first.
func (t *Thread) Delete() error {
	if t.state != StateTerminated && t.state != StateInactive {
		return checkStatus(StatusWrongState, "Thread.Delete", t.Name)
	}
	t.kernel = nil
	return nil
}
