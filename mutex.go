package ukernel

// Mutex implements §4.6: a lock with a choice, fixed at creation, between
// priority inheritance (ceiling == 0) and priority ceiling protocol
// (ceiling > 0), grounded on tn_mutex.c's find_max_blocked_priority /
// do_unlock_mutex and the chained boost walk in tn_tasks.c's
// knlThreadSetPriority. Its wait queue is plain FIFO, like every other
// blocking primitive in this package (§5); only hand-off, not queue
// order, favors the longest-waiting thread.
type Mutex struct {
	kernel *Kernel
	id     int64
	Name   string

	ceiling   int // 0: priority inheritance. >0: priority ceiling protocol.
	robust    bool
	recursive bool

	locked  bool
	deleted bool
	owner   *Thread
	depth   int // lock count by owner; >1 only when recursive is set

	// ownerLink is this mutex's node in its owner's heldMutexes list.
	ownerLink *listNode[*Mutex]
	waitQ     *listNode[*Thread]
}

type mutexOptions struct {
	ceiling   int
	robust    bool
	recursive bool
	name      string
}

// MutexOption configures a Mutex instance.
type MutexOption interface {
	applyMutex(*mutexOptions) error
}

type mutexOptionImpl struct {
	applyMutexFunc func(*mutexOptions) error
}

func (o *mutexOptionImpl) applyMutex(opts *mutexOptions) error {
	return o.applyMutexFunc(opts)
}

// WithMutexCeiling selects the priority ceiling protocol and sets the
// ceiling priority: any thread holding this mutex runs at least at
// ceiling. Omitting this option selects priority inheritance instead.
func WithMutexCeiling(ceiling int) MutexOption {
	return &mutexOptionImpl{func(opts *mutexOptions) error {
		if ceiling <= 0 || ceiling >= NumPriorities-1 {
			return newError(StatusWrongParam, "WithMutexCeiling", "")
		}
		opts.ceiling = ceiling
		return nil
	}}
}

// WithRobustMutex marks the mutex for forced release, to its next waiter,
// when its owner terminates rather than unlocking it normally (§13,
// supplemented from the original's robust-mutex behavior). Without this
// option a mutex whose owner terminates while holding it stays locked and
// ownerless, a documented hazard rather than a silent one.
func WithRobustMutex(enabled bool) MutexOption {
	return &mutexOptionImpl{func(opts *mutexOptions) error {
		opts.robust = enabled
		return nil
	}}
}

// WithRecursiveMutex lets the owning thread re-lock this mutex without
// deadlocking itself (§4.6): each extra Lock call by the owner increments
// a depth counter instead of blocking, and the mutex only actually becomes
// free, and eligible for hand-off, once a matching number of Unlock calls
// brings the counter back to zero. Without this option a re-lock attempt
// by the owner returns StatusIllegalUse.
func WithRecursiveMutex(enabled bool) MutexOption {
	return &mutexOptionImpl{func(opts *mutexOptions) error {
		opts.recursive = enabled
		return nil
	}}
}

// WithMutexName attaches a human-readable name, used only for logging.
func WithMutexName(name string) MutexOption {
	return &mutexOptionImpl{func(opts *mutexOptions) error {
		opts.name = name
		return nil
	}}
}

func resolveMutexOptions(opts []MutexOption) (*mutexOptions, error) {
	cfg := &mutexOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyMutex(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewMutex creates an unlocked Mutex.
func (k *Kernel) NewMutex(opts ...MutexOption) (*Mutex, error) {
	cfg, err := resolveMutexOptions(opts)
	if err != nil {
		return nil, err
	}
	m := &Mutex{
		kernel:    k,
		id:        k.nextMutexIDValue(),
		Name:      cfg.name,
		ceiling:   cfg.ceiling,
		robust:    cfg.robust,
		recursive: cfg.recursive,
		waitQ:     newHeader[*Thread](),
	}
	return m, nil
}

// requiredFloor reports the priority floor this mutex currently imposes on
// its owner: the ceiling for a PC mutex, or the highest-priority waiter's
// priority for a PI mutex. The wait queue is plain FIFO (§5), so the
// highest-priority waiter is found by scanning the whole queue rather than
// reading its head, grounded on find_max_blocked_priority. Used by
// Kernel.recomputePriority. Must be called with the critical section held.
func (m *Mutex) requiredFloor() (floor int, ok bool) {
	if !m.locked {
		return 0, false
	}
	if m.ceiling > 0 {
		return m.ceiling, true
	}
	if m.waitQ.empty() {
		return 0, false
	}
	m.waitQ.each(func(n *listNode[*Thread]) {
		if !ok || n.elem.priority < floor {
			floor = n.elem.priority
			ok = true
		}
	})
	return floor, ok
}

// lockToLocked grants the mutex to t: marks it locked, records ownership,
// links into t's heldMutexes, and, for a ceiling mutex, immediately raises
// t's priority to the ceiling if it is currently lower. Must be called
// with the critical section held.
func (m *Mutex) lockToLocked(t *Thread) {
	m.locked = true
	m.owner = t
	m.depth = 1
	m.ownerLink = newElem(m)
	t.heldMutexes.pushBack(m.ownerLink)
	if m.ceiling > 0 {
		m.kernel.recomputePriority(t)
	}
}

// Lock acquires the mutex, blocking up to timeout ticks if it is already
// held by another thread (§4.6). Polling returns immediately with
// StatusTimeout if the mutex is not free; Forever never times out.
// Attempting to lock a mutex the calling thread already owns returns
// StatusIllegalUse, unless the mutex was created with WithRecursiveMutex,
// in which case it increments the owner's depth count and returns
// StatusOK instead.
func (m *Mutex) Lock(timeout Tick) Status {
	k := m.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if m.deleted {
		k.port.ExitCritical(tok)
		return StatusDeleted
	}
	if !m.locked {
		m.lockToLocked(t)
		k.port.ExitCritical(tok)
		return StatusOK
	}
	if m.owner == t {
		if !m.recursive {
			k.port.ExitCritical(tok)
			return StatusIllegalUse
		}
		m.depth++
		k.port.ExitCritical(tok)
		return StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return StatusTimeout
	}
	reason := WaitReasonMutexInherit
	if m.ceiling > 0 {
		reason = WaitReasonMutexCeiling
	}
	t.blockingMutex = m
	k.unlinkReady(t)
	t.state = StateBlocked
	t.waitReason = reason
	m.waitQ.pushBack(t.link)
	if !timeout.isForever() {
		t.event.deadline = k.tick + timeout
		k.timers.insert(t.event)
	}
	// t just became the highest-priority waiter candidate; the owner
	// inherits up to t's priority if t outranks it (§4.6 priority
	// inheritance). Ceiling mutexes already hold their owner at the
	// ceiling from lockToLocked and need no per-waiter adjustment.
	if m.ceiling == 0 && m.owner != nil {
		k.recomputePriority(m.owner)
		// An owner that is itself blocked on another inheritance mutex
		// passes the raised priority on to that mutex's owner, and so on
		// down the chain until a priority no longer changes.
		for o := m.owner; o.blockingMutex != nil; {
			bm := o.blockingMutex
			if bm.ceiling > 0 || bm.owner == nil {
				break
			}
			prev := bm.owner.priority
			k.recomputePriority(bm.owner)
			if bm.owner.priority == prev {
				break
			}
			o = bm.owner
		}
	}
	k.port.ExitCritical(tok)
	k.endCritical()
	status := t.retVal
	t.blockingMutex = nil
	if status == StatusOK {
		// woken by Unlock's direct hand-off: ownership was already
		// transferred to t under the critical section there.
		return StatusOK
	}
	// t gave up waiting (timeout or forced release); the owner's inherited
	// priority may no longer need to be as high.
	tok = k.port.EnterCritical()
	if m.locked && m.owner != nil {
		k.recomputePriority(m.owner)
	}
	k.port.ExitCritical(tok)
	return status
}

// TryLock is Lock with Polling, spelled out for readability at call sites.
func (m *Mutex) TryLock() Status {
	return m.Lock(Polling)
}

// Unlock releases the mutex. Only the owner may call it; any other caller
// gets StatusWrongState. For a recursive mutex locked more than once by
// its owner, Unlock only decrements the depth count until it reaches
// zero; the mutex stays held by the same owner in the meantime. Once the
// mutex actually becomes free, if a thread is waiting, ownership
// transfers directly to the one that has been waiting longest (woken
// with StatusOK) rather than freeing the mutex to be raced for, avoiding
// the classic unbounded priority inversion window.
func (m *Mutex) Unlock() error {
	k := m.kernel
	t := k.current
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if m.deleted {
		return checkStatus(StatusDeleted, "Mutex.Unlock", m.Name)
	}
	if !m.locked || m.owner != t {
		return checkStatus(StatusWrongState, "Mutex.Unlock", m.Name)
	}
	if m.depth > 1 {
		m.depth--
		return nil
	}
	m.releaseFromLocked(t)
	return nil
}

// releaseFromLocked unlinks the mutex from the releasing thread's
// heldMutexes, recomputes that thread's priority, and either hands the
// mutex directly to the waiter at the head of the FIFO wait queue or
// marks it free. Must be called with the critical section held.
func (m *Mutex) releaseFromLocked(releasing *Thread) {
	k := m.kernel
	m.ownerLink.unlink()
	m.ownerLink = nil
	m.locked = false
	m.owner = nil
	k.recomputePriority(releasing)

	if m.waitQ.empty() {
		return
	}
	next := m.waitQ.next.elem
	k.wakeLocked(next, StatusOK)
	m.lockToLocked(next)
}

// onOwnerTerminated is called by Kernel.terminate for every mutex a
// terminating thread still holds (§13). A robust mutex is released to the
// waiter at the head of its wait queue exactly as Unlock would; a
// non-robust mutex is left locked and ownerless; either way it is
// unlinked from the dead thread's heldMutexes. Must be called with the
// critical section held.
func (m *Mutex) onOwnerTerminated(k *Kernel) {
	if !m.robust {
		m.ownerLink.unlink()
		m.ownerLink = nil
		m.owner = nil
		return
	}
	owner := m.owner
	m.ownerLink.unlink()
	m.ownerLink = nil
	m.locked = false
	m.owner = nil
	if owner != nil {
		owner.priority = owner.basePriority
	}
	if m.waitQ.empty() {
		return
	}
	next := m.waitQ.next.elem
	k.wakeLocked(next, StatusOK)
	m.lockToLocked(next)
}

// Delete invalidates the mutex, waking every waiter with StatusDeleted. A
// held, undeleted mutex can be deleted out from under its owner; the
// owner's next Unlock call then fails with StatusDeleted.
func (m *Mutex) Delete() error {
	k := m.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if m.deleted {
		return checkStatus(StatusDeleted, "Mutex.Delete", m.Name)
	}
	m.deleted = true
	k.wakeAllDeleted(m.waitQ)
	return nil
}
