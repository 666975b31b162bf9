package ukernel

// This file implements the dispatcher: ready-list/bitmap bookkeeping, the
// highest-priority-ready selection, and the priority recomputation used by
// mutex release and ChangePriority (§4.2, §4.6).
//
// Every function here must be called with the kernel's critical section
// held (via Kernel.port.EnterCritical); none of them take it themselves.

// ready marks t Ready, appends it to its priority's ready list and sets the
// bitmap bit. If t is administratively suspended, it is marked Ready
// logically but not actually linked, matching Thread.Suspend/Resume's
// contract.
func (k *Kernel) ready(t *Thread) {
	t.state = StateReady
	t.sliceTicks = 0
	if t.suspended {
		return
	}
	k.linkReady(t)
}

func (k *Kernel) linkReady(t *Thread) {
	k.readyLists[t.priority].pushBack(t.link)
	k.bitmap.set(t.priority)
}

// unlinkReady removes t from its priority's ready list if it is linked
// there, clearing the bitmap bit when the list empties. Safe to call on a
// thread that is not currently in a ready list.
func (k *Kernel) unlinkReady(t *Thread) {
	if !t.link.linked() {
		return
	}
	t.link.unlink()
	if k.readyLists[t.priority].empty() {
		k.bitmap.clear(t.priority)
	}
}

// rotateReady moves the head of priority's ready list to the tail,
// implementing the round-robin quantum expiry of §4.2/§6.2.
func (k *Kernel) rotateReady(priority int) {
	h := k.readyLists[priority]
	if h.empty() || h.next.next == h {
		return // 0 or 1 thread at this level, nothing to rotate
	}
	n := h.popFront()
	h.pushBack(n)
}

// dispatchLocked returns the thread the dispatcher selects: the head of the
// highest-precedence (numerically lowest) non-empty ready list. It never
// returns nil while the kernel is running, because the idle thread is
// always ready.
func (k *Kernel) dispatchLocked() *Thread {
	p, ok := k.port.HighestPriority(uint32(k.bitmap))
	if !ok {
		return nil
	}
	return k.readyLists[p].next.elem
}

// endCritical must be called, with the critical section already released,
// immediately after any operation that may have changed the ready set. It
// recomputes the dispatcher's choice and performs a context switch through
// the port if that choice differs from the thread currently running.
func (k *Kernel) endCritical() {
	if !k.state.IsRunning() {
		return
	}
	tok := k.port.EnterCritical()
	top := k.dispatchLocked()
	old := k.current
	if top == old {
		k.port.ExitCritical(tok)
		return
	}
	k.current = top
	if top != nil {
		top.state = StateRunning
	}
	if old != nil && old.state == StateRunning {
		// old was preempted rather than having blocked itself; it is still
		// linked in its priority's ready list at the position it already
		// held, so only its state goes back to Ready and FIFO order among
		// equal-priority threads is preserved (§5 ordering guarantees).
		old.state = StateReady
	}
	k.port.ExitCritical(tok)
	k.port.RequestSwitch()
	k.port.PerformSwitch(old, top)
}

// recomputePriority implements the max-over-held-mutexes priority
// recalculation used by Mutex.Lock/Unlock and Thread.ChangePriority (§4.6):
// the thread's current priority becomes the maximum of its base priority
// and, for every mutex it still holds, that mutex's required floor
// (ceiling for PC mutexes, highest waiter priority for PI mutexes). Must
// be called with the critical section held.
func (k *Kernel) recomputePriority(t *Thread) {
	newPriority := t.basePriority
	t.heldMutexes.each(func(n *listNode[*Mutex]) {
		if floor, ok := n.elem.requiredFloor(); ok && floor < newPriority {
			newPriority = floor
		}
	})
	if newPriority == t.priority {
		return
	}
	wasReady := t.state == StateReady
	if wasReady {
		k.unlinkReady(t)
	}
	t.priority = newPriority
	if wasReady {
		k.linkReady(t)
	}
}
