package ukernel

// This file is the shared wait/wake protocol (§4.3, §9) that every blocking
// primitive in this package is built on: semaphores, mutexes, event groups,
// memory pools and the two message-passing queues all reduce their "block
// the caller until some condition or timeout" behavior to waitOn, and their
// "unblock a waiter" behavior to wakeLocked.

// waitOn completes a thread's entry into the Blocked state and performs the
// resulting context switch. The caller must already hold the critical
// section (tok is the token from that EnterCritical call); waitOn releases
// it. queue, if non-nil, is the object's wait list that t joins at the
// tail; forever, when true, skips scheduling a timeout event, giving ticks
// no meaning (the Forever magnitude of §4.3).
//
// waitOn returns the Status later written into t.retVal by whichever call
// wakes t: wakeLocked for a normal release or forced wake, or wakeTimeout
// when the timer fires first.
func (k *Kernel) waitOn(tok uint32, t *Thread, queue *listNode[*Thread], reason WaitReason, ticks Tick, forever bool) Status {
	k.unlinkReady(t)
	t.state = StateBlocked
	t.waitReason = reason
	if queue != nil {
		queue.pushBack(t.link)
	}
	if !forever {
		t.event.deadline = k.tick + ticks
		k.timers.insert(t.event)
	}
	k.port.ExitCritical(tok)
	k.endCritical()
	return t.retVal
}

// wakeLocked transitions a Blocked thread back to Ready with the given
// status, unlinking it from whatever wait queue it was in and cancelling
// any pending timeout. The caller must hold the critical section and must
// call Kernel.endCritical once it releases it. wakeLocked does not itself
// inspect t.waitReason; callers that care (Thread.Wakeup, Thread.ReleaseWait)
// check it first.
func (k *Kernel) wakeLocked(t *Thread, status Status) {
	t.link.unlink()
	k.timers.cancel(t.event)
	t.retVal = status
	t.blockingMutex = nil
	k.ready(t)
}

// wakeTimeout is the timerCallback installed on every Thread.event. It runs
// with the critical section released (timer callbacks always do, §4.10),
// so it takes and releases the section itself. A thread may have already
// been woken by the object it was waiting on between the timer firing and
// this callback running; the StateBlocked check makes that race harmless.
func (k *Kernel) wakeTimeout(t *Thread) {
	tok := k.port.EnterCritical()
	if t.state != StateBlocked {
		k.port.ExitCritical(tok)
		return
	}
	k.wakeLocked(t, StatusTimeout)
	k.port.ExitCritical(tok)
	k.endCritical()
}

// wakeAllDeleted empties queue, waking every thread on it with
// StatusDeleted (§5's object-deletion wake-all behavior, shared by every
// primitive's Delete operation). The caller must hold the critical section
// and must call Kernel.endCritical once it releases it.
func (k *Kernel) wakeAllDeleted(queue *listNode[*Thread]) {
	queue.each(func(n *listNode[*Thread]) {
		k.wakeLocked(n.elem, StatusDeleted)
	})
}
