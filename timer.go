package ukernel

// Tick is the kernel's absolute time unit (§6.2 glossary). All timeouts and
// timer deadlines are expressed in ticks.
type Tick uint64

// isForever reports whether t is the Forever timeout magnitude.
func (t Tick) isForever() bool {
	return t == Forever
}

// timerCallback is invoked by the timer thread when a timerEvent's
// deadline is reached. It runs with the kernel critical section released
// (§4.10); it must not block the calling (timer) thread on a timed wait.
type timerCallback func(k *Kernel, ev *timerEvent)

// timerEvent is the (absolute tick, callback, argument, list links) tuple
// of §3.1. It is embedded in a Thread for sleeps/timed waits, or owned by a
// user-facing Alarm/CyclicTimer object. An event is on the kernel's timer
// list iff its node is linked; node.unlink makes "not scheduled" and
// "already fired and delinked" the same state, so timerList.cancel is safe
// to call unconditionally.
type timerEvent struct {
	node     *listNode[*timerEvent]
	deadline Tick
	callback timerCallback
	period   Tick // not set anywhere: CyclicTimer keeps its own period and re-inserts the event from its callback
}

func newTimerEvent(callback timerCallback) *timerEvent {
	ev := &timerEvent{callback: callback}
	ev.node = newElem(ev)
	return ev
}

func (ev *timerEvent) scheduled() bool {
	return ev.node.linked()
}

// timerList is the single time-sorted list of pending timer events (§4.10).
// Insertion is O(N); acceptable because N is the number of outstanding
// timers, bounded in an embedded workload.
type timerList struct {
	head *listNode[*timerEvent]
}

func newTimerList() *timerList {
	return &timerList{head: newHeader[*timerEvent]()}
}

// insert places ev in deadline order. Ties are broken FIFO (a newly
// inserted event with the same deadline as an existing one goes after it),
// matching the original's insertion-scans-from-head-until-greater-than
// behavior.
func (t *timerList) insert(ev *timerEvent) {
	at := t.head
	for cur := t.head.next; cur != t.head; cur = cur.next {
		if cur.elem.deadline > ev.deadline {
			break
		}
		at = cur
	}
	at.insertAfter(ev.node)
}

// cancel unconditionally unlinks ev; a no-op if ev was not scheduled.
func (t *timerList) cancel(ev *timerEvent) {
	ev.node.unlink()
}

// popExpired removes and returns, in deadline order, every event whose
// deadline is not strictly after now.
func (t *timerList) popExpired(now Tick) []*timerEvent {
	var fired []*timerEvent
	for !t.head.empty() {
		ev := t.head.next.elem
		if ev.deadline > now {
			break
		}
		ev.node.unlink()
		fired = append(fired, ev)
	}
	return fired
}

// nextDeadline reports the deadline of the earliest pending event, if any.
func (t *timerList) nextDeadline() (Tick, bool) {
	if t.head.empty() {
		return 0, false
	}
	return t.head.next.elem.deadline, true
}
