package ukernel

// EventGroup implements §4.5, a 32-bit event flag group grounded on
// tn_event.c's scan_event_waitqueue/tn_event_set/tn_event_wait. A Wait call
// blocks until the group's pattern satisfies either "any of wantPattern"
// (EventWaitAny) or "all of wantPattern" (EventWaitAll); Set wakes at most
// one matching waiter per call, scanning the FIFO wait queue in arrival
// order and waking the first match, and optionally auto-clears the
// pattern it just delivered.
type EventGroup struct {
	kernel *Kernel
	Name   string

	pattern   uint32
	single    bool // only one waiting thread permitted at a time
	autoClear bool // clear the delivered bits on a successful wake
	deleted   bool

	waitQ *listNode[*Thread]
}

// EventWaitMode selects how a Wait call's wantPattern is matched against
// the group's current pattern.
type EventWaitMode int

const (
	// EventWaitAny is satisfied when any bit of wantPattern is set.
	EventWaitAny EventWaitMode = iota
	// EventWaitAll is satisfied only when every bit of wantPattern is set.
	EventWaitAll
)

// eventWaitState is the per-waiter data threaded through Thread.waitData
// while blocked in EventGroup.Wait: the condition it is blocked on, and,
// once woken, the pattern that satisfied it.
type eventWaitState struct {
	mode   EventWaitMode
	want   uint32
	result uint32
}

type eventOptions struct {
	name      string
	single    bool
	autoClear bool
}

// EventOption configures an EventGroup instance.
type EventOption interface {
	applyEvent(*eventOptions) error
}

type eventOptionImpl struct {
	applyEventFunc func(*eventOptions) error
}

func (o *eventOptionImpl) applyEvent(opts *eventOptions) error {
	return o.applyEventFunc(opts)
}

// WithEventName attaches a human-readable name, used only for logging.
func WithEventName(name string) EventOption {
	return &eventOptionImpl{func(opts *eventOptions) error {
		opts.name = name
		return nil
	}}
}

// WithEventSingleWaiter restricts the group to one waiting thread at a
// time; a second concurrent Wait call fails with StatusIllegalUse instead
// of queueing (TN_EVENT_ATTR_SINGLE).
func WithEventSingleWaiter(enabled bool) EventOption {
	return &eventOptionImpl{func(opts *eventOptions) error {
		opts.single = enabled
		return nil
	}}
}

// WithEventAutoClear clears the delivered bits from the group's pattern
// immediately after a successful wake (TN_EVENT_ATTR_CLR). Only valid
// together with WithEventSingleWaiter, matching the original's validation.
func WithEventAutoClear(enabled bool) EventOption {
	return &eventOptionImpl{func(opts *eventOptions) error {
		opts.autoClear = enabled
		return nil
	}}
}

func resolveEventOptions(opts []EventOption) (*eventOptions, error) {
	cfg := &eventOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyEvent(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.autoClear && !cfg.single {
		return nil, newError(StatusWrongParam, "EventOption", cfg.name)
	}
	return cfg, nil
}

// NewEventGroup creates an event flag group with the given initial
// pattern, normally 0.
func (k *Kernel) NewEventGroup(initialPattern uint32, opts ...EventOption) (*EventGroup, error) {
	cfg, err := resolveEventOptions(opts)
	if err != nil {
		return nil, err
	}
	return &EventGroup{
		kernel:    k,
		Name:      cfg.name,
		pattern:   initialPattern,
		single:    cfg.single,
		autoClear: cfg.autoClear,
		waitQ:     newHeader[*Thread](),
	}, nil
}

func conditionMet(mode EventWaitMode, pattern, want uint32) bool {
	if mode == EventWaitAny {
		return pattern&want != 0
	}
	return pattern&want == want
}

// Wait blocks until the group's pattern matches wantPattern under mode, up
// to timeout ticks, and returns the pattern observed at the moment the
// condition was satisfied. wantPattern must be non-zero.
func (e *EventGroup) Wait(wantPattern uint32, mode EventWaitMode, timeout Tick) (uint32, Status) {
	if wantPattern == 0 {
		return 0, StatusWrongParam
	}
	k := e.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if e.deleted {
		k.port.ExitCritical(tok)
		return 0, StatusDeleted
	}
	if e.single && !e.waitQ.empty() {
		k.port.ExitCritical(tok)
		return 0, StatusIllegalUse
	}
	if conditionMet(mode, e.pattern, wantPattern) {
		result := e.pattern
		if e.autoClear {
			e.pattern &^= wantPattern
		}
		k.port.ExitCritical(tok)
		return result, StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return 0, StatusTimeout
	}
	t.waitData = &eventWaitState{mode: mode, want: wantPattern}
	status := k.waitOn(tok, t, e.waitQ, WaitReasonEvent, timeout, timeout.isForever())
	st := t.waitData.(*eventWaitState)
	t.waitData = nil
	if status != StatusOK {
		return 0, status
	}
	return st.result, StatusOK
}

// TryWait is Wait with Polling, spelled out for readability.
func (e *EventGroup) TryWait(wantPattern uint32, mode EventWaitMode) (uint32, Status) {
	return e.Wait(wantPattern, mode, Polling)
}

// Set ORs pattern into the group's current pattern and wakes at most one
// waiting thread whose condition is now satisfied — the first match found
// scanning the FIFO wait queue in arrival order — mirroring
// scan_event_waitqueue's single-wake-per-call behavior.
func (e *EventGroup) Set(pattern uint32) error {
	if pattern == 0 {
		return checkStatus(StatusWrongParam, "EventGroup.Set", e.Name)
	}
	k := e.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if e.deleted {
		return checkStatus(StatusDeleted, "EventGroup.Set", e.Name)
	}
	e.pattern |= pattern
	if e.scanAndWakeLocked() && e.autoClear {
		e.pattern &^= pattern
	}
	return nil
}

func (e *EventGroup) scanAndWakeLocked() bool {
	k := e.kernel
	woke := false
	e.waitQ.each(func(n *listNode[*Thread]) {
		if woke {
			return
		}
		t := n.elem
		st := t.waitData.(*eventWaitState)
		if !conditionMet(st.mode, e.pattern, st.want) {
			return
		}
		st.result = e.pattern
		k.wakeLocked(t, StatusOK)
		woke = true
	})
	return woke
}

// Clear clears pattern's bits from the group's current pattern without
// waking anyone (tn_event_clear never does).
func (e *EventGroup) Clear(pattern uint32) error {
	if pattern == 0 {
		return checkStatus(StatusWrongParam, "EventGroup.Clear", e.Name)
	}
	k := e.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	if e.deleted {
		return checkStatus(StatusDeleted, "EventGroup.Clear", e.Name)
	}
	e.pattern &^= pattern
	return nil
}

// Delete invalidates the event group, waking every waiter with
// StatusDeleted.
func (e *EventGroup) Delete() error {
	k := e.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if e.deleted {
		return checkStatus(StatusDeleted, "EventGroup.Delete", e.Name)
	}
	e.deleted = true
	k.wakeAllDeleted(e.waitQ)
	return nil
}
