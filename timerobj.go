package ukernel

// Alarm and CyclicTimer are the user-facing timer objects of §4.10,
// built on the same timerList/timerEvent machinery Thread.Sleep and every
// blocking primitive's timeout use. Their callbacks run on the dedicated
// timer thread, with the kernel critical section released, exactly like
// wakeTimeout.

// Alarm fires callback once, delay ticks after Start.
type Alarm struct {
	kernel   *Kernel
	Name     string
	callback func()
	event    *timerEvent
}

// NewAlarm creates a stopped Alarm. callback must not block.
func (k *Kernel) NewAlarm(callback func(), opts ...AlarmOption) (*Alarm, error) {
	cfg, err := resolveAlarmOptions(opts)
	if err != nil {
		return nil, err
	}
	if callback == nil {
		return nil, newError(StatusWrongParam, "NewAlarm", cfg.name)
	}
	a := &Alarm{kernel: k, Name: cfg.name, callback: callback}
	a.event = newTimerEvent(func(kk *Kernel, ev *timerEvent) {
		a.callback()
	})
	return a, nil
}

// Start (re-)arms the alarm to fire delay ticks from now, cancelling any
// previously scheduled fire.
func (a *Alarm) Start(delay Tick) error {
	k := a.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	k.timers.cancel(a.event)
	a.event.deadline = k.tick + delay
	k.timers.insert(a.event)
	return nil
}

// Stop cancels a pending fire; a no-op if the alarm was not scheduled.
func (a *Alarm) Stop() error {
	k := a.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	k.timers.cancel(a.event)
	return nil
}

type alarmOptions struct {
	name string
}

// AlarmOption configures an Alarm instance.
type AlarmOption interface {
	applyAlarm(*alarmOptions) error
}

type alarmOptionImpl struct {
	applyAlarmFunc func(*alarmOptions) error
}

func (o *alarmOptionImpl) applyAlarm(opts *alarmOptions) error {
	return o.applyAlarmFunc(opts)
}

// WithAlarmName attaches a human-readable name, used only for logging.
func WithAlarmName(name string) AlarmOption {
	return &alarmOptionImpl{func(opts *alarmOptions) error {
		opts.name = name
		return nil
	}}
}

func resolveAlarmOptions(opts []AlarmOption) (*alarmOptions, error) {
	cfg := &alarmOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyAlarm(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// CyclicPhaseMode selects how a CyclicTimer computes its first deadline
// when Start is called (§4.10). It has no bearing on re-arming after a
// fire: every cyclic timer re-inserts itself at previous-fire-time +
// N·period, skipping forward by whole periods if the callback overran,
// unconditionally and regardless of phase mode.
type CyclicPhaseMode int

const (
	// CyclicPhaseDrift starts the first fire period ticks after Start is
	// called (the original's only behavior). Stopping and restarting
	// resets the phase to the restart time.
	CyclicPhaseDrift CyclicPhaseMode = iota
	// CyclicPhasePreserve aligns the first fire to the timer's creation
	// tick plus a whole number of periods, so subsequent fires land exactly
	// one period apart regardless of how many times the timer is stopped
	// and restarted in between. The phase is always the creation tick; no
	// separate phase offset can be configured.
	CyclicPhasePreserve
)

// CyclicTimer fires callback every period ticks once started.
type CyclicTimer struct {
	kernel      *Kernel
	Name        string
	period      Tick
	phaseMode   CyclicPhaseMode
	createdTick Tick
	callback    func()
	event       *timerEvent
	active      bool
}

// NewCyclicTimer creates a stopped CyclicTimer with the given period and
// phase mode. callback must not block.
func (k *Kernel) NewCyclicTimer(period Tick, callback func(), opts ...CyclicTimerOption) (*CyclicTimer, error) {
	cfg, err := resolveCyclicTimerOptions(opts)
	if err != nil {
		return nil, err
	}
	if callback == nil || period == 0 {
		return nil, newError(StatusWrongParam, "NewCyclicTimer", cfg.name)
	}
	tok := k.port.EnterCritical()
	createdTick := k.tick
	k.port.ExitCritical(tok)
	c := &CyclicTimer{kernel: k, Name: cfg.name, period: period, phaseMode: cfg.phaseMode, createdTick: createdTick, callback: callback}
	c.event = newTimerEvent(func(kk *Kernel, ev *timerEvent) {
		c.callback()
		tok := kk.port.EnterCritical()
		if c.active {
			// previous-fire-time + N·period, skipping whole periods if the
			// callback ran long, so a single clean fire lands strictly
			// after the current tick instead of firing back-to-back (§8.4
			// S5).
			next := ev.deadline
			for next <= kk.tick {
				next += c.period
			}
			ev.deadline = next
			kk.timers.insert(ev)
		}
		kk.port.ExitCritical(tok)
	})
	return c, nil
}

// Start begins the periodic fire. With CyclicPhaseDrift (the default) the
// first fire is period ticks from now; with CyclicPhasePreserve it is the
// next tick, strictly after now, that lands on the timer's original
// creation phase.
func (c *CyclicTimer) Start() error {
	k := c.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	c.active = true
	k.timers.cancel(c.event)
	switch c.phaseMode {
	case CyclicPhasePreserve:
		next := c.createdTick
		for next <= k.tick {
			next += c.period
		}
		c.event.deadline = next
	default:
		c.event.deadline = k.tick + c.period
	}
	k.timers.insert(c.event)
	return nil
}

// Stop halts the periodic fire; Start resumes it, computing the first
// deadline again from the phase mode (a fresh period with
// CyclicPhaseDrift, the creation phase with CyclicPhasePreserve).
func (c *CyclicTimer) Stop() error {
	k := c.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	c.active = false
	k.timers.cancel(c.event)
	return nil
}

type cyclicTimerOptions struct {
	name      string
	phaseMode CyclicPhaseMode
}

// CyclicTimerOption configures a CyclicTimer instance.
type CyclicTimerOption interface {
	applyCyclicTimer(*cyclicTimerOptions) error
}

type cyclicTimerOptionImpl struct {
	applyCyclicTimerFunc func(*cyclicTimerOptions) error
}

func (o *cyclicTimerOptionImpl) applyCyclicTimer(opts *cyclicTimerOptions) error {
	return o.applyCyclicTimerFunc(opts)
}

// WithCyclicTimerName attaches a human-readable name, used only for
// logging.
func WithCyclicTimerName(name string) CyclicTimerOption {
	return &cyclicTimerOptionImpl{func(opts *cyclicTimerOptions) error {
		opts.name = name
		return nil
	}}
}

// WithCyclicPhaseMode selects how Start computes the first fire (§4.10);
// the default is CyclicPhaseDrift, matching the original.
func WithCyclicPhaseMode(mode CyclicPhaseMode) CyclicTimerOption {
	return &cyclicTimerOptionImpl{func(opts *cyclicTimerOptions) error {
		opts.phaseMode = mode
		return nil
	}}
}

func resolveCyclicTimerOptions(opts []CyclicTimerOption) (*cyclicTimerOptions, error) {
	cfg := &cyclicTimerOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyCyclicTimer(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
