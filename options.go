// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package ukernel

// kernelOptions holds configuration for Kernel construction (§6.3).
type kernelOptions struct {
	tickFrequencyHz      int
	maxAPIInterruptPrio  int
	roundRobinSlices     [NumPriorities]int
	privilegedMode       bool
	stackCheck           bool
	logger               Logger
}

// --- Kernel Options ---

// KernelOption configures a Kernel instance.
type KernelOption interface {
	applyKernel(*kernelOptions) error
}

type kernelOptionImpl struct {
	applyKernelFunc func(*kernelOptions) error
}

func (o *kernelOptionImpl) applyKernel(opts *kernelOptions) error {
	return o.applyKernelFunc(opts)
}

// WithTickFrequency sets the rate at which Kernel.Tick is expected to be
// called (§6.2). It is informational for conversions between ticks and
// wall-clock time; it does not itself drive the tick.
func WithTickFrequency(hz int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.tickFrequencyHz = hz
		return nil
	}}
}

// WithMaxAPIInterruptPriority sets the highest ISR priority below which
// kernel APIs may be invoked (§6.3).
func WithMaxAPIInterruptPriority(prio int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.maxAPIInterruptPrio = prio
		return nil
	}}
}

// WithRoundRobinSlice sets the round-robin quantum, in ticks, for a single
// priority level. Zero disables round-robin at that priority (§4.2, §6.3).
func WithRoundRobinSlice(priority, ticks int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if priority < 0 || priority >= NumPriorities {
			return newError(StatusWrongParam, "WithRoundRobinSlice", "")
		}
		opts.roundRobinSlices[priority] = ticks
		return nil
	}}
}

// WithPrivilegedMode sets whether application threads run in the
// architecture's privileged mode (§6.3). Advisory at this layer: the value
// is kept in the kernel's private configuration, and neither the kernel
// core nor any Port reads it.
func WithPrivilegedMode(enabled bool) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.privilegedMode = enabled
		return nil
	}}
}

// WithStackCheck records the optional stack-watermark check setting
// (§6.3). The value is kept in the kernel's private configuration only;
// the kernel core performs no stack check, and no Port reads it.
func WithStackCheck(enabled bool) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.stackCheck = enabled
		return nil
	}}
}

// WithLogger attaches a Logger to this Kernel instance, overriding the
// package-level global logger for events raised by it.
func WithLogger(logger Logger) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveKernelOptions applies KernelOption instances over the defaults.
func resolveKernelOptions(opts []KernelOption) (*kernelOptions, error) {
	cfg := &kernelOptions{
		tickFrequencyHz:     1000,
		maxAPIInterruptPrio: 0,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyKernel(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = getGlobalLogger()
	}
	return cfg, nil
}

// threadOptions holds configuration for Thread construction.
type threadOptions struct {
	name         string
	stackSize    int
	startOnCreate bool
}

// ThreadOption configures a Thread instance.
type ThreadOption interface {
	applyThread(*threadOptions) error
}

type threadOptionImpl struct {
	applyThreadFunc func(*threadOptions) error
}

func (o *threadOptionImpl) applyThread(opts *threadOptions) error {
	return o.applyThreadFunc(opts)
}

// WithThreadName attaches a human-readable name to a thread, used only for
// logging and debugging.
func WithThreadName(name string) ThreadOption {
	return &threadOptionImpl{func(opts *threadOptions) error {
		opts.name = name
		return nil
	}}
}

// WithStackSize sets the thread's stack allocation size, in architecture
// words. The value is validated but not stored on the Thread, so no Port's
// stack-initialization routine receives it; on the hosted port Go
// goroutines manage their own stacks.
func WithStackSize(words int) ThreadOption {
	return &threadOptionImpl{func(opts *threadOptions) error {
		if words < 0 {
			return newError(StatusWrongParam, "WithStackSize", "")
		}
		opts.stackSize = words
		return nil
	}}
}

// WithStartOnCreate transitions the new thread straight from Inactive to
// Ready instead of leaving it Inactive until an explicit Activate call.
func WithStartOnCreate(enabled bool) ThreadOption {
	return &threadOptionImpl{func(opts *threadOptions) error {
		opts.startOnCreate = enabled
		return nil
	}}
}

func resolveThreadOptions(opts []ThreadOption) (*threadOptions, error) {
	cfg := &threadOptions{
		stackSize: 256,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyThread(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Forever is the distinguished "wait forever" timeout magnitude (§4.3,
// §5): no timer event is scheduled for a wait with this timeout. It is the
// maximum representable Tick, the same convention the original uses for
// its TN_WAIT_INFINITE magnitude.
const Forever Tick = ^Tick(0)

// Polling is the distinguished "do not block" timeout magnitude (§4.3): if
// the condition is not immediately satisfiable, the call fails with
// StatusTimeout without entering the wait queue.
const Polling Tick = 0
