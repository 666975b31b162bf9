package ukernel

// Port is the CPU architecture boundary (§6.1). Everything above this
// interface is portable; everything below it is register save/restore,
// interrupt priority programming and exception vector plumbing specific to
// one target (ARMv6-M, ARMv7-M/E-M, ARMv4T, or a hosted simulation for
// development and test).
//
// The kernel core never touches architecture registers directly: every
// context switch, interrupt mask and stack layout decision is delegated to
// whatever Port implementation the Kernel was constructed with.
type Port interface {
	// EnterCritical masks interrupts up to the kernel's configured API
	// priority and returns an opaque token encoding the previous mask.
	EnterCritical() uint32

	// ExitCritical restores the interrupt mask encoded in token.
	ExitCritical(token uint32)

	// RequestSwitch pends a deferred context switch (typically a
	// low-priority exception on real hardware). It is always followed, in
	// normal flow, by PerformSwitch once the critical section has been
	// released.
	RequestSwitch()

	// PerformSwitch saves current's callee-saved registers onto its stack,
	// stores its stack pointer, loads next's stack pointer, restores
	// next's registers, and transfers control to it. current may be nil
	// only during kernel bootstrap, when there is no previously running
	// thread.
	PerformSwitch(current, next *Thread)

	// InitStack initializes t's saved stack pointer so that the first
	// PerformSwitch into t enters entry(arg) and, should entry return,
	// enters the kernel's self-exit routine.
	InitStack(t *Thread, entry func(arg any), arg any)

	// HighestPriority returns the numerically lowest set bit in bitmap
	// (the highest-precedence non-empty ready level), and ok=false if no
	// bit is set. A port may implement this with a hardware count-leading
	// or count-trailing-zeros instruction, or in software with
	// math/bits.TrailingZeros32 as hostport does. The dispatcher always
	// calls this method; the kernel core has no fallback of its own.
	HighestPriority(bitmap uint32) (priority int, ok bool)
}
