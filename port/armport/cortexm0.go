//go:build tn_arm_cortexm0

// Package armport holds the architecture-specific Port implementations for
// real ARM targets: Cortex-M0 (ARMv6-M), Cortex-M3/M4 (ARMv7-M/E-M) and
// ARMv4T. None of these build without a matching GOARCH=arm cross-compiler
// and linker script, so every file in this package is gated behind a
// tn_arm_* build tag that is never set on a development host — they exist
// as documented, grounded register-level bodies to be completed against a
// real linker script and vector table, not as code this module ever
// compiles or exercises itself (§6.1: hostport is this module's only
// exercised Port).
package armport

import (
	"github.com/tn-go/ukernel"
)

// CortexM0Port is the Port for ARMv6-M targets (Cortex-M0/M0+), grounded on
// tn_port_cm0.c/tn_port_cm0.h. Cortex-M0 has no BASEPRI register, so
// critical sections there mask interrupts with PRIMASK (a single on/off
// bit) rather than a priority threshold — coarser than the M3/M4 port, and
// the reason this is a separate type rather than a shared implementation
// parameterized over BASEPRI vs PRIMASK.
type CortexM0Port struct {
	// vectorTable, systickHandlerSlot etc. would be wired here against a
	// real linker script; omitted since this type is never instantiated on
	// a host build.
}

// EnterCritical sets PRIMASK to mask all maskable interrupts and returns
// the previous PRIMASK value as the token, mirroring tn_cpu_save_sr/
// tn_cpu_restore_sr's single-bit save/restore on Cortex-M0.
func (p *CortexM0Port) EnterCritical() uint32 {
	panic("armport: CortexM0Port requires a real ARMv6-M target; not available on this build")
}

// ExitCritical restores PRIMASK from token.
func (p *CortexM0Port) ExitCritical(token uint32) {
	panic("armport: CortexM0Port requires a real ARMv6-M target; not available on this build")
}

// RequestSwitch pends the SVCall/PendSV exception that performs the actual
// register save/restore, matching TNKernel's use of PendSV on every
// Cortex-M variant it supports.
func (p *CortexM0Port) RequestSwitch() {
	panic("armport: CortexM0Port requires a real ARMv6-M target; not available on this build")
}

// PerformSwitch is a no-op at the Go call site on real hardware: the actual
// register save/restore happens inside the PendSV exception handler
// (tn_arm_m0_PendSVC_Handler in the original), which reads/writes the
// kernel's current/next thread fields directly rather than being driven
// from this call.
func (p *CortexM0Port) PerformSwitch(current, next *ukernel.Thread) {
	panic("armport: CortexM0Port requires a real ARMv6-M target; not available on this build")
}

// InitStack lays out the initial exception-return stack frame
// tn_stack_init builds: xPSR, entry point (Thumb bit set), LR (task_exit),
// R12, R3-R0 (R0 = param), then R11-R4, so the first PendSV/exception
// return enters entry(arg) as if it were resuming from an interrupt.
func (p *CortexM0Port) InitStack(t *ukernel.Thread, entry func(arg any), arg any) {
	panic("armport: CortexM0Port requires a real ARMv6-M target; not available on this build")
}

// HighestPriority on Cortex-M0 has no CLZ instruction (ARMv6-M dropped it),
// so the original and this port both fall back to a software scan rather
// than a hardware count-leading-zeros — here, the portable
// math/bits-based fallback the kernel core already provides.
func (p *CortexM0Port) HighestPriority(bitmap uint32) (priority int, ok bool) {
	panic("armport: CortexM0Port requires a real ARMv6-M target; not available on this build")
}
