//go:build tn_arm_cortexm34

package armport

import "github.com/tn-go/ukernel"

// CortexM34Port is the Port for ARMv7-M/E-M targets (Cortex-M3/M4),
// grounded on tn_port_cm3.h. Unlike Cortex-M0, these cores have a BASEPRI
// register, so a critical section can mask only interrupts at or below the
// kernel's configured API priority (§6.3's maxAPIInterruptPrio) instead of
// disabling interrupts globally, letting higher-priority interrupts still
// preempt kernel code.
type CortexM34Port struct {
	maxAPIInterruptPriority uint8
}

// NewCortexM34Port constructs a port that masks interrupt priorities at or
// below maxAPIInterruptPriority via BASEPRI, per §6.3.
func NewCortexM34Port(maxAPIInterruptPriority uint8) *CortexM34Port {
	return &CortexM34Port{maxAPIInterruptPriority: maxAPIInterruptPriority}
}

// EnterCritical raises BASEPRI to maxAPIInterruptPriority and returns the
// previous BASEPRI value as the token.
func (p *CortexM34Port) EnterCritical() uint32 {
	panic("armport: CortexM34Port requires a real ARMv7-M/E-M target; not available on this build")
}

// ExitCritical restores BASEPRI from token.
func (p *CortexM34Port) ExitCritical(token uint32) {
	panic("armport: CortexM34Port requires a real ARMv7-M/E-M target; not available on this build")
}

// RequestSwitch pends PendSV (tn_switch_context), the same mechanism every
// Cortex-M variant in the original uses for the deferred context switch.
func (p *CortexM34Port) RequestSwitch() {
	panic("armport: CortexM34Port requires a real ARMv7-M/E-M target; not available on this build")
}

// PerformSwitch is a no-op at the Go call site; the PendSV exception
// handler performs the actual register save/restore on real hardware, the
// same division of labor as CortexM0Port.PerformSwitch.
func (p *CortexM34Port) PerformSwitch(current, next *ukernel.Thread) {
	panic("armport: CortexM34Port requires a real ARMv7-M/E-M target; not available on this build")
}

// InitStack lays out the same exception-return stack frame as the
// Cortex-M0 port (xPSR/PC/LR/R12/R3-R0/R11-R4); the M3/M4 variant differs
// only in whether the FPU lazy-stacking frame extension is present, which
// would be selected here based on whether the target has an FPU.
func (p *CortexM34Port) InitStack(t *ukernel.Thread, entry func(arg any), arg any) {
	panic("armport: CortexM34Port requires a real ARMv7-M/E-M target; not available on this build")
}

// HighestPriority uses the CLZ instruction ARMv7-M has and ARMv6-M lacks
// (USE_ASM_FFS's ffs_asm in the original), giving a true single-instruction
// bit-scan instead of the software fallback CortexM0Port and hostport use.
func (p *CortexM34Port) HighestPriority(bitmap uint32) (priority int, ok bool) {
	panic("armport: CortexM34Port requires a real ARMv7-M/E-M target; not available on this build")
}
