//go:build tn_arm_armv4t

package armport

import "github.com/tn-go/ukernel"

// ARMv4TPort is the Port for classic ARMv4T targets (ARM7TDMI and similar),
// grounded on tn_port_arm.h/tn_port_arm_armcc.c. Unlike the Cortex-M ports,
// ARMv4T has no NVIC/PendSV: the original's END_CRITICAL_SECTION macro
// calls tn_switch_context() directly, inline, whenever not already inside
// an IRQ handler (tn_inside_irq()), rather than deferring to a dedicated
// exception — so RequestSwitch/PerformSwitch collapse to a single
// synchronous operation on this architecture, more directly mirroring
// hostport's synchronous PerformSwitch than either Cortex-M port does.
type ARMv4TPort struct{}

// EnterCritical disables IRQ/FIQ via the CPSR I/F bits (tn_cpu_save_sr) and
// returns the previous CPSR value as the token.
func (p *ARMv4TPort) EnterCritical() uint32 {
	panic("armport: ARMv4TPort requires a real ARMv4T target; not available on this build")
}

// ExitCritical restores CPSR from token (tn_cpu_restore_sr).
func (p *ARMv4TPort) ExitCritical(token uint32) {
	panic("armport: ARMv4TPort requires a real ARMv4T target; not available on this build")
}

// RequestSwitch is a no-op: ARMv4T has no deferred-switch exception to
// pend. PerformSwitch performs the switch synchronously instead, matching
// END_CRITICAL_SECTION's direct tn_switch_context() call.
func (p *ARMv4TPort) RequestSwitch() {}

// PerformSwitch saves current's register context to its stack and restores
// next's, the direct ARMv4T equivalent of the original's inline
// tn_switch_context assembly routine (not gated behind IRQ entry/exit the
// way the Cortex-M PendSV handler is).
func (p *ARMv4TPort) PerformSwitch(current, next *ukernel.Thread) {
	panic("armport: ARMv4TPort requires a real ARMv4T target; not available on this build")
}

// InitStack lays out the ARMv4T initial register frame (CPSR, PC, LR, R12-R0),
// the target-specific analogue of tn_stack_init for this architecture.
func (p *ARMv4TPort) InitStack(t *ukernel.Thread, entry func(arg any), arg any) {
	panic("armport: ARMv4TPort requires a real ARMv4T target; not available on this build")
}

// HighestPriority on ARMv4T has no CLZ instruction either (that arrived
// with ARMv5T), so like Cortex-M0 it needs the software bit-scan fallback.
func (p *ARMv4TPort) HighestPriority(bitmap uint32) (priority int, ok bool) {
	panic("armport: ARMv4TPort requires a real ARMv4T target; not available on this build")
}
