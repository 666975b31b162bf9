// Package ukernel implements the scheduling, synchronization and timing
// core of a preemptive, priority-based real-time kernel for single-core
// 32-bit microcontrollers.
//
// It provides a fixed-priority ready queue and dispatcher, a thread state
// machine, a shared wait/wake protocol used by every blocking primitive, a
// priority-inheritance/priority-ceiling mutex, and a single sorted timer
// list driving sleeps, timed waits, one-shot alarms and cyclic timers from
// a dedicated highest-priority timer thread.
//
// Architecture-specific register save/restore, exception vectors and the
// tick source itself are deliberately out of scope for this package; see
// the Port interface for the boundary the kernel core depends on.
package ukernel
