package ukernel

import (
	"sync/atomic"
)

// KernelState represents the lifecycle of the kernel as a whole (§3.1
// "Kernel state"), as distinct from the per-thread ThreadState below.
//
// State machine:
//
//	KernelInactive (0) → KernelRunning (2)   [Kernel.Start]
//	KernelRunning  (2) → KernelTerminated (1) [Kernel.Shutdown]
//
// KernelState is read far more often than it is written (every dispatch
// decision checks whether the kernel is running before requesting a
// context switch), so it is backed by a lock-free atomic rather than the
// mutex-guarded style used for per-thread state in thread.go — thread
// state mutation always walks intrusive list links too, which atomics
// cannot protect, while kernel lifecycle is a single word with no
// associated links.
type KernelState uint64

const (
	// KernelInactive is the state before Kernel.Start has been called.
	KernelInactive KernelState = 0
	// KernelTerminated indicates Shutdown has completed; the kernel cannot
	// be restarted.
	KernelTerminated KernelState = 1
	// KernelRunning indicates the dispatcher is live and the tick handler
	// is driving the timer thread.
	KernelRunning KernelState = 2
)

// String renders the state the way it would appear in a log entry.
func (s KernelState) String() string {
	switch s {
	case KernelInactive:
		return "Inactive"
	case KernelRunning:
		return "Running"
	case KernelTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastKernelState is a lock-free holder for KernelState.
type fastKernelState struct {
	v atomic.Uint64
}

func newFastKernelState() *fastKernelState {
	s := &fastKernelState{}
	s.v.Store(uint64(KernelInactive))
	return s
}

func (s *fastKernelState) Load() KernelState {
	return KernelState(s.v.Load())
}

func (s *fastKernelState) Store(state KernelState) {
	s.v.Store(uint64(state))
}

func (s *fastKernelState) TryTransition(from, to KernelState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *fastKernelState) IsRunning() bool {
	return s.Load() == KernelRunning
}

// ThreadState represents where a thread sits in the scheduling state
// machine (§4.2).
//
// State machine:
//
//	Inactive  → Ready       [Activate, or create-and-start]
//	Ready     → Running     [dispatcher selects this thread]
//	Running   → Ready       [preempted, or round-robin quantum expiry]
//	Running   → Blocked     [blocking call with unsatisfied condition]
//	Ready/Run → Blocked     [explicit sleep, or timed wait]
//	Blocked   → Ready       [condition satisfied, timeout, forced release, or object deleted]
//	any       → Terminated  [self-exit, or external terminate]
//
// No transition leaves Terminated: Activate accepts only an Inactive
// thread, so a terminated thread is never reinitialized or run again.
//
// Suspension (§13, supplemented from the original's task_state_t bitmask) is
// tracked orthogonally in Thread.suspended: a thread can be Blocked and
// suspended at the same time, and the wake path must clear the wait side of
// that state without making a suspended thread Ready.
type ThreadState int32

const (
	// StateInactive is the state of a thread that has been created but not
	// started.
	StateInactive ThreadState = iota
	// StateReady means the thread is linked into its priority's ready list,
	// eligible to run but not currently executing.
	StateReady
	// StateRunning means the thread's context is the one live on the CPU.
	StateRunning
	// StateBlocked means the thread is linked into a wait queue (and/or the
	// timer list), not eligible to run until woken.
	StateBlocked
	// StateTerminated means the thread has exited or been externally
	// terminated; its held mutexes (if robust) have been released.
	StateTerminated
)

// String renders the state the way it would appear in a log entry.
func (s ThreadState) String() string {
	switch s {
	case StateInactive:
		return "Inactive"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateBlocked:
		return "Blocked"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// WaitReason tags why a thread is Blocked, per the glossary: sleep,
// semaphore, mutex-inherit, mutex-ceiling, event, queue-send,
// queue-receive, pool, message-send, message-receive, plus the dedicated
// timer thread's own wait reason.
type WaitReason int32

const (
	WaitReasonNone WaitReason = iota
	WaitReasonSleep
	WaitReasonSemaphore
	WaitReasonMutexInherit
	WaitReasonMutexCeiling
	WaitReasonEvent
	WaitReasonQueueSend
	WaitReasonQueueReceive
	WaitReasonPool
	WaitReasonMessageSend
	WaitReasonMessageReceive
	WaitReasonTimer
)

func (r WaitReason) String() string {
	switch r {
	case WaitReasonNone:
		return "None"
	case WaitReasonSleep:
		return "Sleep"
	case WaitReasonSemaphore:
		return "Semaphore"
	case WaitReasonMutexInherit:
		return "MutexInherit"
	case WaitReasonMutexCeiling:
		return "MutexCeiling"
	case WaitReasonEvent:
		return "Event"
	case WaitReasonQueueSend:
		return "QueueSend"
	case WaitReasonQueueReceive:
		return "QueueReceive"
	case WaitReasonPool:
		return "Pool"
	case WaitReasonMessageSend:
		return "MessageSend"
	case WaitReasonMessageReceive:
		return "MessageReceive"
	case WaitReasonTimer:
		return "Timer"
	default:
		return "Unknown"
	}
}
