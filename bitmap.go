package ukernel

import "math/bits"

// NumPriorities is the number of scheduling priority levels. Priority 0 is
// reserved for the timer thread (§4.11); NumPriorities-1 is reserved for the
// idle thread (§4.12). This matches TN_NUM_PRIORITY == TN_BITS_IN_INT on the
// original 32-bit targets, and lets the ready bitmap fit in a single word.
const NumPriorities = 32

// priorityBitmap tracks which ready lists are non-empty. Bit p is set iff
// the ready list at priority p has at least one thread linked into it; the
// dispatcher relies on this invariant to find the highest-priority ready
// thread in constant time instead of scanning all NumPriorities lists.
type priorityBitmap uint32

func (b *priorityBitmap) set(priority int) {
	*b |= 1 << uint(priority)
}

func (b *priorityBitmap) clear(priority int) {
	*b &^= 1 << uint(priority)
}

func (b priorityBitmap) has(priority int) bool {
	return b&(1<<uint(priority)) != 0
}

func (b priorityBitmap) empty() bool {
	return b == 0
}

// highest returns the numerically lowest set bit, i.e. the
// numerically-highest-precedence non-empty priority level, and ok=false if
// no bit is set. A dedicated CPU instruction (count-leading/trailing-zeros)
// performs this in O(1) on real hardware; bits.TrailingZeros32 is the
// portable software fallback named in §6.1. The dispatcher does not call
// it: it always uses Port.HighestPriority, and hostport carries its own
// copy of the same scan.
func (b priorityBitmap) highest() (priority int, ok bool) {
	if b == 0 {
		return 0, false
	}
	return bits.TrailingZeros32(uint32(b)), true
}
