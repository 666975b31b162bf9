package ukernel

// listNode is an intrusive circular doubly-linked list node, generic over
// the element type it is embedded in or attached to. A header node used as
// a sentinel and a payload node use the same type; "empty" for a header
// means next and prev both point back to itself, and "not linked" for a
// payload node means the same thing. That equivalence is what makes
// unlinking a node that was never linked, or was already unlinked, a safe
// no-op: both conditions look identical to unlink.
//
// This generalizes the original's CDLL_QUEUE, which relied on C's
// container_of to recover the owning struct from a bare link pair; elem
// plays that role here without unsafe pointer arithmetic, the same way the
// nsync Go port's dll.elem does for its waiter type.
type listNode[T any] struct {
	next, prev *listNode[T]
	elem       T
}

// newHeader returns an empty sentinel node. Its elem is the zero value and
// is never read.
func newHeader[T any]() *listNode[T] {
	h := &listNode[T]{}
	h.next = h
	h.prev = h
	return h
}

// newElem returns an unlinked node wrapping v, ready to be pushed onto a
// list.
func newElem[T any](v T) *listNode[T] {
	n := &listNode[T]{elem: v}
	n.next = n
	n.prev = n
	return n
}

func (h *listNode[T]) empty() bool {
	return h.next == h
}

func (h *listNode[T]) linked() bool {
	return h.next != h
}

func (at *listNode[T]) insertAfter(n *listNode[T]) {
	n.next = at.next
	n.prev = at
	at.next.prev = n
	at.next = n
}

func (h *listNode[T]) pushBack(n *listNode[T]) {
	h.prev.insertAfter(n)
}

func (h *listNode[T]) pushFront(n *listNode[T]) {
	h.insertAfter(n)
}

// popFront unlinks and returns the first element after header h, or nil if
// the list is empty.
func (h *listNode[T]) popFront() *listNode[T] {
	if h.empty() {
		return nil
	}
	n := h.next
	n.unlink()
	return n
}

// unlink removes n from whatever list it is part of. Safe to call on a node
// that is not currently linked into any list; every wait/wake path in this
// package relies on that, unlinking unconditionally rather than first
// checking whether the element was actually queued.
func (n *listNode[T]) unlink() {
	n.next.prev = n.prev
	n.prev.next = n.next
	n.next = n
	n.prev = n
}

// each calls fn for every element in the list, head to tail. fn may unlink
// its own node (but not other nodes) without disrupting the traversal.
func (h *listNode[T]) each(fn func(n *listNode[T])) {
	for cur := h.next; cur != h; {
		next := cur.next
		fn(cur)
		cur = next
	}
}
