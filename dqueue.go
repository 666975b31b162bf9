package ukernel

// DataQueue implements §4.8, a fixed-capacity ring-buffer queue of
// caller-defined values, grounded on tn_dqueue.c's dque_fifo_write/
// dque_fifo_read/do_queue_send/tn_queue_receive. A sender whose value
// can't fit waits on wait_send (here waitSend); a receiver finding the
// queue empty waits on wait_receive (waitRecv). A sender finding a receiver
// already waiting hands its value across directly instead of touching the
// ring buffer; a receiver finding a sender waiting takes the oldest
// buffered value and moves the sender's value into the freed slot, or,
// with an empty buffer, takes the sender's value directly — the same
// unbounded-priority-inversion-free hand-off pattern as Semaphore and Mutex. A queue created with capacity 0
// is purely a synchronous hand-off channel between a sender and a
// receiver, exactly as the original's num_entries == 0 mode is.
type DataQueue[T any] struct {
	kernel *Kernel
	Name   string

	buf            []T
	head, tail, cn int
	deleted        bool

	waitSend *listNode[*Thread]
	waitRecv *listNode[*Thread]
}

// dqueueSendWait is the per-sender data threaded through Thread.waitData
// while blocked in DataQueue.Send/SendFirst.
type dqueueSendWait[T any] struct {
	value T
	first bool
}

type dqueueOptions struct {
	name string
}

// DataQueueOption configures a DataQueue instance.
type DataQueueOption interface {
	applyDataQueue(*dqueueOptions) error
}

type dqueueOptionImpl struct {
	applyDataQueueFunc func(*dqueueOptions) error
}

func (o *dqueueOptionImpl) applyDataQueue(opts *dqueueOptions) error {
	return o.applyDataQueueFunc(opts)
}

// WithDataQueueName attaches a human-readable name, used only for logging.
func WithDataQueueName(name string) DataQueueOption {
	return &dqueueOptionImpl{func(opts *dqueueOptions) error {
		opts.name = name
		return nil
	}}
}

func resolveDataQueueOptions(opts []DataQueueOption) (*dqueueOptions, error) {
	cfg := &dqueueOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDataQueue(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewDataQueue creates a data queue with the given ring-buffer capacity
// (0 for a purely synchronous hand-off channel). Go cannot attach an
// additional type parameter to a method on Kernel, so this is a
// package-level constructor rather than Kernel.NewDataQueue.
func NewDataQueue[T any](k *Kernel, capacity int, opts ...DataQueueOption) (*DataQueue[T], error) {
	cfg, err := resolveDataQueueOptions(opts)
	if err != nil {
		return nil, err
	}
	if capacity < 0 {
		return nil, newError(StatusWrongParam, "NewDataQueue", cfg.name)
	}
	return &DataQueue[T]{
		kernel:   k,
		Name:     cfg.name,
		buf:      make([]T, capacity),
		waitSend: newHeader[*Thread](),
		waitRecv: newHeader[*Thread](),
	}, nil
}

func (q *DataQueue[T]) fifoWrite(value T, first bool) bool {
	if len(q.buf) == 0 || q.cn == len(q.buf) {
		return false
	}
	if first {
		q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
		q.buf[q.head] = value
	} else {
		q.buf[q.tail] = value
		q.tail = (q.tail + 1) % len(q.buf)
	}
	q.cn++
	return true
}

func (q *DataQueue[T]) fifoRead() (T, bool) {
	var zero T
	if q.cn == 0 {
		return zero, false
	}
	value := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.cn--
	return value, true
}

// Send appends value to the tail of the queue, blocking up to timeout
// ticks if the queue is full and no receiver is waiting.
func (q *DataQueue[T]) Send(value T, timeout Tick) Status {
	return q.send(value, timeout, false)
}

// SendFirst places value at the head of the queue instead of the tail
// (§13, supplemented from tn_queue_send_first), so it is the next value a
// receiver sees ahead of whatever was already queued.
func (q *DataQueue[T]) SendFirst(value T, timeout Tick) Status {
	return q.send(value, timeout, true)
}

func (q *DataQueue[T]) send(value T, timeout Tick, first bool) Status {
	k := q.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if q.deleted {
		k.port.ExitCritical(tok)
		return StatusDeleted
	}
	if !q.waitRecv.empty() {
		rt := q.waitRecv.next.elem
		rt.waitData = value
		k.wakeLocked(rt, StatusOK)
		k.port.ExitCritical(tok)
		k.endCritical()
		return StatusOK
	}
	if q.fifoWrite(value, first) {
		k.port.ExitCritical(tok)
		return StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return StatusTimeout
	}
	t.waitData = dqueueSendWait[T]{value: value, first: first}
	status := k.waitOn(tok, t, q.waitSend, WaitReasonQueueSend, timeout, timeout.isForever())
	t.waitData = nil
	return status
}

// Receive removes and returns the value at the head of the queue,
// blocking up to timeout ticks if the queue is empty and no sender is
// waiting.
func (q *DataQueue[T]) Receive(timeout Tick) (T, Status) {
	var zero T
	k := q.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if q.deleted {
		k.port.ExitCritical(tok)
		return zero, StatusDeleted
	}
	if value, ok := q.fifoRead(); ok {
		if !q.waitSend.empty() {
			st := q.waitSend.next.elem
			sw := st.waitData.(dqueueSendWait[T])
			q.fifoWrite(sw.value, sw.first)
			k.wakeLocked(st, StatusOK)
		}
		k.port.ExitCritical(tok)
		k.endCritical()
		return value, StatusOK
	}
	if !q.waitSend.empty() {
		st := q.waitSend.next.elem
		sw := st.waitData.(dqueueSendWait[T])
		k.wakeLocked(st, StatusOK)
		k.port.ExitCritical(tok)
		k.endCritical()
		return sw.value, StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return zero, StatusTimeout
	}
	status := k.waitOn(tok, t, q.waitRecv, WaitReasonQueueReceive, timeout, timeout.isForever())
	if status != StatusOK {
		return zero, status
	}
	value := t.waitData.(T)
	t.waitData = nil
	return value, StatusOK
}

// Flush discards every queued value without waking or otherwise affecting
// any blocked sender or receiver, matching tn_queue_flush.
func (q *DataQueue[T]) Flush() error {
	k := q.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	if q.deleted {
		return checkStatus(StatusDeleted, "DataQueue.Flush", q.Name)
	}
	q.head, q.tail, q.cn = 0, 0, 0
	return nil
}

// Len reports the number of values currently queued.
func (q *DataQueue[T]) Len() int {
	k := q.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	return q.cn
}

// Delete invalidates the queue, waking every sender and receiver with
// StatusDeleted.
func (q *DataQueue[T]) Delete() error {
	k := q.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if q.deleted {
		return checkStatus(StatusDeleted, "DataQueue.Delete", q.Name)
	}
	q.deleted = true
	k.wakeAllDeleted(q.waitSend)
	k.wakeAllDeleted(q.waitRecv)
	return nil
}
