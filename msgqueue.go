package ukernel

// MsgQueue implements §4.9, a fixed-capacity message queue grounded on
// message_que.c's mbf_fifo_write/mbf_fifo_read/MessageQueuePut/
// MessageQueueGet, with messages carried directly by value (T) rather
// than memcpy'd through a byte buffer. The original supports exactly two
// priorities (osMsgPriorityNormal appends at the tail, osMsgPriorityHigh
// inserts at the head); this kernel supplements that with SendPriority
// (§13), an arbitrary-priority-ordered insert, while keeping Send and
// SendUrgent as the direct equivalents of the original's two modes.
type MsgQueue[T any] struct {
	kernel   *Kernel
	Name     string
	capacity int

	buf     []msgEntry[T]
	deleted bool

	waitSend *listNode[*Thread]
	waitRecv *listNode[*Thread]
}

type msgEntry[T any] struct {
	value    T
	priority int
}

type msgInsertMode int

const (
	msgInsertTail msgInsertMode = iota
	msgInsertHead
	msgInsertPriority
)

// msgSendWait is the per-sender data threaded through Thread.waitData
// while blocked in MsgQueue.Send/SendUrgent/SendPriority.
type msgSendWait[T any] struct {
	entry msgEntry[T]
	mode  msgInsertMode
}

type msgQueueOptions struct {
	name string
}

// MsgQueueOption configures a MsgQueue instance.
type MsgQueueOption interface {
	applyMsgQueue(*msgQueueOptions) error
}

type msgQueueOptionImpl struct {
	applyMsgQueueFunc func(*msgQueueOptions) error
}

func (o *msgQueueOptionImpl) applyMsgQueue(opts *msgQueueOptions) error {
	return o.applyMsgQueueFunc(opts)
}

// WithMsgQueueName attaches a human-readable name, used only for logging.
func WithMsgQueueName(name string) MsgQueueOption {
	return &msgQueueOptionImpl{func(opts *msgQueueOptions) error {
		opts.name = name
		return nil
	}}
}

func resolveMsgQueueOptions(opts []MsgQueueOption) (*msgQueueOptions, error) {
	cfg := &msgQueueOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyMsgQueue(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewMsgQueue creates a message queue holding up to capacity values. Go
// cannot attach an additional type parameter to a method on Kernel, so
// this is a package-level constructor rather than Kernel.NewMsgQueue.
func NewMsgQueue[T any](k *Kernel, capacity int, opts ...MsgQueueOption) (*MsgQueue[T], error) {
	cfg, err := resolveMsgQueueOptions(opts)
	if err != nil {
		return nil, err
	}
	if capacity < 0 {
		return nil, newError(StatusWrongParam, "NewMsgQueue", cfg.name)
	}
	return &MsgQueue[T]{
		kernel:   k,
		Name:     cfg.name,
		capacity: capacity,
		waitSend: newHeader[*Thread](),
		waitRecv: newHeader[*Thread](),
	}, nil
}

func (q *MsgQueue[T]) fifoInsert(e msgEntry[T], mode msgInsertMode) bool {
	if len(q.buf) >= q.capacity {
		return false
	}
	switch mode {
	case msgInsertHead:
		q.buf = append(q.buf, msgEntry[T]{})
		copy(q.buf[1:], q.buf[:len(q.buf)-1])
		q.buf[0] = e
	case msgInsertPriority:
		idx := len(q.buf)
		for i := range q.buf {
			if q.buf[i].priority > e.priority {
				idx = i
				break
			}
		}
		q.buf = append(q.buf, msgEntry[T]{})
		copy(q.buf[idx+1:], q.buf[idx:len(q.buf)-1])
		q.buf[idx] = e
	default:
		q.buf = append(q.buf, e)
	}
	return true
}

func (q *MsgQueue[T]) fifoRead() (msgEntry[T], bool) {
	var zero msgEntry[T]
	if len(q.buf) == 0 {
		return zero, false
	}
	e := q.buf[0]
	q.buf = q.buf[1:]
	return e, true
}

// Send appends value to the tail of the queue (osMsgPriorityNormal),
// blocking up to timeout ticks if the queue is full and no receiver is
// waiting.
func (q *MsgQueue[T]) Send(value T, timeout Tick) Status {
	return q.send(msgEntry[T]{value: value}, msgInsertTail, timeout)
}

// SendUrgent places value at the head of the queue (osMsgPriorityHigh),
// so it is the next value a receiver sees ahead of whatever was already
// queued.
func (q *MsgQueue[T]) SendUrgent(value T, timeout Tick) Status {
	return q.send(msgEntry[T]{value: value}, msgInsertHead, timeout)
}

// SendPriority inserts value in priority order (numerically lower
// priority sorts first, i.e. is received first; ties are FIFO), an
// arbitrary-priority generalization of SendUrgent's single extra level
// (§13).
func (q *MsgQueue[T]) SendPriority(value T, priority int, timeout Tick) Status {
	return q.send(msgEntry[T]{value: value, priority: priority}, msgInsertPriority, timeout)
}

func (q *MsgQueue[T]) send(e msgEntry[T], mode msgInsertMode, timeout Tick) Status {
	k := q.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if q.deleted {
		k.port.ExitCritical(tok)
		return StatusDeleted
	}
	if !q.waitRecv.empty() {
		rt := q.waitRecv.next.elem
		rt.waitData = e.value
		k.wakeLocked(rt, StatusOK)
		k.port.ExitCritical(tok)
		k.endCritical()
		return StatusOK
	}
	if q.fifoInsert(e, mode) {
		k.port.ExitCritical(tok)
		return StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return StatusTimeout
	}
	t.waitData = msgSendWait[T]{entry: e, mode: mode}
	status := k.waitOn(tok, t, q.waitSend, WaitReasonMessageSend, timeout, timeout.isForever())
	t.waitData = nil
	return status
}

// Receive removes and returns the value at the head of the queue,
// blocking up to timeout ticks if the queue is empty and no sender is
// waiting.
func (q *MsgQueue[T]) Receive(timeout Tick) (T, Status) {
	var zero T
	k := q.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if q.deleted {
		k.port.ExitCritical(tok)
		return zero, StatusDeleted
	}
	if e, ok := q.fifoRead(); ok {
		if !q.waitSend.empty() {
			st := q.waitSend.next.elem
			sw := st.waitData.(msgSendWait[T])
			q.fifoInsert(sw.entry, sw.mode)
			k.wakeLocked(st, StatusOK)
		}
		k.port.ExitCritical(tok)
		k.endCritical()
		return e.value, StatusOK
	}
	if !q.waitSend.empty() {
		st := q.waitSend.next.elem
		sw := st.waitData.(msgSendWait[T])
		k.wakeLocked(st, StatusOK)
		k.port.ExitCritical(tok)
		k.endCritical()
		return sw.entry.value, StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return zero, StatusTimeout
	}
	status := k.waitOn(tok, t, q.waitRecv, WaitReasonMessageReceive, timeout, timeout.isForever())
	if status != StatusOK {
		return zero, status
	}
	value := t.waitData.(T)
	t.waitData = nil
	return value, StatusOK
}

// Len reports the number of messages currently queued.
func (q *MsgQueue[T]) Len() int {
	k := q.kernel
	tok := k.port.EnterCritical()
	defer k.port.ExitCritical(tok)
	return len(q.buf)
}

// Delete invalidates the queue, waking every sender and receiver with
// StatusDeleted.
func (q *MsgQueue[T]) Delete() error {
	k := q.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if q.deleted {
		return checkStatus(StatusDeleted, "MsgQueue.Delete", q.Name)
	}
	q.deleted = true
	k.wakeAllDeleted(q.waitSend)
	k.wakeAllDeleted(q.waitRecv)
	return nil
}
