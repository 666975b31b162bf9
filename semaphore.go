package ukernel

// Semaphore implements §4.4, a counting semaphore grounded directly on
// tn_sem.c's tn_sem_create/tn_sem_signal/tn_sem_acquire: a release either
// hands the count directly to the waiter that has been blocked longest
// (§5's FIFO wait-queue policy) or, if none is waiting, increments count
// up to maxCount; an acquire either takes the count immediately or
// blocks.
type Semaphore struct {
	kernel *Kernel
	Name   string

	count    int
	maxCount int
	deleted  bool

	waitQ *listNode[*Thread]
}

type semaphoreOptions struct {
	name string
}

// SemaphoreOption configures a Semaphore instance.
type SemaphoreOption interface {
	applySemaphore(*semaphoreOptions) error
}

type semaphoreOptionImpl struct {
	applySemaphoreFunc func(*semaphoreOptions) error
}

func (o *semaphoreOptionImpl) applySemaphore(opts *semaphoreOptions) error {
	return o.applySemaphoreFunc(opts)
}

// WithSemaphoreName attaches a human-readable name, used only for logging.
func WithSemaphoreName(name string) SemaphoreOption {
	return &semaphoreOptionImpl{func(opts *semaphoreOptions) error {
		opts.name = name
		return nil
	}}
}

func resolveSemaphoreOptions(opts []SemaphoreOption) (*semaphoreOptions, error) {
	cfg := &semaphoreOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applySemaphore(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewSemaphore creates a counting semaphore with the given initial count
// and maximum count (§4.4). maxCount must be positive and startCount must
// fall within [0, maxCount].
func (k *Kernel) NewSemaphore(startCount, maxCount int, opts ...SemaphoreOption) (*Semaphore, error) {
	cfg, err := resolveSemaphoreOptions(opts)
	if err != nil {
		return nil, err
	}
	if maxCount <= 0 || startCount < 0 || startCount > maxCount {
		return nil, newError(StatusWrongParam, "NewSemaphore", cfg.name)
	}
	return &Semaphore{
		kernel:   k,
		Name:     cfg.name,
		count:    startCount,
		maxCount: maxCount,
		waitQ:    newHeader[*Thread](),
	}, nil
}

// Release increments the semaphore's count, or, if a thread is waiting,
// wakes the one at the head of the FIFO wait queue directly instead of
// touching count at all. Returns StatusOverflow if count is already at
// maxCount and nobody is waiting.
func (s *Semaphore) Release() error {
	k := s.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if s.deleted {
		return checkStatus(StatusDeleted, "Semaphore.Release", s.Name)
	}
	if !s.waitQ.empty() {
		t := s.waitQ.next.elem
		k.wakeLocked(t, StatusOK)
		return nil
	}
	if s.count >= s.maxCount {
		return checkStatus(StatusOverflow, "Semaphore.Release", s.Name)
	}
	s.count++
	return nil
}

// Acquire decrements the semaphore's count, blocking up to timeout ticks
// if it is already zero (§4.4). Polling returns immediately with
// StatusTimeout; Forever never times out.
func (s *Semaphore) Acquire(timeout Tick) Status {
	k := s.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if s.deleted {
		k.port.ExitCritical(tok)
		return StatusDeleted
	}
	if s.count >= 1 {
		s.count--
		k.port.ExitCritical(tok)
		return StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return StatusTimeout
	}
	return k.waitOn(tok, t, s.waitQ, WaitReasonSemaphore, timeout, timeout.isForever())
}

// TryAcquire is Acquire with Polling, spelled out for readability.
func (s *Semaphore) TryAcquire() Status {
	return s.Acquire(Polling)
}

// Delete invalidates the semaphore, waking every waiter with
// StatusDeleted.
func (s *Semaphore) Delete() error {
	k := s.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if s.deleted {
		return checkStatus(StatusDeleted, "Semaphore.Delete", s.Name)
	}
	s.deleted = true
	k.wakeAllDeleted(s.waitQ)
	return nil
}
