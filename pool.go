package ukernel

// Pool implements §4.7, a fixed-block memory pool grounded on tn_mem.c's
// fm_get/fm_put/tn_fmem_get/tn_fmem_release. The original manages a free
// list threaded through the first word of each raw memory block; a Go pool
// has no business doing unsafe pointer arithmetic over its own backing
// store, so the free list here is a plain slice-as-stack of *T block
// pointers instead, preserving the get/put/block-count semantics without
// the pointer games.
type Pool[T any] struct {
	kernel *Kernel
	Name   string

	blocks  []*T
	belongs map[*T]bool
	free    []*T
	deleted bool

	waitQ *listNode[*Thread]
}

type poolOptions struct {
	name string
}

// PoolOption configures a Pool instance.
type PoolOption interface {
	applyPool(*poolOptions) error
}

type poolOptionImpl struct {
	applyPoolFunc func(*poolOptions) error
}

func (o *poolOptionImpl) applyPool(opts *poolOptions) error {
	return o.applyPoolFunc(opts)
}

// WithPoolName attaches a human-readable name, used only for logging.
func WithPoolName(name string) PoolOption {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.name = name
		return nil
	}}
}

func resolvePoolOptions(opts []PoolOption) (*poolOptions, error) {
	cfg := &poolOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPool(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewPool preallocates numBlocks zero-valued T and returns a pool over
// them. numBlocks must be at least 2, matching tn_fmem_create's minimum.
// Go cannot attach an additional type parameter to a method on Kernel, so
// this is a package-level constructor rather than Kernel.NewPool.
func NewPool[T any](k *Kernel, numBlocks int, opts ...PoolOption) (*Pool[T], error) {
	cfg, err := resolvePoolOptions(opts)
	if err != nil {
		return nil, err
	}
	if numBlocks < 2 {
		return nil, newError(StatusWrongParam, "NewPool", cfg.name)
	}
	blocks := make([]*T, numBlocks)
	belongs := make(map[*T]bool, numBlocks)
	free := make([]*T, 0, numBlocks)
	for i := range blocks {
		b := new(T)
		blocks[i] = b
		belongs[b] = true
		free = append(free, b)
	}
	return &Pool[T]{
		kernel:  k,
		Name:    cfg.name,
		blocks:  blocks,
		belongs: belongs,
		free:    free,
		waitQ:   newHeader[*Thread](),
	}, nil
}

// Get takes a block from the pool, blocking up to timeout ticks if none is
// free (§4.7). Polling returns immediately with StatusTimeout; Forever
// never times out. The returned block's contents are whatever they were
// left as by its last Put and are not zeroed on Get.
func (p *Pool[T]) Get(timeout Tick) (*T, Status) {
	k := p.kernel
	t := k.current
	tok := k.port.EnterCritical()
	if p.deleted {
		k.port.ExitCritical(tok)
		return nil, StatusDeleted
	}
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free = p.free[:n-1]
		k.port.ExitCritical(tok)
		return b, StatusOK
	}
	if timeout == Polling {
		k.port.ExitCritical(tok)
		return nil, StatusTimeout
	}
	status := k.waitOn(tok, t, p.waitQ, WaitReasonPool, timeout, timeout.isForever())
	if status != StatusOK {
		return nil, status
	}
	b := t.waitData.(*T)
	t.waitData = nil
	return b, StatusOK
}

// Put returns a block to the pool, or, if a thread is waiting, hands it
// directly to the one that has been blocked longest (§5's FIFO wait-queue
// policy) instead of touching the free list at all. Put on a block that
// did not come from this pool returns StatusWrongParam.
func (p *Pool[T]) Put(block *T) error {
	k := p.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if p.deleted {
		return checkStatus(StatusDeleted, "Pool.Put", p.Name)
	}
	if !p.belongs[block] {
		return checkStatus(StatusWrongParam, "Pool.Put", p.Name)
	}
	if !p.waitQ.empty() {
		t := p.waitQ.next.elem
		t.waitData = block
		k.wakeLocked(t, StatusOK)
		return nil
	}
	if len(p.free) >= len(p.blocks) {
		return checkStatus(StatusOverflow, "Pool.Put", p.Name)
	}
	p.free = append(p.free, block)
	return nil
}

// Delete invalidates the pool, waking every waiter with StatusDeleted.
func (p *Pool[T]) Delete() error {
	k := p.kernel
	tok := k.port.EnterCritical()
	defer func() {
		k.port.ExitCritical(tok)
		k.endCritical()
	}()
	if p.deleted {
		return checkStatus(StatusDeleted, "Pool.Delete", p.Name)
	}
	p.deleted = true
	k.wakeAllDeleted(p.waitQ)
	return nil
}
