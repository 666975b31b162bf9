package ukernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tn-go/ukernel"
)

func TestPool_NewRejectsFewerThanTwoBlocks(t *testing.T) {
	k := newTestKernel(t)
	_, err := ukernel.NewPool[int](k, 1)
	require.Error(t, err)
}

func TestPool_GetReturnsDistinctBlocksThenTimesOutWhenEmpty(t *testing.T) {
	k := newTestKernel(t)
	p, err := ukernel.NewPool[int](k, 2)
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = k.NewThread(3, func(arg any) {
		defer close(done)
		a, status := p.Get(ukernel.Polling)
		require.Equal(t, ukernel.StatusOK, status)
		b, status := p.Get(ukernel.Polling)
		require.Equal(t, ukernel.StatusOK, status)
		require.NotSame(t, a, b)
		_, status = p.Get(ukernel.Polling)
		require.Equal(t, ukernel.StatusTimeout, status, "both blocks already handed out")
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("thread never finished")
	}
}

func TestPool_PutRejectsForeignBlock(t *testing.T) {
	k := newTestKernel(t)
	p, err := ukernel.NewPool[int](k, 2)
	require.NoError(t, err)

	foreign := new(int)
	require.Error(t, p.Put(foreign))
}

// TestPool_PutHandsOffDirectlyToBlockedWaiter drains a 2-block pool from
// inside a kernel thread, blocks that same thread on a third Get, then
// returns one of the drained blocks via Put called directly from the test
// goroutine (valid since Put, unlike Get, never reads Kernel.current) and
// confirms the waiter is woken with that exact block rather than the pool
// being left to race for it.
func TestPool_PutHandsOffDirectlyToBlockedWaiter(t *testing.T) {
	k := newTestKernel(t)
	p, err := ukernel.NewPool[int](k, 2)
	require.NoError(t, err)

	drained := make(chan *int, 2)
	waiterGot := make(chan *int, 1)
	_, err = k.NewThread(3, func(arg any) {
		a, status := p.Get(ukernel.Polling)
		require.Equal(t, ukernel.StatusOK, status)
		b, status := p.Get(ukernel.Polling)
		require.Equal(t, ukernel.StatusOK, status)
		drained <- a
		drained <- b
		third, status := p.Get(ukernel.Forever)
		require.Equal(t, ukernel.StatusOK, status)
		waiterGot <- third
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	a := <-drained
	<-drained
	time.Sleep(20 * time.Millisecond) // let the thread register its third Get as blocked

	require.NoError(t, p.Put(a))

	select {
	case block := <-waiterGot:
		require.Same(t, a, block, "Put must hand the block directly to the blocked waiter")
	case <-time.After(time.Second):
		t.Fatal("waiter never got a block")
	}
}

func TestPool_DeleteWakesBlockedGetWithStatusDeleted(t *testing.T) {
	k := newTestKernel(t)
	p, err := ukernel.NewPool[int](k, 2)
	require.NoError(t, err)

	result := make(chan ukernel.Status, 1)
	_, err = k.NewThread(3, func(arg any) {
		_, status := p.Get(ukernel.Polling)
		require.Equal(t, ukernel.StatusOK, status)
		_, status = p.Get(ukernel.Polling)
		require.Equal(t, ukernel.StatusOK, status)
		_, status = p.Get(ukernel.Forever)
		result <- status
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Delete())

	select {
	case status := <-result:
		require.Equal(t, ukernel.StatusDeleted, status)
	case <-time.After(time.Second):
		t.Fatal("blocked Get never woken by Delete")
	}
}
