package ukernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tn-go/ukernel"
)

func TestEventGroup_AutoClearRequiresSingleWaiter(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.NewEventGroup(0, ukernel.WithEventAutoClear(true))
	require.Error(t, err, "auto-clear without single-waiter must be rejected at construction")
}

func TestEventGroup_TryWaitSatisfiedImmediately(t *testing.T) {
	k := newTestKernel(t)
	e, err := k.NewEventGroup(0b101)
	require.NoError(t, err)

	pattern, status := e.TryWait(0b001, ukernel.EventWaitAny)
	require.Equal(t, ukernel.StatusOK, status)
	require.Equal(t, uint32(0b101), pattern)
}

func TestEventGroup_WaitAllRequiresEveryBit(t *testing.T) {
	k := newTestKernel(t)
	e, err := k.NewEventGroup(0b001)
	require.NoError(t, err)

	_, status := e.TryWait(0b011, ukernel.EventWaitAll)
	require.Equal(t, ukernel.StatusTimeout, status)

	require.NoError(t, e.Set(0b010))
	pattern, status := e.TryWait(0b011, ukernel.EventWaitAll)
	require.Equal(t, ukernel.StatusOK, status)
	require.Equal(t, uint32(0b011), pattern)
}

func TestEventGroup_SetWakesBlockedWaiter(t *testing.T) {
	k := newTestKernel(t)
	e, err := k.NewEventGroup(0)
	require.NoError(t, err)

	result := make(chan uint32, 1)
	ready := make(chan struct{})
	_, err = k.NewThread(3, func(arg any) {
		close(ready)
		pattern, status := e.Wait(0b1, ukernel.EventWaitAny, ukernel.Forever)
		require.Equal(t, ukernel.StatusOK, status)
		result <- pattern
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	<-ready
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, e.Set(0b1))

	select {
	case pattern := <-result:
		require.Equal(t, uint32(0b1), pattern)
	case <-time.After(time.Second):
		t.Fatal("waiter never woken by Set")
	}
}

func TestEventGroup_AutoClearConsumesDeliveredBits(t *testing.T) {
	k := newTestKernel(t)
	e, err := k.NewEventGroup(0, ukernel.WithEventSingleWaiter(true), ukernel.WithEventAutoClear(true))
	require.NoError(t, err)

	ready := make(chan struct{})
	done := make(chan struct{})
	_, err = k.NewThread(3, func(arg any) {
		close(ready)
		_, status := e.Wait(0b1, ukernel.EventWaitAny, ukernel.Forever)
		require.Equal(t, ukernel.StatusOK, status)
		close(done)
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	<-ready
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, e.Set(0b1))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never woken")
	}

	pattern, status := e.TryWait(0b1, ukernel.EventWaitAny)
	require.Equal(t, ukernel.StatusTimeout, status, "auto-clear must have consumed the delivered bit")
	require.Zero(t, pattern)
}

func TestEventGroup_SingleWaiterRejectsSecondConcurrentWait(t *testing.T) {
	k := newTestKernel(t)
	e, err := k.NewEventGroup(0, ukernel.WithEventSingleWaiter(true))
	require.NoError(t, err)

	firstReady := make(chan struct{})
	secondStatus := make(chan ukernel.Status, 1)
	_, err = k.NewThread(3, func(arg any) {
		close(firstReady)
		_, _ = e.Wait(0b1, ukernel.EventWaitAny, ukernel.Forever)
	}, nil, ukernel.WithThreadName("first"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	_, err = k.NewThread(3, func(arg any) {
		<-firstReady
		time.Sleep(20 * time.Millisecond)
		_, status := e.Wait(0b1, ukernel.EventWaitAny, ukernel.Polling)
		secondStatus <- status
	}, nil, ukernel.WithThreadName("second"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	require.NoError(t, k.Start())

	select {
	case status := <-secondStatus:
		require.Equal(t, ukernel.StatusIllegalUse, status)
	case <-time.After(time.Second):
		t.Fatal("second waiter's call never returned")
	}
}

func TestEventGroup_ClearRemovesOnlyGivenBits(t *testing.T) {
	k := newTestKernel(t)
	e, err := k.NewEventGroup(0b11)
	require.NoError(t, err)
	require.NoError(t, e.Clear(0b01))
	pattern, status := e.TryWait(0b01, ukernel.EventWaitAny)
	require.Equal(t, ukernel.StatusTimeout, status)
	require.Zero(t, pattern)
	pattern, status = e.TryWait(0b10, ukernel.EventWaitAny)
	require.Equal(t, ukernel.StatusOK, status)
	require.Equal(t, uint32(0b10), pattern)
}
