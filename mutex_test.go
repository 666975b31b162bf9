package ukernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tn-go/ukernel"
)

func TestMutex_LockIsNotRecursiveByDefault(t *testing.T) {
	k := newTestKernel(t)
	m, err := k.NewMutex()
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = k.NewThread(3, func(arg any) {
		defer close(done)
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))
		require.Equal(t, ukernel.StatusIllegalUse, m.Lock(ukernel.Polling))
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("thread never finished")
	}
}

// TestMutex_RecursiveMutexAllowsOwnerReentry exercises §4.6's recursive
// option: the owner may re-lock the mutex any number of times, and it
// only actually becomes free (and available to other threads) once a
// matching number of Unlock calls brings the depth count back to zero.
func TestMutex_RecursiveMutexAllowsOwnerReentry(t *testing.T) {
	k := newTestKernel(t)
	m, err := k.NewMutex(ukernel.WithRecursiveMutex(true))
	require.NoError(t, err)

	depthTwoReleased := make(chan struct{})
	ownerDone := make(chan struct{})
	waiterAcquired := make(chan struct{})

	// owner runs first (created first, same priority as waiter, FIFO
	// ready-list order): it locks recursively three times, then unlocks
	// twice, leaving the depth count at one. The kernel Sleep below is a
	// genuine blocking call, so the waiter gets a real chance to run and
	// block on the still-held mutex before owner's final Unlock.
	_, err = k.NewThread(5, func(arg any) {
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever), "owner re-lock must succeed, not return StatusIllegalUse")
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))

		require.NoError(t, m.Unlock())
		require.NoError(t, m.Unlock())
		close(depthTwoReleased) // one Unlock still outstanding; mutex must still be held
		require.Equal(t, ukernel.StatusTimeout, k.CurrentThread().Sleep(30))
		require.NoError(t, m.Unlock()) // depth now reaches zero, mutex actually frees
		close(ownerDone)
	}, nil, ukernel.WithThreadName("owner"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	_, err = k.NewThread(5, func(arg any) {
		status := m.Lock(ukernel.Forever)
		require.Equal(t, ukernel.StatusOK, status)
		close(waiterAcquired)
	}, nil, ukernel.WithThreadName("waiter"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	require.NoError(t, k.Start())

	select {
	case <-depthTwoReleased:
	case <-time.After(time.Second):
		t.Fatal("owner thread never finished its first two Unlock calls")
	}
	select {
	case <-waiterAcquired:
		t.Fatal("mutex must stay held while the owner's depth count is still above zero")
	case <-time.After(15 * time.Millisecond):
	}

	select {
	case <-ownerDone:
	case <-time.After(time.Second):
		t.Fatal("owner thread never finished")
	}
	select {
	case <-waiterAcquired:
	case <-time.After(time.Second):
		t.Fatal("mutex was not actually free after the matching Unlock count")
	}
}

func TestMutex_UnlockByNonOwnerIsIllegal(t *testing.T) {
	k := newTestKernel(t)
	m, err := k.NewMutex()
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = k.NewThread(3, func(arg any) {
		defer close(done)
		require.Error(t, m.Unlock(), "mutex was never locked by this thread")
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("thread never finished")
	}
}

// TestMutex_PriorityInheritanceBoostsOwnerToBlockedWaiterPriority verifies the
// classic priority-inversion fix (§4.6): a low-priority owner blocking a
// high-priority waiter is temporarily boosted so a medium-priority thread
// cannot starve the high-priority one by running forever in between.
func TestMutex_PriorityInheritanceBoostsOwnerToBlockedWaiterPriority(t *testing.T) {
	k := newTestKernel(t)
	m, err := k.NewMutex() // priority inheritance (no ceiling)
	require.NoError(t, err)

	lowHasLock := make(chan struct{})
	lowObservedBoost := make(chan int, 1)
	highAcquired := make(chan struct{})
	release := make(chan struct{})

	_, err = k.NewThread(9, func(arg any) {
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))
		close(lowHasLock)
		<-release
		lowObservedBoost <- k.CurrentThread().Priority()
		require.NoError(t, m.Unlock())
	}, nil, ukernel.WithThreadName("low"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	_, err = k.NewThread(1, func(arg any) {
		<-lowHasLock
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))
		close(highAcquired)
		require.NoError(t, m.Unlock())
	}, nil, ukernel.WithThreadName("high"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	require.NoError(t, k.Start())

	<-lowHasLock
	time.Sleep(20 * time.Millisecond) // let the high-priority thread block on m
	close(release)

	select {
	case boosted := <-lowObservedBoost:
		require.Equal(t, 1, boosted, "owner must inherit the blocked waiter's priority")
	case <-time.After(time.Second):
		t.Fatal("low-priority owner never observed its boosted priority")
	}

	select {
	case <-highAcquired:
	case <-time.After(time.Second):
		t.Fatal("high-priority waiter never acquired the mutex")
	}
}

func TestMutex_CeilingRaisesOwnerImmediatelyOnLock(t *testing.T) {
	k := newTestKernel(t)
	m, err := k.NewMutex(ukernel.WithMutexCeiling(1))
	require.NoError(t, err)

	observed := make(chan int, 1)
	_, err = k.NewThread(9, func(arg any) {
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))
		observed <- k.CurrentThread().Priority()
		require.NoError(t, m.Unlock())
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case priority := <-observed:
		require.Equal(t, 1, priority)
	case <-time.After(time.Second):
		t.Fatal("thread never locked the ceiling mutex")
	}
}

func TestMutex_RobustMutexReleasedOnOwnerTermination(t *testing.T) {
	k := newTestKernel(t)
	m, err := k.NewMutex(ukernel.WithRobustMutex(true))
	require.NoError(t, err)

	ownerHasLock := make(chan struct{})
	block := make(chan struct{})
	owner, err := k.NewThread(5, func(arg any) {
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))
		close(ownerHasLock)
		<-block
	}, nil, ukernel.WithThreadName("owner"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	waiterAcquired := make(chan struct{})
	_, err = k.NewThread(5, func(arg any) {
		<-ownerHasLock
		status := m.Lock(ukernel.Forever)
		require.Equal(t, ukernel.StatusOK, status)
		close(waiterAcquired)
	}, nil, ukernel.WithThreadName("waiter"), ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	require.NoError(t, k.Start())
	<-ownerHasLock
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, owner.Terminate())

	select {
	case <-waiterAcquired:
	case <-time.After(time.Second):
		t.Fatal("robust mutex was not released to waiter on owner termination")
	}
}

func TestMutex_NonRobustMutexStaysLockedOnOwnerTermination(t *testing.T) {
	k := newTestKernel(t)
	m, err := k.NewMutex() // robust defaults to false
	require.NoError(t, err)

	ownerHasLock := make(chan struct{})
	owner, err := k.NewThread(5, func(arg any) {
		require.Equal(t, ukernel.StatusOK, m.Lock(ukernel.Forever))
		close(ownerHasLock)
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	<-ownerHasLock
	time.Sleep(20 * time.Millisecond)
	// owner's entry has returned, so it already exited holding m and is
	// Terminated; terminating it again is rejected.
	require.Error(t, owner.Terminate(), "owner already exited while holding m")

	require.Equal(t, ukernel.StatusTimeout, m.Lock(50), "non-robust mutex stays locked and ownerless forever")
}
