package ukernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tn-go/ukernel"
)

func TestThread_ActivateOnlyFromInactive(t *testing.T) {
	k := newTestKernel(t)
	th, err := k.NewThread(3, func(arg any) {}, nil)
	require.NoError(t, err)

	require.NoError(t, th.Activate())
	err = th.Activate()
	require.Error(t, err)
}

func TestThread_SleepWakesAfterTicksElapse(t *testing.T) {
	k := newTestKernel(t)
	woke := make(chan time.Duration, 1)

	_, err := k.NewThread(3, func(arg any) {
		start := time.Now()
		k.CurrentThread().Sleep(50)
		woke <- time.Since(start)
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case elapsed := <-woke:
		require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("thread never woke from Sleep")
	}
}

func TestThread_WakeupBeforeSleepIsBankedAsPendingCredit(t *testing.T) {
	k := newTestKernel(t)
	ready := make(chan *ukernel.Thread, 1)
	proceed := make(chan struct{})
	slept := make(chan struct{})

	th, err := k.NewThread(3, func(arg any) {
		ready <- k.CurrentThread()
		<-proceed
		status := k.CurrentThread().Sleep(ukernel.Forever)
		require.Equal(t, ukernel.StatusOK, status)
		close(slept)
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	<-ready
	require.NoError(t, th.Wakeup()) // races ahead of Sleep, banked as a credit
	close(proceed)

	select {
	case <-slept:
	case <-time.After(time.Second):
		t.Fatal("Sleep did not consume the pending wakeup credit")
	}
}

func TestThread_SuspendRemovesFromReadyUntilResume(t *testing.T) {
	k := newTestKernel(t)
	ran := make(chan struct{})

	th, err := k.NewThread(3, func(arg any) {
		close(ran)
	}, nil)
	require.NoError(t, err)

	require.NoError(t, th.Activate()) // Inactive -> Ready
	require.NoError(t, th.Suspend())  // suspended keeps it out of dispatch
	require.NoError(t, k.Start())

	select {
	case <-ran:
		t.Fatal("suspended thread must not run before Resume")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, th.Resume())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("thread never ran after Resume")
	}
}

func TestThread_ChangePriorityRequeuesAheadOfLowerPriorityThreads(t *testing.T) {
	k := newTestKernel(t)
	order := make(chan string, 2)

	low, err := k.NewThread(5, func(arg any) {
		order <- "low"
	}, nil)
	require.NoError(t, err)
	_, err = k.NewThread(4, func(arg any) {
		order <- "mid"
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	require.NoError(t, low.Activate())
	require.NoError(t, low.ChangePriority(1))

	require.NoError(t, k.Start())

	select {
	case first := <-order:
		require.Equal(t, "low", first, "raised priority must run ahead of mid")
	case <-time.After(time.Second):
		t.Fatal("no thread ran")
	}
}

func TestThread_TerminateThenDeleteRequiresDormant(t *testing.T) {
	k := newTestKernel(t)
	block := make(chan struct{})
	th, err := k.NewThread(3, func(arg any) {
		<-block
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	require.Error(t, th.Delete(), "cannot delete a running thread")

	require.NoError(t, th.Terminate())
	require.NoError(t, th.Delete())
	close(block)
}

func TestThread_ReleaseWaitOnlyValidWhenBlocked(t *testing.T) {
	k := newTestKernel(t)
	th, err := k.NewThread(3, func(arg any) {}, nil)
	require.NoError(t, err)
	require.Error(t, th.ReleaseWait(), "Inactive thread is not Blocked")
}
