package ukernel_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAlarm_FiresOnceAfterDelay(t *testing.T) {
	k := newTestKernel(t)
	var fires int32
	a, err := k.NewAlarm(func() {
		atomic.AddInt32(&fires, 1)
	})
	require.NoError(t, err)

	require.NoError(t, a.Start(30))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fires) == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&fires), "Alarm must not re-arm itself")
}

func TestAlarm_StopCancelsPendingFire(t *testing.T) {
	k := newTestKernel(t)
	var fires int32
	a, err := k.NewAlarm(func() {
		atomic.AddInt32(&fires, 1)
	})
	require.NoError(t, err)

	require.NoError(t, a.Start(200))
	require.NoError(t, a.Stop())
	time.Sleep(300 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&fires))
}

func TestAlarm_StartReArmsCancellingPreviousSchedule(t *testing.T) {
	k := newTestKernel(t)
	var fires int32
	a, err := k.NewAlarm(func() {
		atomic.AddInt32(&fires, 1)
	})
	require.NoError(t, err)

	require.NoError(t, a.Start(500))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, a.Start(30)) // re-arm sooner, cancelling the first schedule

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fires) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(500 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&fires), "the original 500-tick schedule must have been cancelled")
}

func TestCyclicTimer_FiresRepeatedlyUntilStopped(t *testing.T) {
	k := newTestKernel(t)
	var fires int32
	c, err := k.NewCyclicTimer(20, func() {
		atomic.AddInt32(&fires, 1)
	})
	require.NoError(t, err)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fires) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop())
	after := atomic.LoadInt32(&fires)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, after, atomic.LoadInt32(&fires), "Stop must halt further fires")
}

func TestCyclicTimer_NewRejectsZeroPeriodOrNilCallback(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.NewCyclicTimer(0, func() {})
	require.Error(t, err)
	_, err = k.NewCyclicTimer(10, nil)
	require.Error(t, err)
}

// TestCyclicTimer_SkipsForwardByWholePeriodsAfterOverrun exercises §4.10's
// mandatory overrun correction: a callback that blocks past its own period
// must cause the timer to skip forward by whole periods to the next fire
// strictly after the current tick, not fire back-to-back to catch up (§8.4
// S5: period 10, callback blocks until tick 25, next fire tick 30).
func TestCyclicTimer_SkipsForwardByWholePeriodsAfterOverrun(t *testing.T) {
	k := newTestKernel(t)
	var mu sync.Mutex
	var fireTimes []time.Time
	var slowOnce int32
	c, err := k.NewCyclicTimer(20, func() {
		mu.Lock()
		fireTimes = append(fireTimes, time.Now())
		n := len(fireTimes)
		mu.Unlock()
		if n == 1 && atomic.CompareAndSwapInt32(&slowOnce, 0, 1) {
			time.Sleep(60 * time.Millisecond) // deliberately overruns several periods
		}
	})
	require.NoError(t, err)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fireTimes) >= 4
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(fireTimes), 4)
	// fireTimes[1] is the single recovery fire the skip-forward loop jumps
	// to once it catches up past the overrun; if re-arming instead fired
	// back-to-back for every missed period, fireTimes[2] would land right
	// behind it too. It must instead wait out a full period.
	gap := fireTimes[2].Sub(fireTimes[1])
	require.Greater(t, gap, 10*time.Millisecond, "must not fire back-to-back to catch up after the overrun")
}
