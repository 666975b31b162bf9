//go:build unix

package hostport

import (
	"time"

	"golang.org/x/sys/unix"
)

// monotonicNow reads CLOCK_MONOTONIC directly via golang.org/x/sys/unix
// rather than time.Now(), so the host tick source is immune to wall-clock
// adjustments (NTP steps, manual clock changes) the same way a real
// target's free-running hardware timer is (§6.2).
func monotonicNow() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return time.Duration(time.Now().UnixNano())
	}
	return time.Duration(ts.Sec)*time.Second + time.Duration(ts.Nsec)
}
