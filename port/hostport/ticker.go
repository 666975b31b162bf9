package hostport

import (
	"sync"
	"time"

	"github.com/tn-go/ukernel"
)

// Ticker drives a Kernel's Tick from wall-clock time, for use with hostport
// outside of a test's own manual tick stepping. It runs on its own
// goroutine, independent of whichever thread's goroutine is currently live,
// exactly as a hardware timer ISR fires independent of whatever code it
// interrupts — EnterCritical/ExitCritical inside Kernel.Tick is what keeps
// the two from racing.
type Ticker struct {
	kernel *ukernel.Kernel
	period time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewTicker creates a Ticker that calls k.Tick once per period. It does not
// start until Start is called.
func NewTicker(k *ukernel.Kernel, period time.Duration) *Ticker {
	return &Ticker{
		kernel: k,
		period: period,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins the ticking goroutine. Safe to call at most once.
func (tk *Ticker) Start() {
	go tk.run()
}

// Stop halts the ticking goroutine and waits for it to exit.
func (tk *Ticker) Stop() {
	tk.once.Do(func() { close(tk.stop) })
	<-tk.done
}

func (tk *Ticker) run() {
	defer close(tk.done)
	next := monotonicNow() + tk.period
	for {
		select {
		case <-tk.stop:
			return
		default:
		}
		if wait := next - monotonicNow(); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-tk.stop:
				timer.Stop()
				return
			}
		}
		tk.kernel.Tick()
		next += tk.period
	}
}
