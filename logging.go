// logging.go - structured logging for the kernel core.
//
// Package-level configuration: a global logger guarded by a RWMutex, a
// zero-dependency DefaultLogger for bare use, and a production adapter over
// github.com/joeycumines/logiface so callers can route kernel events through
// any real logiface-compatible backend (logrus, zerolog, ...) instead of
// writing their own Logger implementation.
//
// Usage:
//
//	ukernel.SetStructuredLogger(ukernel.NewDefaultLogger(ukernel.LevelInfo))
//	// or, to exercise a real logiface sink:
//	ukernel.SetStructuredLogger(ukernel.NewLogifaceLogger(os.Stderr, ukernel.LevelInfo))
package ukernel

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

var globalLogger struct {
	sync.RWMutex
	logger Logger
}

// SetStructuredLogger sets the package-level global logger used by
// operations that were not constructed with an explicit WithLogger option.
func SetStructuredLogger(logger Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

// getGlobalLogger safely retrieves the global logger, falling back to a
// no-op implementation if none has been configured.
func getGlobalLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return noOpLogger{}
}

// LogLevel is the severity of a log entry.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// LogEntry is a structured record of one kernel event: a thread transition,
// an object create/delete, a priority change, a timer fire, a dispatch
// decision.
type LogEntry struct {
	Level     LogLevel
	Category  string // "dispatch", "mutex", "timer", "thread", "queue"
	ThreadID  int64
	ObjectID  int64
	Context   map[string]any
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the structured logging interface kernel components log through.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

type noOpLogger struct{}

func (noOpLogger) Log(LogEntry)          {}
func (noOpLogger) IsEnabled(LogLevel) bool { return false }

// DefaultLogger is a zero-dependency Logger writing line-oriented text to an
// *os.File, for use without wiring a logiface backend.
type DefaultLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	Out   *os.File
}

// NewDefaultLogger creates a DefaultLogger writing to os.Stdout at the given
// minimum level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	l := &DefaultLogger{Out: os.Stdout}
	l.level.Store(int32(level))
	return l
}

func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *DefaultLogger) IsEnabled(level LogLevel) bool {
	return level >= LogLevel(l.level.Load())
}

func (l *DefaultLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.Out, "%s [%s] %s thread=%d object=%d %s",
		entry.Timestamp.Format(time.RFC3339Nano), entry.Level, entry.Category,
		entry.ThreadID, entry.ObjectID, entry.Message)
	if entry.Err != nil {
		fmt.Fprintf(l.Out, " err=%v", entry.Err)
	}
	for k, v := range entry.Context {
		fmt.Fprintf(l.Out, " %s=%v", k, v)
	}
	fmt.Fprintln(l.Out)
}

// --- logiface adapter ---

// kernelEvent implements logiface.Event. It accumulates fields set by the
// modifier chain before the configured Writer formats and emits them.
type kernelEvent struct {
	logiface.UnimplementedEvent
	level   logiface.Level
	message string
	err     error
	fields  map[string]any
}

func (e *kernelEvent) Level() logiface.Level { return e.level }

func (e *kernelEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any, 4)
	}
	e.fields[key] = val
}

func (e *kernelEvent) AddMessage(msg string) bool {
	e.message = msg
	return true
}

func (e *kernelEvent) AddError(err error) bool {
	e.err = err
	return true
}

func (e *kernelEvent) AddString(key string, val string) bool {
	e.AddField(key, val)
	return true
}

func (e *kernelEvent) AddInt64(key string, val int64) bool {
	e.AddField(key, val)
	return true
}

func newKernelEvent(level logiface.Level) *kernelEvent {
	return &kernelEvent{level: level}
}

func kernelLevelToLogiface(level LogLevel) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// logifaceLogger adapts a real *logiface.Logger[*kernelEvent] to the
// kernel's Logger interface, so LogEntry values produced by kernel
// components flow through an actual logiface pipeline (and, transitively,
// whatever backend that pipeline was configured with) instead of a
// bespoke writer.
type logifaceLogger struct {
	min  LogLevel
	core *logiface.Logger[*kernelEvent]
}

// NewLogifaceLogger builds a Logger backed by a logiface.Logger writing
// line-oriented output to out. Swap the Writer passed to logiface.New for
// one of the pack's real backend adapters (logiface/logrus, logiface/zerolog)
// to route kernel events through those instead.
func NewLogifaceLogger(out *os.File, min LogLevel) Logger {
	core := logiface.New[*kernelEvent](
		logiface.WithLevel[*kernelEvent](kernelLevelToLogiface(min)),
		logiface.WithEventFactory[*kernelEvent](logiface.EventFactoryFunc[*kernelEvent](newKernelEvent)),
		logiface.WithWriter[*kernelEvent](logiface.WriterFunc[*kernelEvent](func(e *kernelEvent) error {
			_, err := fmt.Fprintf(out, "%s %s %v\n", e.level, e.message, e.fields)
			if e.err != nil {
				_, err = fmt.Fprintf(out, "  err=%v\n", e.err)
			}
			return err
		})),
	)
	return &logifaceLogger{min: min, core: core}
}

func (l *logifaceLogger) IsEnabled(level LogLevel) bool {
	return level >= l.min
}

func (l *logifaceLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	b := l.core.Build(kernelLevelToLogiface(entry.Level))
	if b == nil {
		return
	}
	b = b.Int64("thread_id", entry.ThreadID).
		Int64("object_id", entry.ObjectID).
		Str("category", entry.Category)
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	for k, v := range entry.Context {
		b = b.Str(k, fmt.Sprint(v))
	}
	b.Log(entry.Message)
}
