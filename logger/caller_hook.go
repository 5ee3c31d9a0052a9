package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// loggingPrefixes are never reported as the caller.
var loggingPrefixes = []string{
	"github.com/sirupsen/logrus.",
	"atlas/logger.",
}

// plumbingPrefixes are skipped when a frame further up belongs to the code
// that asked for the work. The shared venue package logs on behalf of
// connectors, and its usage transport runs under net/http.
var plumbingPrefixes = []string{
	"atlas/internal/venue.",
	"net/http.",
	"runtime.",
}

func hasPrefix(fn string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(fn, p) {
			return true
		}
	}
	return false
}

// callerFrame picks the reported caller from frames ordered innermost first.
// A stream read loop has nothing above the venue package, so the first
// non-logging frame is kept as the fallback.
func callerFrame(frames []runtime.Frame) (runtime.Frame, bool) {
	var fallback *runtime.Frame
	for i := range frames {
		fn := frames[i].Function
		if fn == "" || hasPrefix(fn, loggingPrefixes) {
			continue
		}
		if !hasPrefix(fn, plumbingPrefixes) {
			return frames[i], true
		}
		if fallback == nil {
			fallback = &frames[i]
		}
	}
	if fallback == nil {
		return runtime.Frame{}, false
	}
	return *fallback, true
}

// callerHook points entry.Caller at the code that logged, past the logging
// and venue plumbing.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(4, pcs)
	it := runtime.CallersFrames(pcs[:n])
	var frames []runtime.Frame
	for {
		frame, more := it.Next()
		frames = append(frames, frame)
		if !more {
			break
		}
	}
	if frame, ok := callerFrame(frames); ok {
		entry.Caller = &frame
	}
	return nil
}
