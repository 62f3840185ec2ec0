package diagnostic

import (
	"runtime"
	"strings"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

const modulePath = "github.com/devicelab-dev/uiresolve"

// Frames from these are never part of a trace.
var alwaysHidden = []string{"runtime.", "testing.", "reflect."}

// TraceFilter selects which stack frames a trace keeps. A frame is kept when
// its function matches an Include prefix (or Include is empty) and no
// Exclude prefix.
type TraceFilter struct {
	Include []string
	Exclude []string
}

// DefaultTraceFilter keeps frames of this module, of main and of the given
// prefixes, and hides this library's own packages.
func DefaultTraceFilter(include ...string) TraceFilter {
	pkgs := []string{"core", "diagnostic", "driver/mock", "resource", "selector", "session", "wait", "webdriver"}
	exclude := make([]string, len(pkgs))
	for i, p := range pkgs {
		exclude[i] = modulePath + "/pkg/" + p + "."
	}
	return TraceFilter{
		Include: append([]string{modulePath + "/", "main."}, include...),
		Exclude: exclude,
	}
}

func (f TraceFilter) keep(function string) bool {
	for _, p := range alwaysHidden {
		if strings.HasPrefix(function, p) {
			return false
		}
	}
	for _, p := range f.Exclude {
		if strings.HasPrefix(function, p) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if strings.HasPrefix(function, p) {
			return true
		}
	}
	return false
}

// CaptureTrace returns the caller's stack, filtered. skip=0 starts at the
// function calling CaptureTrace.
func CaptureTrace(skip int, f TraceFilter) []core.Frame {
	const maxDepth = 64
	var pcs [maxDepth]uintptr

	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return nil
	}

	var out []core.Frame
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && f.keep(frame.Function) {
			out = append(out, core.Frame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return out
}
