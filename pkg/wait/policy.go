// Package wait resolves selectors against a resource scope under a bounded
// readiness wait.
package wait

import (
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

// Mode selects how a lookup may block.
type Mode int

const (
	Immediate        Mode = iota // One core call, no waiting
	WaitThenFail                 // Poll the readiness check, fail with a timeout
	WaitThenFallback             // Poll the readiness check, then attempt the core call regardless
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case WaitThenFail:
		return "wait-then-fail"
	case WaitThenFallback:
		return "wait-then-fallback"
	default:
		return "unknown"
	}
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	for m := Immediate; m <= WaitThenFallback; m++ {
		if strings.EqualFold(m.String(), s) {
			return m, nil
		}
	}
	return Immediate, fmt.Errorf("unknown wait mode %q", s)
}

// Readiness is the condition that must hold before the core call.
type Readiness int

const (
	Present           Readiness = iota // Attached to the document
	AbsentOrInvisible                  // Not attached, or attached but not displayed
	Visible                            // Attached and displayed
	Invisible                          // Attached but not displayed
	Editable                           // Displayed and enabled
)

// String returns the string representation of Readiness
func (r Readiness) String() string {
	switch r {
	case Present:
		return "present"
	case AbsentOrInvisible:
		return "absent-or-invisible"
	case Visible:
		return "visible"
	case Invisible:
		return "invisible"
	case Editable:
		return "editable"
	default:
		return "unknown"
	}
}

// ParseReadiness returns the Readiness named by s.
func ParseReadiness(s string) (Readiness, error) {
	for r := Present; r <= Editable; r++ {
		if strings.EqualFold(r.String(), s) {
			return r, nil
		}
	}
	return Present, fmt.Errorf("unknown readiness %q", s)
}

// expectsAbsence reports whether the readiness is satisfied by elements that
// cannot be interacted with, so the core call must not require a match.
func (r Readiness) expectsAbsence() bool {
	return r == AbsentOrInvisible || r == Invisible
}

// Policy bounds how long and how often a lookup polls.
// Immediate policies never read Wait or Poll.
type Policy struct {
	Mode Mode
	Wait time.Duration
	Poll time.Duration
}

// Policy defaults and limits.
const (
	DefaultWait = 10 * time.Second
	DefaultPoll = 250 * time.Millisecond
	MinPoll     = 10 * time.Millisecond
)

// DefaultPolicy returns the library default: wait up to DefaultWait,
// polling every DefaultPoll, then fail.
func DefaultPolicy() Policy {
	return Policy{Mode: WaitThenFail, Wait: DefaultWait, Poll: DefaultPoll}
}

// Immediately returns a policy that never waits.
func Immediately() Policy {
	return Policy{Mode: Immediate}
}

// FailAfter returns a WaitThenFail policy.
func FailAfter(wait, poll time.Duration) Policy {
	return Policy{Mode: WaitThenFail, Wait: wait, Poll: poll}
}

// FallbackAfter returns a WaitThenFallback policy.
func FallbackAfter(wait, poll time.Duration) Policy {
	return Policy{Mode: WaitThenFallback, Wait: wait, Poll: poll}
}

// Validate rejects policies that cannot be honoured. Failures are
// unrendered null_argument records.
func (p Policy) Validate() error {
	if p.Mode < Immediate || p.Mode > WaitThenFallback {
		return core.Errorf(core.KindNullArgument, "unknown wait mode %d", p.Mode)
	}
	if p.Mode == Immediate {
		return nil
	}
	if p.Wait < 0 {
		return core.Errorf(core.KindNullArgument, "negative wait: %v", p.Wait)
	}
	if p.Poll < 0 {
		return core.Errorf(core.KindNullArgument, "negative poll interval: %v", p.Poll)
	}
	return nil
}

// normalized fills a zero poll interval, clamps tiny intervals to MinPoll
// and never polls less often than once per wait.
func (p Policy) normalized() Policy {
	if p.Mode == Immediate {
		return p
	}
	if p.Wait < 0 {
		p.Wait = 0
	}
	if p.Poll <= 0 {
		p.Poll = DefaultPoll
	}
	if p.Poll < MinPoll {
		p.Poll = MinPoll
	}
	if p.Wait > 0 && p.Poll > p.Wait {
		p.Poll = p.Wait
	}
	return p
}

// String describes the policy for logs and messages.
func (p Policy) String() string {
	if p.Mode == Immediate {
		return p.Mode.String()
	}
	return fmt.Sprintf("%s(wait=%v, poll=%v)", p.Mode, p.Wait, p.Poll)
}
