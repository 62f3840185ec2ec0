package wait

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/logger"
	"github.com/devicelab-dev/uiresolve/pkg/resource"
	"github.com/devicelab-dev/uiresolve/pkg/selector"
)

// FallbackError is returned by WaitThenFallback when the wait phase did not
// succeed and the forced core call failed as well. It unwraps to the core
// call's failure; Wait keeps the discarded wait-phase outcome.
type FallbackError struct {
	Wait error
	Err  error
}

// Error implements the error interface
func (e *FallbackError) Error() string {
	return fmt.Sprintf("%v (after wait phase: %v)", e.Err, e.Wait)
}

// Unwrap returns the core call failure for errors.Is/As support
func (e *FallbackError) Unwrap() error {
	return e.Err
}

// Engine polls readiness checks. Sleep and Now may be replaced to drive the
// engine from a fake clock; nil means the wall clock.
type Engine struct {
	Sleep func(time.Duration)
	Now   func() time.Time
}

// NewEngine creates an engine on the wall clock.
func NewEngine() *Engine {
	return &Engine{Sleep: time.Sleep, Now: time.Now}
}

// Resolve waits for sel to satisfy r in ctx according to p, then performs one
// core call and returns its result.
//
// Failures of the core call are returned raw. A WaitThenFail deadline yields
// a KindTimeout *core.ExceptionRecord. WaitThenFallback never reports the wait
// phase on its own: if the core call also fails, the result is a *FallbackError.
func (e *Engine) Resolve(ctx resource.Context, sel selector.Selector, r Readiness, p Policy) (core.Handle, error) {
	if ctx == nil {
		return "", core.Errorf(core.KindNullArgument, "resource context must not be nil")
	}
	if sel.IsZero() {
		return "", core.Errorf(core.KindNullArgument, "selector must not be empty")
	}

	switch p.Mode {
	case Immediate:
		return e.coreCall(ctx, sel, r)

	case WaitThenFail:
		if err := e.await(ctx, sel, r, p); err != nil {
			return "", err
		}
		return e.coreCall(ctx, sel, r)

	case WaitThenFallback:
		waitErr := e.await(ctx, sel, r, p)
		h, err := e.coreCall(ctx, sel, r)
		if err != nil && waitErr != nil {
			logger.WithFields(logrus.Fields{
				"selector": sel.String(),
				"scope":    ctx.Describe(),
			}).Warnf("wait phase failed before forced attempt: %v", waitErr)
			return "", &FallbackError{Wait: waitErr, Err: err}
		}
		if waitErr != nil {
			logger.Debug("proceeding with %s after wait phase: %v", sel, waitErr)
		}
		return h, err

	default:
		return "", core.Errorf(core.KindNullArgument, "unknown wait mode %d", p.Mode)
	}
}

// ResolveAll waits until at least one match of sel is present, then makes
// one FindManyCore call. With WaitThenFallback the final call's result is
// returned as is, so an empty slice with no error means nothing matched
// even after the wait.
func (e *Engine) ResolveAll(ctx resource.Context, sel selector.Selector, p Policy) ([]core.Handle, error) {
	if ctx == nil {
		return nil, core.Errorf(core.KindNullArgument, "resource context must not be nil")
	}
	if sel.IsZero() {
		return nil, core.Errorf(core.KindNullArgument, "selector must not be empty")
	}

	var waitErr error
	switch p.Mode {
	case Immediate:
	case WaitThenFail:
		if err := e.await(ctx, sel, Present, p); err != nil {
			return nil, err
		}
	case WaitThenFallback:
		waitErr = e.await(ctx, sel, Present, p)
	default:
		return nil, core.Errorf(core.KindNullArgument, "unknown wait mode %d", p.Mode)
	}

	hs, err := ctx.FindManyCore(sel)
	if err != nil && waitErr != nil {
		return nil, &FallbackError{Wait: waitErr, Err: err}
	}
	if waitErr != nil {
		logger.Debug("proceeding with %s after wait phase: %v", sel, waitErr)
	}
	return hs, err
}

// deadlineBackOff clamps each interval of the wrapped BackOff to the time left
// before the deadline and stops once the deadline has passed.
type deadlineBackOff struct {
	backoff.BackOff
	deadline time.Time
	now      func() time.Time
}

func (b *deadlineBackOff) NextBackOff() time.Duration {
	remaining := b.deadline.Sub(b.now())
	if remaining <= 0 {
		return backoff.Stop
	}
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if next > remaining {
		next = remaining
	}
	return next
}

// await polls the readiness check at a fixed interval until it holds or the
// wait elapses. Not-found and stale failures count as "not yet"; any other
// driver failure ends the wait.
func (e *Engine) await(ctx resource.Context, sel selector.Selector, r Readiness, p Policy) error {
	p = p.normalized()
	start := e.now()
	schedule := &deadlineBackOff{
		BackOff:  backoff.NewConstantBackOff(p.Poll),
		deadline: start.Add(p.Wait),
		now:      e.now,
	}
	schedule.Reset()

	log := logger.WithFields(logrus.Fields{
		"selector":  sel.String(),
		"readiness": r.String(),
		"scope":     ctx.Describe(),
	})

	for attempt := 1; ; attempt++ {
		ok, err := e.check(ctx, sel, r)
		if err != nil {
			if !core.IsTransient(err) {
				log.Debugf("attempt %d: %v", attempt, err)
				return err
			}
			ok = false
		}
		if ok {
			log.Debugf("ready after %d attempts in %v", attempt, e.now().Sub(start))
			return nil
		}

		next := schedule.NextBackOff()
		if next == backoff.Stop {
			log.Warnf("timed out after %d attempts (%v)", attempt, p.Wait)
			return core.NewRecord(core.KindTimeout, "").
				WithSelector(sel.Text(), p.Wait).
				WithDetails(map[string]interface{}{"readiness": r.String()}).
				WithCause(err)
		}
		e.sleep(next)
	}
}

// check evaluates the readiness predicate once.
func (e *Engine) check(ctx resource.Context, sel selector.Selector, r Readiness) (bool, error) {
	switch r {
	case AbsentOrInvisible:
		hs, err := ctx.FindManyCore(sel)
		if err != nil {
			return false, err
		}
		for _, h := range hs {
			visible, err := ctx.Within(h).IsVisible()
			if core.IsKind(err, core.KindStaleReference) {
				continue
			}
			if err != nil {
				return false, err
			}
			if visible {
				return false, nil
			}
		}
		return true, nil
	}

	h, err := ctx.FindOneCore(sel)
	if err != nil {
		return false, err
	}
	el := ctx.Within(h)

	switch r {
	case Present:
		return true, nil
	case Visible:
		return el.IsVisible()
	case Invisible:
		visible, err := el.IsVisible()
		return !visible && err == nil, err
	case Editable:
		visible, err := el.IsVisible()
		if err != nil || !visible {
			return false, err
		}
		return el.IsEnabled()
	default:
		return false, core.Errorf(core.KindNullArgument, "unknown readiness %d", r)
	}
}

// coreCall is the single unwaited lookup made after the wait phase.
// Absence readiness uses FindManyCore and may return a zero handle.
func (e *Engine) coreCall(ctx resource.Context, sel selector.Selector, r Readiness) (core.Handle, error) {
	if r.expectsAbsence() {
		hs, err := ctx.FindManyCore(sel)
		if err != nil || len(hs) == 0 {
			return "", err
		}
		return hs[0], nil
	}
	return ctx.FindOneCore(sel)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) sleep(d time.Duration) {
	if e.Sleep != nil {
		e.Sleep(d)
		return
	}
	time.Sleep(d)
}

var defaultEngine = NewEngine()

// Resolve uses a wall-clock engine.
func Resolve(ctx resource.Context, sel selector.Selector, r Readiness, p Policy) (core.Handle, error) {
	return defaultEngine.Resolve(ctx, sel, r, p)
}

// ResolveAll uses a wall-clock engine.
func ResolveAll(ctx resource.Context, sel selector.Selector, p Policy) ([]core.Handle, error) {
	return defaultEngine.ResolveAll(ctx, sel, p)
}
