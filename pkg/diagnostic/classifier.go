// Package diagnostic turns raw driver failures into classified exception
// records and delivers them according to the session's delivery mode.
package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/logger"
	"github.com/devicelab-dev/uiresolve/pkg/wait"
)

// Context is what the caller knew when the failure surfaced.
type Context struct {
	Selector  string
	Wait      time.Duration
	Readiness string
	Detail    string
	Args      map[string]string
}

// Classifier builds exception records from raw failures.
type Classifier struct {
	Templates *Templates
	Filter    TraceFilter
}

// NewClassifier creates a classifier. A nil table means DefaultTemplates.
func NewClassifier(t *Templates, f TraceFilter) *Classifier {
	if t == nil {
		t = DefaultTemplates()
	}
	return &Classifier{Templates: t, Filter: f}
}

// Classify returns the record for err, or nil when err is nil.
//
// A record already present in err is kept, gaining only the context and
// trace it lacks; its message is rendered once, the first time it is
// classified. A *wait.FallbackError is classified by its final failure; the
// discarded wait outcome is kept as Suppressed.
func (c *Classifier) Classify(err error, ctx Context) *core.ExceptionRecord {
	if err == nil {
		return nil
	}

	var suppressed error
	var fe *wait.FallbackError
	if errors.As(err, &fe) {
		suppressed = fe.Wait
		err = fe.Err
	}

	trace := CaptureTrace(1, c.Filter)

	var rec *core.ExceptionRecord
	if !errors.As(err, &rec) {
		rec = core.NewRecord(classifyRaw(err), "").WithCause(err)
	}
	rec = c.enrich(rec, ctx, trace)
	if suppressed != nil {
		rec = rec.WithSuppressed(suppressed)
	}

	logger.WithFields(logrus.Fields{
		"id":       rec.ID,
		"kind":     rec.Kind.String(),
		"family":   rec.Family().String(),
		"selector": rec.Selector,
	}).Debug(rec.Error())
	return rec
}

func (c *Classifier) enrich(rec *core.ExceptionRecord, ctx Context, trace []core.Frame) *core.ExceptionRecord {
	if rec.Selector == "" && ctx.Selector != "" {
		w := rec.Wait
		if w == 0 {
			w = ctx.Wait
		}
		rec = rec.WithSelector(ctx.Selector, w)
	}
	if rec.Trace == nil {
		rec = rec.WithTrace(trace)
	}
	if !rec.Rendered() {
		rec = c.render(rec, ctx)
	}
	return rec
}

// render fills the message from the kind's template. Detail is the caller's,
// else the record's own, else the driver's text of the cause.
func (c *Classifier) render(rec *core.ExceptionRecord, ctx Context) *core.ExceptionRecord {
	detail := ctx.Detail
	if detail == "" {
		detail = rec.Detail
	}
	if detail == "" && rec.Cause != nil {
		detail = rawDetail(rec.Cause)
	}
	msg := Message{
		Kind:     rec.Kind,
		Selector: rec.Selector,
		Wait:     rec.Wait,
		Detail:   detail,
		Args:     args(rec, ctx),
		Trace:    rec.Trace,
	}
	return rec.WithMessage(msg.Render(c.Templates), detail)
}

// rawDetail is the driver's own message for err.
func rawDetail(err error) string {
	var de *core.DriverError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// classifyRaw maps a failure that carries no record to its kind.
func classifyRaw(err error) core.Kind {
	var de *core.DriverError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return core.KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return core.KindTimeout
	}
	return core.KindUnknown
}

// args merges the record's details with the caller's named fields; the
// caller wins.
func args(rec *core.ExceptionRecord, ctx Context) map[string]string {
	out := make(map[string]string, len(rec.Details)+len(ctx.Args)+1)
	for k, v := range rec.Details {
		out[k] = fmt.Sprint(v)
	}
	for k, v := range ctx.Args {
		out[k] = v
	}
	if ctx.Readiness != "" {
		out["readiness"] = ctx.Readiness
	}
	return out
}
