package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DriverError is a raw failure reported by the automation driver, already
// tagged with its Kind by the driver layer.
type DriverError struct {
	Kind    Kind
	Code    string // Driver-native code, e.g. "no such element"
	Message string // Driver-native message
	Status  int    // Transport status, 0 if not applicable
	Err     error  // Underlying transport error
}

// Error implements the error interface
func (e *DriverError) Error() string {
	code := e.Code
	if code == "" {
		code = e.Kind.String()
	}
	if e.Message == "" {
		return code
	}
	return fmt.Sprintf("%s: %s", code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DriverError) Unwrap() error {
	return e.Err
}

// NewDriverError creates a DriverError of the given kind.
func NewDriverError(kind Kind, code, message string) *DriverError {
	return &DriverError{Kind: kind, Code: code, Message: message}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var rec *ExceptionRecord
	if errors.As(err, &rec) {
		return rec.Kind
	}
	var de *DriverError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is a driver failure that polling may outlive.
func IsTransient(err error) bool {
	var de *DriverError
	if !errors.As(err, &de) {
		return false
	}
	return de.Kind.Transient()
}

// Frame is one retained line of a filtered call stack.
type Frame struct {
	Function string
	File     string
	Line     int
}

// String formats the frame on a single line.
func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// ExceptionRecord is a classified failure. Internal and Public families share
// this type so callers can catch either with errors.As.
type ExceptionRecord struct {
	ID         string
	Kind       Kind
	Message    string        // Rendered, human-readable message; empty until classified
	Detail     string        // Raw failure text the message was rendered from
	Selector   string        // Selector text, if the failure came from a lookup
	Wait       time.Duration // Configured wait, if the failure came from a wait
	Cause      error         // Underlying raw failure
	Suppressed error         // Failure that was discarded in favour of Cause
	Trace      []Frame
	Details    map[string]interface{}
}

// NewRecord creates an ExceptionRecord with a fresh ID. An empty message
// leaves the record unrendered.
func NewRecord(kind Kind, message string) *ExceptionRecord {
	return &ExceptionRecord{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: message,
	}
}

// Errorf creates an unrendered record whose detail is the formatted text.
// The classifier renders its message from the kind's template.
func Errorf(kind Kind, format string, args ...interface{}) *ExceptionRecord {
	return &ExceptionRecord{
		ID:     uuid.NewString(),
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Rendered reports whether the record's message has been filled in.
func (r *ExceptionRecord) Rendered() bool {
	return r.Message != ""
}

// Family returns the severity family derived from the kind.
func (r *ExceptionRecord) Family() Family {
	return r.Kind.Family()
}

// Internal reports whether the record indicates a defect in calling code.
func (r *ExceptionRecord) Internal() bool {
	return r.Family() == FamilyInternal
}

// Error implements the error interface. The cause is appended unless its
// text already went into the message as Detail.
func (r *ExceptionRecord) Error() string {
	msg := r.Message
	if msg == "" {
		msg = r.Kind.String()
		if r.Detail != "" {
			msg += ": " + r.Detail
		}
	}
	if r.Cause != nil && r.Detail == "" {
		return fmt.Sprintf("%s: %v", msg, r.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support
func (r *ExceptionRecord) Unwrap() error {
	return r.Cause
}

// Report returns the message followed by the suppressed failure and the trace,
// one frame per line.
func (r *ExceptionRecord) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s/%s] %s", r.Family(), r.Kind, r.Error())
	if r.Suppressed != nil {
		fmt.Fprintf(&b, "\n  suppressed: %v", r.Suppressed)
	}
	for _, f := range r.Trace {
		b.WriteString("\n    at ")
		b.WriteString(f.String())
	}
	return b.String()
}

// WithCause returns a copy of the record with the given cause
func (r *ExceptionRecord) WithCause(cause error) *ExceptionRecord {
	c := r.clone()
	c.Cause = cause
	return c
}

// WithSuppressed returns a copy of the record carrying a discarded failure
func (r *ExceptionRecord) WithSuppressed(err error) *ExceptionRecord {
	c := r.clone()
	c.Suppressed = err
	return c
}

// WithSelector returns a copy of the record with selector context
func (r *ExceptionRecord) WithSelector(text string, wait time.Duration) *ExceptionRecord {
	c := r.clone()
	c.Selector = text
	c.Wait = wait
	return c
}

// WithMessage returns a copy of the record with a rendered message and the
// detail it was rendered from
func (r *ExceptionRecord) WithMessage(message, detail string) *ExceptionRecord {
	c := r.clone()
	c.Message = message
	c.Detail = detail
	return c
}

// WithTrace returns a copy of the record with the given stack trace
func (r *ExceptionRecord) WithTrace(frames []Frame) *ExceptionRecord {
	c := r.clone()
	c.Trace = frames
	return c
}

// WithDetails returns a copy of the record with additional details
func (r *ExceptionRecord) WithDetails(details map[string]interface{}) *ExceptionRecord {
	merged := make(map[string]interface{}, len(r.Details)+len(details))
	for k, v := range r.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	c := r.clone()
	c.Details = merged
	return c
}

func (r *ExceptionRecord) clone() *ExceptionRecord {
	c := *r
	return &c
}

// IsKind reports whether err is, or wraps, a record or driver failure of kind k.
func IsKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == k
}
