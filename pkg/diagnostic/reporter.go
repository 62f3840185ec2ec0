package diagnostic

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/logger"
)

// DeliveryMode decides what happens to a classified failure.
type DeliveryMode int

const (
	ThrowImmediately DeliveryMode = iota // Return the record to the caller
	CollectErrors                        // Keep the record and let the caller continue
)

// String returns the string representation of DeliveryMode
func (m DeliveryMode) String() string {
	switch m {
	case ThrowImmediately:
		return "throw"
	case CollectErrors:
		return "collect"
	default:
		return "unknown"
	}
}

// ParseDeliveryMode returns the mode named by s ("throw" or "collect").
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch strings.ToLower(s) {
	case "throw", "":
		return ThrowImmediately, nil
	case "collect":
		return CollectErrors, nil
	default:
		return ThrowImmediately, fmt.Errorf("unknown delivery mode %q", s)
	}
}

// Reporter delivers records and keeps the collected ones in raise order.
// It must be cleared between independent runs.
type Reporter struct {
	mu        sync.Mutex
	mode      DeliveryMode
	collected []*core.ExceptionRecord
}

// NewReporter creates a reporter in the given mode.
func NewReporter(mode DeliveryMode) *Reporter {
	return &Reporter{mode: mode}
}

// Deliver returns rec in ThrowImmediately mode. In CollectErrors mode it
// stores rec and returns nil.
func (r *Reporter) Deliver(rec *core.ExceptionRecord) error {
	if rec == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == CollectErrors {
		r.collected = append(r.collected, rec)
		logger.WithFields(logrus.Fields{
			"id":    rec.ID,
			"kind":  rec.Kind.String(),
			"count": len(r.collected),
		}).Warn("collected: " + rec.Error())
		return nil
	}
	return rec
}

// Collected returns a copy of the collected records.
func (r *Reporter) Collected() []*core.ExceptionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*core.ExceptionRecord(nil), r.collected...)
}

// Drain returns the collected records and clears the list.
func (r *Reporter) Drain() []*core.ExceptionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.collected
	r.collected = nil
	return out
}

// Clear discards the collected records.
func (r *Reporter) Clear() {
	r.mu.Lock()
	r.collected = nil
	r.mu.Unlock()
}

// SetMode switches the delivery mode. Already collected records are kept.
func (r *Reporter) SetMode(mode DeliveryMode) {
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()
}

// Mode returns the current delivery mode.
func (r *Reporter) Mode() DeliveryMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}
