package session

import (
	"fmt"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/diagnostic"
	"github.com/devicelab-dev/uiresolve/pkg/wait"
)

// Default policy

// DefaultPolicy returns the policy used when a lookup passes none.
func (s *Session) DefaultPolicy() wait.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetDefaultPolicy replaces the default policy. An invalid policy is
// rejected with an internal record, whatever the delivery mode.
func (s *Session) SetDefaultPolicy(p wait.Policy) error {
	if err := p.Validate(); err != nil {
		return s.classifier.Classify(err, diagnostic.Context{})
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	s.log().Debugf("default policy set to %s", p)
	return nil
}

// ResetDefaultPolicy restores wait.DefaultPolicy.
func (s *Session) ResetDefaultPolicy() {
	s.mu.Lock()
	s.policy = wait.DefaultPolicy()
	s.mu.Unlock()
}

// policyFor returns the per-call override, validated, or the default.
func (s *Session) policyFor(p []wait.Policy) (wait.Policy, error) {
	if len(p) == 0 {
		return s.DefaultPolicy(), nil
	}
	if err := p[0].Validate(); err != nil {
		return p[0], err
	}
	return p[0], nil
}

// Delivery

// SetDeliveryMode switches between throwing and collecting failures.
func (s *Session) SetDeliveryMode(m diagnostic.DeliveryMode) {
	s.reporter.SetMode(m)
	s.log().Debugf("delivery mode set to %s", m)
}

// DeliveryMode returns the current delivery mode.
func (s *Session) DeliveryMode() diagnostic.DeliveryMode {
	return s.reporter.Mode()
}

// CollectedExceptions returns the records collected so far, in raise order.
func (s *Session) CollectedExceptions() []*core.ExceptionRecord {
	return s.reporter.Collected()
}

// ClearCollectedExceptions empties the collected list. Call it between
// independent runs.
func (s *Session) ClearCollectedExceptions() {
	s.reporter.Clear()
}

// DrainCollectedExceptions returns the collected records and empties the list.
func (s *Session) DrainCollectedExceptions() []*core.ExceptionRecord {
	return s.reporter.Drain()
}

// Timeouts

// Timeouts returns the driver timeouts last applied.
func (s *Session) Timeouts() core.Timeouts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeouts
}

// ResetTimeouts re-applies core.DefaultTimeouts to the driver.
func (s *Session) ResetTimeouts() error {
	t := core.DefaultTimeouts()
	if err := s.driver.SetTimeouts(t); err != nil {
		return fmt.Errorf("failed to reset timeouts: %w", err)
	}
	s.mu.Lock()
	s.timeouts = t
	s.mu.Unlock()
	return nil
}
