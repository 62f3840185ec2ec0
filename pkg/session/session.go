// Package session is the caller-facing entry point: it resolves selectors,
// waits for readiness and delivers classified failures, holding the state
// one test suite shares between its lookups.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/diagnostic"
	"github.com/devicelab-dev/uiresolve/pkg/logger"
	"github.com/devicelab-dev/uiresolve/pkg/resource"
	"github.com/devicelab-dev/uiresolve/pkg/selector"
	"github.com/devicelab-dev/uiresolve/pkg/wait"
)

// Session holds the default wait policy, delivery mode, collected failures
// and driver timeouts for one suite. It is meant for one goroutine at a time.
type Session struct {
	id         string
	driver     core.Driver
	root       *resource.Root
	engine     *wait.Engine
	classifier *diagnostic.Classifier
	reporter   *diagnostic.Reporter
	filter     diagnostic.TraceFilter

	mu       sync.RWMutex
	mobile   bool
	policy   wait.Policy
	timeouts core.Timeouts
}

// Option configures a Session.
type Option func(*Session)

// WithPolicy sets the initial default policy.
func WithPolicy(p wait.Policy) Option {
	return func(s *Session) { s.policy = p }
}

// WithMobile selects mobile selector inference.
func WithMobile(mobile bool) Option {
	return func(s *Session) { s.mobile = mobile }
}

// WithTimeouts sets the driver timeouts applied at creation.
func WithTimeouts(t core.Timeouts) Option {
	return func(s *Session) { s.timeouts = t }
}

// WithDeliveryMode sets the initial delivery mode.
func WithDeliveryMode(m diagnostic.DeliveryMode) Option {
	return func(s *Session) { s.reporter.SetMode(m) }
}

// WithClassifier replaces the classifier.
func WithClassifier(c *diagnostic.Classifier) Option {
	return func(s *Session) { s.classifier = c }
}

// WithTraceFilter sets the trace filter of the default classifier.
func WithTraceFilter(f diagnostic.TraceFilter) Option {
	return func(s *Session) { s.filter = f }
}

// WithEngine replaces the wait engine.
func WithEngine(e *wait.Engine) Option {
	return func(s *Session) { s.engine = e }
}

// New creates a session on d and applies its timeouts once.
func New(d core.Driver, opts ...Option) (*Session, error) {
	if d == nil {
		return nil, core.NewRecord(core.KindNullArgument, "driver must not be nil")
	}

	s := &Session{
		id:       uuid.NewString(),
		driver:   d,
		root:     resource.NewRoot(d),
		engine:   wait.NewEngine(),
		reporter: diagnostic.NewReporter(diagnostic.ThrowImmediately),
		filter:   diagnostic.DefaultTraceFilter(),
		mobile:   selector.MobileFromEnv(),
		policy:   wait.DefaultPolicy(),
		timeouts: core.DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.classifier == nil {
		s.classifier = diagnostic.NewClassifier(nil, s.filter)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default policy: %w", err)
	}
	if err := d.SetTimeouts(s.timeouts); err != nil {
		return nil, fmt.Errorf("failed to apply timeouts: %w", err)
	}

	s.log().WithFields(logrus.Fields{
		"policy":   s.policy.String(),
		"mobile":   s.mobile,
		"delivery": s.reporter.Mode().String(),
	}).Info("session started")
	return s, nil
}

// ID returns the session ID used in log lines.
func (s *Session) ID() string { return s.id }

// Driver returns the underlying driver.
func (s *Session) Driver() core.Driver { return s.driver }

// Root returns the document scope.
func (s *Session) Root() *resource.Root { return s.root }

// Mobile reports whether mobile selector inference is on.
func (s *Session) Mobile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mobile
}

// Lookups

// Find resolves text in the document and waits for r. p overrides the
// default policy. In CollectErrors mode a failure returns (nil, nil).
// A satisfied absence readiness with nothing attached also returns (nil, nil).
func (s *Session) Find(text string, r wait.Readiness, p ...wait.Policy) (*resource.Element, error) {
	sel, err := selector.Resolve(text, s.Mobile())
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	policy, err := s.policyFor(p)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	return s.lookup(s.root, sel, r, policy)
}

// FindIn is Find scoped to parent's subtree.
func (s *Session) FindIn(parent *resource.Element, text string, r wait.Readiness, p ...wait.Policy) (*resource.Element, error) {
	if parent == nil {
		return nil, s.fail(core.Errorf(core.KindNullArgument, "parent element must not be nil"),
			diagnostic.Context{Selector: text})
	}
	sel, err := selector.Resolve(text, s.Mobile())
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	policy, err := s.policyFor(p)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	return s.lookup(parent, sel, r, policy)
}

// FindAs is Find with an explicit strategy instead of inference.
func (s *Session) FindAs(kind selector.Kind, text string, r wait.Readiness, p ...wait.Policy) (*resource.Element, error) {
	sel, err := selector.ResolveAs(kind, text)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	policy, err := s.policyFor(p)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	return s.lookup(s.root, sel, r, policy)
}

// FindAll waits until at least one match is present, then returns every
// match in the document. With WaitThenFallback an empty result is not an
// error: the final lookup simply found nothing.
func (s *Session) FindAll(text string, p ...wait.Policy) ([]*resource.Element, error) {
	sel, err := selector.Resolve(text, s.Mobile())
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	policy, err := s.policyFor(p)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	return s.all(sel, policy)
}

// FindNth returns the index-th match (zero based) of text in the document.
func (s *Session) FindNth(text string, index int, p ...wait.Policy) (*resource.Element, error) {
	sel, err := selector.Resolve(text, s.Mobile())
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	policy, err := s.policyFor(p)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: text})
	}
	els, err := s.all(sel, policy)
	if err != nil || els == nil {
		return nil, err
	}
	if index < 0 || index >= len(els) {
		rec := core.NewRecord(core.KindInvalidIndex, "").
			WithDetails(map[string]interface{}{"index": index, "count": len(els)})
		return nil, s.fail(rec, diagnostic.Context{Selector: sel.Text(), Wait: waitOf(policy)})
	}
	return els[index], nil
}

func (s *Session) all(sel selector.Selector, p wait.Policy) ([]*resource.Element, error) {
	hs, err := s.engine.ResolveAll(s.root, sel, p)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: sel.Text(), Wait: waitOf(p), Readiness: wait.Present.String()})
	}
	els := make([]*resource.Element, len(hs))
	for i, h := range hs {
		els[i] = s.root.Within(h)
	}
	return els, nil
}

func (s *Session) lookup(ctx resource.Context, sel selector.Selector, r wait.Readiness, p wait.Policy) (*resource.Element, error) {
	log := s.log().WithFields(logrus.Fields{
		"selector":  sel.String(),
		"readiness": r.String(),
		"policy":    p.String(),
	})
	log.Debug("find")

	h, err := s.engine.Resolve(ctx, sel, r, p)
	if err != nil {
		return nil, s.fail(err, diagnostic.Context{Selector: sel.Text(), Wait: waitOf(p), Readiness: r.String()})
	}
	if h.IsZero() {
		log.Debug("satisfied with no element attached")
		return nil, nil
	}
	return ctx.Within(h), nil
}

// fail classifies err once and hands it to the reporter.
func (s *Session) fail(err error, c diagnostic.Context) error {
	return s.reporter.Deliver(s.classifier.Classify(err, c))
}

func (s *Session) log() *logrus.Entry {
	return logger.WithFields(logrus.Fields{"session": s.id})
}

func waitOf(p wait.Policy) time.Duration {
	if p.Mode == wait.Immediate {
		return 0
	}
	return p.Wait
}
