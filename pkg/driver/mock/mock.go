// Package mock provides a scripted driver for testing without a real browser or device.
package mock

import (
	"sync"
	"time"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

// Element scripts one remote element. Times are measured from driver
// creation (or the last Restart).
type Element struct {
	ID      string
	Parent  core.Handle // "" = document root
	Locator core.Locator
	Tag     string
	Attrs   map[string]string

	AppearAfter    time.Duration // present from this moment
	DisappearAfter time.Duration // 0 = never removed
	VisibleAfter   time.Duration // displayed from this moment
	Hidden         bool          // never displayed
	EnabledAfter   time.Duration // enabled from this moment
	Disabled       bool          // never enabled

	// StaleReads makes the first N state reads of this element fail with a
	// stale reference, as if the page re-rendered it.
	StaleReads int

	// FindErr is returned by any lookup matching this element.
	FindErr error
}

// Config configures mock driver behavior.
type Config struct {
	Elements []Element
	// Clock overrides time.Now
	Clock func() time.Time
	// TimeoutsErr makes SetTimeouts fail
	TimeoutsErr error
}

// Driver is a mock implementation of core.Driver for testing.
type Driver struct {
	mu       sync.Mutex
	elements []*Element
	clock    func() time.Time
	start    time.Time
	calls    map[string]int
	timeouts []core.Timeouts
	cfg      Config
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	d := &Driver{
		clock: clock,
		start: clock(),
		calls: make(map[string]int),
		cfg:   cfg,
	}
	for i := range cfg.Elements {
		el := cfg.Elements[i]
		d.elements = append(d.elements, &el)
	}
	return d
}

// Add scripts another element.
func (d *Driver) Add(el Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = append(d.elements, &el)
}

// Restart resets the script clock and call counters.
func (d *Driver) Restart() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.start = d.clock()
	d.calls = make(map[string]int)
}

// Calls returns how many times method was invoked.
func (d *Driver) Calls(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[method]
}

// AppliedTimeouts returns every Timeouts value passed to SetTimeouts.
func (d *Driver) AppliedTimeouts() []core.Timeouts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]core.Timeouts(nil), d.timeouts...)
}

// FindElement implements core.Driver.
func (d *Driver) FindElement(loc core.Locator) (core.Handle, error) {
	return d.findOne("FindElement", "", loc)
}

// FindElements implements core.Driver.
func (d *Driver) FindElements(loc core.Locator) ([]core.Handle, error) {
	return d.findMany("FindElements", "", loc)
}

// FindElementFrom implements core.Driver.
func (d *Driver) FindElementFrom(parent core.Handle, loc core.Locator) (core.Handle, error) {
	return d.findOne("FindElementFrom", parent, loc)
}

// FindElementsFrom implements core.Driver.
func (d *Driver) FindElementsFrom(parent core.Handle, loc core.Locator) ([]core.Handle, error) {
	return d.findMany("FindElementsFrom", parent, loc)
}

// IsDisplayed implements core.Driver.
func (d *Driver) IsDisplayed(h core.Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["IsDisplayed"]++

	el, elapsed, err := d.stateLocked(h)
	if err != nil {
		return false, err
	}
	return !el.Hidden && elapsed >= el.VisibleAfter, nil
}

// IsEnabled implements core.Driver.
func (d *Driver) IsEnabled(h core.Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["IsEnabled"]++

	el, elapsed, err := d.stateLocked(h)
	if err != nil {
		return false, err
	}
	return !el.Disabled && elapsed >= el.EnabledAfter, nil
}

// Attribute implements core.Driver.
func (d *Driver) Attribute(h core.Handle, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["Attribute"]++

	el, _, err := d.stateLocked(h)
	if err != nil {
		return "", err
	}
	return el.Attrs[name], nil
}

// TagName implements core.Driver.
func (d *Driver) TagName(h core.Handle) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["TagName"]++

	el, _, err := d.stateLocked(h)
	if err != nil {
		return "", err
	}
	return el.Tag, nil
}

// SetTimeouts implements core.Driver.
func (d *Driver) SetTimeouts(t core.Timeouts) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["SetTimeouts"]++

	if d.cfg.TimeoutsErr != nil {
		return d.cfg.TimeoutsErr
	}
	d.timeouts = append(d.timeouts, t)
	return nil
}

func (d *Driver) findOne(method string, parent core.Handle, loc core.Locator) (core.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[method]++

	matches, err := d.matchLocked(parent, loc)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", core.NewDriverError(core.KindNotFound, "no such element",
			"Unable to locate element: "+loc.Using+"="+loc.Value)
	}
	return matches[0], nil
}

func (d *Driver) findMany(method string, parent core.Handle, loc core.Locator) ([]core.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[method]++

	return d.matchLocked(parent, loc)
}

func (d *Driver) matchLocked(parent core.Handle, loc core.Locator) ([]core.Handle, error) {
	elapsed := d.clock().Sub(d.start)
	matches := []core.Handle{}
	for _, el := range d.elements {
		if el.Parent != parent || el.Locator != loc || !present(el, elapsed) {
			continue
		}
		if el.FindErr != nil {
			return nil, el.FindErr
		}
		matches = append(matches, core.Handle(el.ID))
	}
	return matches, nil
}

func (d *Driver) stateLocked(h core.Handle) (*Element, time.Duration, error) {
	elapsed := d.clock().Sub(d.start)
	for _, el := range d.elements {
		if core.Handle(el.ID) != h {
			continue
		}
		if el.StaleReads > 0 || !present(el, elapsed) {
			if el.StaleReads > 0 {
				el.StaleReads--
			}
			return nil, elapsed, core.NewDriverError(core.KindStaleReference, "stale element reference",
				"element "+el.ID+" is not attached to the page document")
		}
		return el, elapsed, nil
	}
	return nil, elapsed, core.NewDriverError(core.KindStaleReference, "stale element reference",
		"unknown element "+string(h))
}

func present(el *Element, elapsed time.Duration) bool {
	if elapsed < el.AppearAfter {
		return false
	}
	return el.DisappearAfter == 0 || elapsed < el.DisappearAfter
}
