package core

import (
	"time"
)

// Handle is an opaque reference to a live remote element.
type Handle string

// IsZero reports whether the handle refers to nothing.
func (h Handle) IsZero() bool {
	return h == ""
}

// Locator is a driver-level lookup: a strategy name and its value.
type Locator struct {
	Using string `json:"using"`
	Value string `json:"value"`
}

// Locator strategies understood by W3C and mobile drivers.
const (
	UsingCSS             = "css selector"
	UsingXPath           = "xpath"
	UsingID              = "id"
	UsingName            = "name"
	UsingLinkText        = "link text"
	UsingPartialLinkText = "partial link text"
	UsingTagName         = "tag name"
	UsingClassName       = "class name"
)

// Driver defines the primitives consumed from the automation driver.
// None of the find methods wait: they fail with a *DriverError of
// KindNotFound when nothing matches at the instant of the call.
// Implementations: webdriver.Client, mock.Driver.
type Driver interface {
	// Root-scope lookups
	FindElement(loc Locator) (Handle, error)
	FindElements(loc Locator) ([]Handle, error)

	// Subtree lookups scoped to a previously resolved element
	FindElementFrom(parent Handle, loc Locator) (Handle, error)
	FindElementsFrom(parent Handle, loc Locator) ([]Handle, error)

	// Element state
	IsDisplayed(h Handle) (bool, error)
	IsEnabled(h Handle) (bool, error)
	Attribute(h Handle, name string) (string, error)
	TagName(h Handle) (string, error)

	// Session-level ceilings for failures a poll loop cannot observe
	SetTimeouts(t Timeouts) error
}

// Timeouts is the session-wide ceiling applied to the driver's own
// script and page-load timeouts. It is independent of any wait policy.
type Timeouts struct {
	Script   time.Duration `json:"script" yaml:"script"`
	PageLoad time.Duration `json:"pageLoad" yaml:"pageLoad"`
}

// Default session timeouts (match the W3C WebDriver defaults).
const (
	DefaultScriptTimeout   = 30 * time.Second
	DefaultPageLoadTimeout = 300 * time.Second
)

// DefaultTimeouts returns the documented default ceiling.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Script:   DefaultScriptTimeout,
		PageLoad: DefaultPageLoadTimeout,
	}
}
