// Package resource provides the searchable scopes a selector is resolved against.
package resource

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/selector"
)

// Context is a scope that can be searched without waiting.
// FindOneCore fails with a raw driver error when nothing matches at the
// instant of the call. FindManyCore returns an empty slice instead.
type Context interface {
	FindOneCore(sel selector.Selector) (core.Handle, error)
	FindManyCore(sel selector.Selector) ([]core.Handle, error)

	// Within binds a handle found in this scope to an element scope.
	Within(h core.Handle) *Element

	// Describe names the scope for messages.
	Describe() string
}

// Root searches the whole document of a driver session.
type Root struct {
	driver core.Driver
}

// NewRoot creates a document-level scope.
func NewRoot(d core.Driver) *Root {
	return &Root{driver: d}
}

// FindOneCore finds the first match in the document.
func (r *Root) FindOneCore(sel selector.Selector) (core.Handle, error) {
	h, err := r.driver.FindElement(sel.Locator())
	if err != nil {
		return "", err
	}
	if h.IsZero() {
		return "", notFound("no element in document matches %s", sel)
	}
	return h, nil
}

// FindManyCore finds every match in the document.
func (r *Root) FindManyCore(sel selector.Selector) ([]core.Handle, error) {
	return r.driver.FindElements(sel.Locator())
}

// Within returns an element scope for h.
func (r *Root) Within(h core.Handle) *Element {
	return NewElement(r.driver, h)
}

// Describe names the scope.
func (r *Root) Describe() string {
	return "document"
}

// Element is a previously resolved element. It scopes searches to the
// element's subtree and exposes the state reads used as readiness checks.
type Element struct {
	driver core.Driver
	handle core.Handle
}

// NewElement binds h to an element scope.
func NewElement(d core.Driver, h core.Handle) *Element {
	return &Element{driver: d, handle: h}
}

// Handle returns the element's driver handle.
func (e *Element) Handle() core.Handle {
	return e.handle
}

// FindOneCore finds the first match under the element.
func (e *Element) FindOneCore(sel selector.Selector) (core.Handle, error) {
	h, err := e.driver.FindElementFrom(e.handle, sel.Locator())
	if err != nil {
		return "", err
	}
	if h.IsZero() {
		return "", notFound("no element under %s matches %s", e.handle, sel)
	}
	return h, nil
}

// FindManyCore finds every match under the element.
func (e *Element) FindManyCore(sel selector.Selector) ([]core.Handle, error) {
	return e.driver.FindElementsFrom(e.handle, sel.Locator())
}

// Within returns an element scope for h.
func (e *Element) Within(h core.Handle) *Element {
	return NewElement(e.driver, h)
}

// Describe names the scope.
func (e *Element) Describe() string {
	return "element " + string(e.handle)
}

// IsVisible reports whether the element is rendered visible.
func (e *Element) IsVisible() (bool, error) {
	return e.driver.IsDisplayed(e.handle)
}

// IsEnabled reports whether the element accepts interaction.
func (e *Element) IsEnabled() (bool, error) {
	return e.driver.IsEnabled(e.handle)
}

// Attribute returns an attribute value.
func (e *Element) Attribute(name string) (string, error) {
	return e.driver.Attribute(e.handle, name)
}

// TagName returns the element's tag name.
func (e *Element) TagName() (string, error) {
	return e.driver.TagName(e.handle)
}

// RequireTag fails with a bad-tag-name driver error unless the element is a
// tag element (case-insensitive), e.g. RequireTag("select") before choosing options.
func (e *Element) RequireTag(tag string) error {
	got, err := e.TagName()
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, tag) {
		return core.NewDriverError(core.KindBadTagName, "unexpected tag name",
			fmt.Sprintf("element should have been %q but was %q", tag, got))
	}
	return nil
}

func notFound(format string, args ...interface{}) error {
	return core.NewDriverError(core.KindNotFound, "no such element", fmt.Sprintf(format, args...))
}
