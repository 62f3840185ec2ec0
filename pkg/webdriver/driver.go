package webdriver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

var _ core.Driver = (*Client)(nil)

// Element Operations

// FindElement implements core.Driver.
func (c *Client) FindElement(loc core.Locator) (core.Handle, error) {
	return c.findOne(c.sessionPath()+"/element", loc)
}

// FindElements implements core.Driver.
func (c *Client) FindElements(loc core.Locator) ([]core.Handle, error) {
	return c.findMany(c.sessionPath()+"/elements", loc)
}

// FindElementFrom implements core.Driver.
func (c *Client) FindElementFrom(parent core.Handle, loc core.Locator) (core.Handle, error) {
	return c.findOne(c.elementPath(parent)+"/element", loc)
}

// FindElementsFrom implements core.Driver.
func (c *Client) FindElementsFrom(parent core.Handle, loc core.Locator) ([]core.Handle, error) {
	return c.findMany(c.elementPath(parent)+"/elements", loc)
}

// IsDisplayed implements core.Driver.
func (c *Client) IsDisplayed(h core.Handle) (bool, error) {
	resp, err := c.get(c.elementPath(h) + "/displayed")
	if err != nil {
		return false, err
	}
	displayed, _ := resp["value"].(bool)
	return displayed, nil
}

// IsEnabled implements core.Driver.
func (c *Client) IsEnabled(h core.Handle) (bool, error) {
	resp, err := c.get(c.elementPath(h) + "/enabled")
	if err != nil {
		return false, err
	}
	enabled, _ := resp["value"].(bool)
	return enabled, nil
}

// Attribute implements core.Driver. A missing attribute reads as "".
func (c *Client) Attribute(h core.Handle, name string) (string, error) {
	resp, err := c.get(c.elementPath(h) + "/attribute/" + url.PathEscape(name))
	if err != nil {
		return "", err
	}
	value, _ := resp["value"].(string)
	return value, nil
}

// TagName implements core.Driver.
func (c *Client) TagName(h core.Handle) (string, error) {
	resp, err := c.get(c.elementPath(h) + "/name")
	if err != nil {
		return "", err
	}
	name, _ := resp["value"].(string)
	return name, nil
}

// Timeouts

// SetTimeouts implements core.Driver.
func (c *Client) SetTimeouts(t core.Timeouts) error {
	_, err := c.post(c.sessionPath()+"/timeouts", map[string]interface{}{
		"script":   t.Script.Milliseconds(),
		"pageLoad": t.PageLoad.Milliseconds(),
	})
	return err
}

func (c *Client) findOne(path string, loc core.Locator) (core.Handle, error) {
	resp, err := c.post(path, c.locatorBody(loc))
	if err != nil {
		return "", err
	}

	elemValue, ok := resp["value"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid element response for %s=%s", loc.Using, loc.Value)
	}
	id := extractElementID(elemValue)
	if id == "" {
		return "", fmt.Errorf("no element id in response for %s=%s", loc.Using, loc.Value)
	}
	return core.Handle(id), nil
}

func (c *Client) findMany(path string, loc core.Locator) ([]core.Handle, error) {
	resp, err := c.post(path, c.locatorBody(loc))
	if err != nil {
		return nil, err
	}

	handles := []core.Handle{}
	values, _ := resp["value"].([]interface{})
	for _, v := range values {
		if elem, ok := v.(map[string]interface{}); ok {
			if id := extractElementID(elem); id != "" {
				handles = append(handles, core.Handle(id))
			}
		}
	}
	return handles, nil
}

func (c *Client) locatorBody(loc core.Locator) map[string]interface{} {
	if c.strict {
		loc = toW3C(loc)
	}
	return map[string]interface{}{
		"using": loc.Using,
		"value": loc.Value,
	}
}

// toW3C rewrites strategies that W3C dropped into equivalent CSS selectors.
func toW3C(loc core.Locator) core.Locator {
	switch loc.Using {
	case core.UsingID:
		return core.Locator{Using: core.UsingCSS, Value: "#" + cssEscape(loc.Value)}
	case core.UsingName:
		return core.Locator{Using: core.UsingCSS, Value: `[name="` + strings.ReplaceAll(loc.Value, `"`, `\"`) + `"]`}
	case core.UsingClassName:
		return core.Locator{Using: core.UsingCSS, Value: "." + cssEscape(loc.Value)}
	default:
		return loc
	}
}

// cssEscape escapes an identifier for use in a CSS selector.
func cssEscape(ident string) string {
	var b strings.Builder
	for i, r := range ident {
		switch {
		case r >= '0' && r <= '9' && i == 0:
			fmt.Fprintf(&b, `\%x `, r)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r >= 0x80:
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
