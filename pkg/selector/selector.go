// Package selector classifies raw selector text into a locator strategy.
package selector

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

// Kind is the locator strategy of a resolved selector.
type Kind int

const (
	KindID Kind = iota
	KindCSS
	KindXPath
	KindName

	// Reachable only through ResolveAs, never inferred.
	KindLinkText
	KindPartialLinkText
	KindTagName
	KindClassName
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindCSS:
		return "css"
	case KindXPath:
		return "xpath"
	case KindName:
		return "name"
	case KindLinkText:
		return "link"
	case KindPartialLinkText:
		return "partial-link"
	case KindTagName:
		return "tag"
	case KindClassName:
		return "class"
	default:
		return "unknown"
	}
}

// ParseKind returns the Kind named by s (as produced by Kind.String).
func ParseKind(s string) (Kind, error) {
	for k := KindID; k <= KindClassName; k++ {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return KindID, fmt.Errorf("unknown selector kind %q", s)
}

// cssMarkers are the characters whose presence makes desktop text a CSS selector.
const cssMarkers = ".[(: "

// PlatformIDMarker identifies a platform resource id (e.g. "com.app:id/login").
const PlatformIDMarker = ":id/"

// EnvMobile switches resolution to mobile addressing when set to a true value.
const EnvMobile = "UIRESOLVE_MOBILE"

// Selector is an immutable resolved selector. Its kind is fixed at
// resolution time.
type Selector struct {
	text string
	kind Kind
}

// Text returns the raw selector text.
func (s Selector) Text() string {
	return s.text
}

// Kind returns the resolved locator strategy.
func (s Selector) Kind() Kind {
	return s.kind
}

// IsZero reports whether s was never resolved.
func (s Selector) IsZero() bool {
	return s.text == ""
}

// String returns "kind=text".
func (s Selector) String() string {
	return s.kind.String() + "=" + s.text
}

// Locator returns the driver locator for the selector.
func (s Selector) Locator() core.Locator {
	var using string
	switch s.kind {
	case KindCSS:
		using = core.UsingCSS
	case KindXPath:
		using = core.UsingXPath
	case KindName:
		using = core.UsingName
	case KindLinkText:
		using = core.UsingLinkText
	case KindPartialLinkText:
		using = core.UsingPartialLinkText
	case KindTagName:
		using = core.UsingTagName
	case KindClassName:
		using = core.UsingClassName
	default:
		using = core.UsingID
	}
	return core.Locator{Using: using, Value: s.text}
}

// Resolve classifies text into a Selector.
//
// Mobile: "//" prefix is XPath, a platform id marker is ID, anything else is
// Name. Desktop: any of '.', '[', '(', ':' or ' ' makes it CSS, otherwise ID.
// An ID that contains a literal '.' is therefore read as CSS; use ResolveAs
// to force the strategy.
func Resolve(text string, mobile bool) (Selector, error) {
	if text == "" {
		return Selector{}, errEmpty()
	}

	if mobile {
		switch {
		case strings.HasPrefix(text, "//"):
			return Selector{text: text, kind: KindXPath}, nil
		case strings.Contains(text, PlatformIDMarker):
			return Selector{text: text, kind: KindID}, nil
		default:
			return Selector{text: text, kind: KindName}, nil
		}
	}

	if strings.ContainsAny(text, cssMarkers) {
		return Selector{text: text, kind: KindCSS}, nil
	}
	return Selector{text: text, kind: KindID}, nil
}

// ResolveAs builds a Selector with an explicit strategy, bypassing inference.
func ResolveAs(kind Kind, text string) (Selector, error) {
	if text == "" {
		return Selector{}, errEmpty()
	}
	if kind < KindID || kind > KindClassName {
		return Selector{}, core.Errorf(core.KindNullArgument, "unknown selector kind %d", kind)
	}
	return Selector{text: text, kind: kind}, nil
}

// MobileFromEnv reports whether EnvMobile requests mobile addressing.
func MobileFromEnv() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvMobile))
	return err == nil && v
}

func errEmpty() error {
	return core.Errorf(core.KindNullArgument, "selector text must not be empty")
}
