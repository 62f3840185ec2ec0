package webdriver

import "github.com/devicelab-dev/uiresolve/pkg/core"

// codeKinds maps W3C error codes to failure kinds.
var codeKinds = map[string]core.Kind{
	"element not visible":       core.KindNotVisible,
	"element not interactable":  core.KindNotVisible,
	"stale element reference":   core.KindStaleReference,
	"invalid element state":     core.KindInvalidState,
	"move target out of bounds": core.KindOutOfBounds,
	"no such window":            core.KindNoWindow,
	"no such frame":             core.KindNoFrame,
	"no such element":           core.KindNotFound,
	"unsupported operation":     core.KindUnsupportedOperation,
	"timeout":                   core.KindTimeout,
	"script timeout":            core.KindTimeout,
}

func kindForCode(code string) core.Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return core.KindUnknown
}
