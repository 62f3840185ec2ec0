package diagnostic

import (
	"strings"
	"time"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

// Message is the structured content of a classified failure. It is rendered
// through the kind's template only when the text is needed.
type Message struct {
	Kind     core.Kind
	Selector string
	Wait     time.Duration
	Detail   string            // Raw failure text
	Args     map[string]string // Extra named fields, e.g. "index"
	Trace    []core.Frame
}

// Render fills the kind's template from t. Kinds without a template fall
// back to "kind: detail".
func (m Message) Render(t *Templates) string {
	tmpl := t.lookup(m.Kind)
	if tmpl == nil {
		tmpl = t.lookup(core.KindUnknown)
	}
	if tmpl != nil {
		var b strings.Builder
		if err := tmpl.Execute(&b, m); err == nil {
			return b.String()
		}
	}
	if m.Detail == "" {
		return m.Kind.String()
	}
	return m.Kind.String() + ": " + m.Detail
}
