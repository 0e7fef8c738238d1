package selector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSkipRecord signals that the current record should be dropped rather
// than treated as a failure. MappingSelector raises it under the skip
// strategy, and ForEachSelector honors it by omitting the element.
var ErrSkipRecord = errors.New("skip record")

// TypeError reports a Selected whose type does not match what a selector or
// constructor expects. It is always fatal to the selector invocation that
// raised it; values are never coerced.
type TypeError struct {
	Op     string // the selector that rejected the input
	Want   []SelectedType
	Got    SelectedType
	Detail string
}

func (e *TypeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	}
	wants := make([]string, 0, len(e.Want))
	for _, w := range e.Want {
		wants = append(wants, w.String())
	}
	return fmt.Sprintf("%s expects a selected of type %s, but received %s",
		e.Op, strings.Join(wants, " or "), e.Got)
}

// ConfigError reports a selector spec that could not be loaded. It carries
// the selector name and the raw YAML arguments so a bad spec can be located
// without re-reading the file.
type ConfigError struct {
	Name string // selector key, when known
	Args any    // raw arguments from the spec
	Err  error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("loading selector spec")
	if e.Name != "" {
		fmt.Fprintf(&b, ": %s", e.Name)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Args != nil {
		fmt.Fprintf(&b, " (arguments: %v)", e.Args)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// expect validates the input type for a selector stage. A nil or empty want
// list accepts anything.
func expect(op string, in Selected, want ...SelectedType) error {
	if len(want) == 0 {
		return nil
	}
	for _, w := range want {
		if in.Type == w {
			return nil
		}
	}
	return &TypeError{Op: op, Want: want, Got: in.Type}
}
