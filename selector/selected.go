// Package selector implements a composable, YAML-loadable pipeline language
// for extracting structured data from HTML documents. Selectors consume and
// produce Selected values, which carry a runtime type tag so that a
// misassembled pipeline fails at the stage boundary instead of deep inside
// goquery.
package selector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectedType tags the three kinds of values that flow between selectors.
type SelectedType int

const (
	// ValueType is a terminal scalar (string, map, or list of scalars).
	// No further DOM selection can be performed on it.
	ValueType SelectedType = iota
	// SingleType wraps exactly one DOM node.
	SingleType
	// MultipleType is an ordered sequence of other Selected values.
	MultipleType
)

func (t SelectedType) String() string {
	switch t {
	case ValueType:
		return "value"
	case SingleType:
		return "single"
	case MultipleType:
		return "multiple"
	}
	return fmt.Sprintf("selected(%d)", int(t))
}

// Selected is the tagged value passed between pipeline stages. Exactly one
// of Value, Node, or List is meaningful, according to Type.
type Selected struct {
	Type  SelectedType
	Value any                // ValueType
	Node  *goquery.Selection // SingleType: exactly one node
	List  []Selected         // MultipleType
}

// NewValue wraps a terminal scalar.
func NewValue(v any) Selected {
	return Selected{Type: ValueType, Value: v}
}

// NewSingle wraps a one-node selection. The selection must hold exactly one
// node (an element or a document root); anything else is a type-contract
// violation reported at construction time.
func NewSingle(node *goquery.Selection) (Selected, error) {
	if node == nil || node.Length() != 1 {
		length := 0
		if node != nil {
			length = node.Length()
		}
		return Selected{}, &TypeError{
			Op:     "single",
			Want:   []SelectedType{SingleType},
			Got:    SingleType,
			Detail: fmt.Sprintf("a single must wrap exactly one DOM node, got a selection of %d nodes", length),
		}
	}
	return Selected{Type: SingleType, Node: node}, nil
}

// single wraps a selection already known to hold exactly one node.
func single(node *goquery.Selection) Selected {
	return Selected{Type: SingleType, Node: node}
}

// NewMultiple wraps an ordered sequence of Selected values.
func NewMultiple(items []Selected) Selected {
	if items == nil {
		items = []Selected{}
	}
	return Selected{Type: MultipleType, List: items}
}

// Collapsed reduces a Selected to plain data suitable for JSON output:
// values pass through, multiples collapse recursively to []any, and singles
// render to their outer HTML.
func (s Selected) Collapsed() any {
	switch s.Type {
	case MultipleType:
		out := make([]any, 0, len(s.List))
		for _, sub := range s.List {
			out = append(out, sub.Collapsed())
		}
		return out
	case SingleType:
		return outerHTML(s.Node)
	default:
		return s.Value
	}
}

// Values returns the string form of each element of a multiple. For other
// types it returns a one-element slice holding the string form of s.
func (s Selected) Values() []string {
	if s.Type != MultipleType {
		return []string{s.String()}
	}
	out := make([]string, 0, len(s.List))
	for _, sub := range s.List {
		out = append(out, sub.String())
	}
	return out
}

func (s Selected) String() string {
	switch s.Type {
	case MultipleType:
		return fmt.Sprintf("%v", s.Values())
	case SingleType:
		return outerHTML(s.Node)
	default:
		return fmt.Sprintf("%v", s.Value)
	}
}

func outerHTML(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	h, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(h)
}
