// Package diff compares normalized pages and discovers the minimal set of
// CSS selectors isolating the content that differs between them. The
// pipeline is index -> classify -> optimize -> generalize -> report.
package diff

import (
	"strings"

	"github.com/pevans/pagesift/dom"
)

// PageRef identifies one compared page in the report.
type PageRef struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Index maps every known CSS selector to its per-page content signature and
// element snapshot, plus the selector adjacency taken from the element
// trees themselves.
type Index struct {
	Pages     []PageRef
	Selectors map[string]struct{}
	// Content and Elements are keyed selector -> page id.
	Content  map[string]map[int]string
	Elements map[string]map[int]*dom.Element
	// Adjacency follows the normalized trees, so it holds even where the
	// selector strings are anchored at an id and share no text prefix.
	ParentToChildren map[string]map[string]struct{}
	ChildToParent    map[string]string
}

// BuildIndex walks every page's element tree and indexes content by
// (selector, page). Pages carry no ordering dependency; the resulting index
// does not depend on their order beyond page ids.
func BuildIndex(pages []*dom.Page) *Index {
	idx := &Index{
		Selectors:        map[string]struct{}{},
		Content:          map[string]map[int]string{},
		Elements:         map[string]map[int]*dom.Element{},
		ParentToChildren: map[string]map[string]struct{}{},
		ChildToParent:    map[string]string{},
	}

	for pageID, page := range pages {
		idx.Pages = append(idx.Pages, PageRef{ID: pageID, URL: page.URL, Title: page.Title})
		indexElement(idx, pageID, page.DOMTree, nil)
	}
	return idx
}

func indexElement(idx *Index, pageID int, el *dom.Element, ancestors []*dom.Element) {
	if el == nil {
		return
	}
	if el.CSSSelector != "" {
		idx.Selectors[el.CSSSelector] = struct{}{}
		if idx.Content[el.CSSSelector] == nil {
			idx.Content[el.CSSSelector] = map[int]string{}
			idx.Elements[el.CSSSelector] = map[int]*dom.Element{}
		}
		idx.Content[el.CSSSelector][pageID] = contentSignature(el, ancestors)
		idx.Elements[el.CSSSelector][pageID] = el

		if parent := nearestSelector(ancestors); parent != "" && parent != el.CSSSelector {
			if idx.ParentToChildren[parent] == nil {
				idx.ParentToChildren[parent] = map[string]struct{}{}
			}
			idx.ParentToChildren[parent][el.CSSSelector] = struct{}{}
			idx.ChildToParent[el.CSSSelector] = parent
		}
	}
	ancestors = append(ancestors, el)
	for _, child := range el.Children {
		indexElement(idx, pageID, child, ancestors)
	}
}

// nearestSelector finds the closest ancestor that carries a selector.
func nearestSelector(ancestors []*dom.Element) string {
	for i := len(ancestors) - 1; i >= 0; i-- {
		if ancestors[i].CSSSelector != "" {
			return ancestors[i].CSSSelector
		}
	}
	return ""
}

// contentSignature summarizes an element for cross-page equality. Leaves
// compare by their text. Interior elements compare by tag/id/class identity
// plus their direct text only: aggregated descendant text would mark the
// whole ancestor chain of any changed leaf as differing, but text nodes that
// belong to the element itself must still count, or a mixed-content change
// goes unreported. Both forms carry a truncated parent-context path for
// disambiguation.
func contentSignature(el *dom.Element, ancestors []*dom.Element) string {
	var sig string
	if text := strings.TrimSpace(el.TextContent); text != "" && len(el.Children) == 0 {
		sig = "text:" + text
	} else {
		sig = "tag:" + el.Tag
		if id := el.Attributes["id"]; id != "" {
			sig += "#id:" + id
		}
		if class := el.Attributes["class"]; class != "" {
			sig += ".class:" + class
		}
		if direct := directText(el); direct != "" {
			sig += "|text:" + direct
		}
	}
	if ctx := parentContext(ancestors); ctx != "" {
		sig = "parent:" + ctx + "[" + sig + "]"
	}
	return sig
}

// directText approximates an element's own text nodes by removing each
// child's aggregated text, in document order, from the element's aggregate.
func directText(el *dom.Element) string {
	text := el.TextContent
	for _, child := range el.Children {
		ct := strings.TrimSpace(child.TextContent)
		if ct == "" {
			continue
		}
		if i := strings.Index(text, ct); i >= 0 {
			text = text[:i] + text[i+len(ct):]
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

// parentContext renders up to the three nearest ancestors as
// tag#id / tag.class segments, skipping layout-only class names.
func parentContext(ancestors []*dom.Element) string {
	const maxLevels = 3
	start := len(ancestors) - maxLevels
	if start < 0 {
		start = 0
	}
	var parts []string
	for _, a := range ancestors[start:] {
		seg := a.Tag
		if id := a.Attributes["id"]; id != "" {
			seg += "#" + id
		} else if class := a.Attributes["class"]; class != "" {
			for _, c := range strings.Fields(class) {
				if c == "container" || c == "row" || c == "col" {
					continue
				}
				seg += "." + c
				break
			}
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, " > ")
}
