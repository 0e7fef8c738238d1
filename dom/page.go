// Package dom converts raw HTML into a normalized JSON-DOM form: a tree of
// elements carrying generated CSS selectors, cleaned text content, and
// sequential ids. The JSON shape is the stable contract between the
// normalizer and the page-diffing tooling, so normalized pages can be cached
// and re-diffed without re-fetching.
package dom

import (
	"encoding/json"
	"fmt"
	"os"
)

// Element is one node of the normalized DOM tree.
type Element struct {
	ID          int               `json:"id"`
	Tag         string            `json:"tag"`
	CSSSelector string            `json:"css_selector"`
	Attributes  map[string]string `json:"attributes"`
	TextContent string            `json:"text_content"`
	Children    []*Element        `json:"children"`
}

// Walk visits el and every descendant in depth-first order.
func (el *Element) Walk(visit func(*Element)) {
	if el == nil {
		return
	}
	visit(el)
	for _, child := range el.Children {
		child.Walk(visit)
	}
}

// Page is a normalized page: the DOM tree plus identifying metadata.
type Page struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	TotalElements int      `json:"total_elements"`
	DOMTree       *Element `json:"dom_tree"`
}

// Save writes the page as indented JSON.
func (p *Page) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}

// LoadPage reads a normalized page previously written by Save.
func LoadPage(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", path, err)
	}
	return &p, nil
}
