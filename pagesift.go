// Package pagesift extracts structured content from HTML pages using
// declarative selector specs, and compares pages structurally to discover
// which selectors isolate their differing content.
//
// The top-level Runner ties the pieces together: it loads a YAML selector
// spec and applies it to parsed documents. The subpackages can also be used
// directly: selector implements the combinator algebra, dom normalizes raw
// HTML into comparable element trees, diff runs the comparison pipeline,
// fetch retrieves pages, and pagecache persists normalized snapshots.
package pagesift

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/pagesift/selector"
)

// Runner applies a loaded selector spec to documents.
type Runner struct {
	sel selector.Selector
	// Logger receives extraction trace output; nil means slog.Default().
	Logger *slog.Logger
}

// LoadSpec reads a YAML selector spec from a file.
func LoadSpec(path string) (*Runner, error) {
	sel, err := selector.FromFile(path)
	if err != nil {
		return nil, err
	}
	return &Runner{sel: sel}, nil
}

// LoadSpecBytes parses a YAML selector spec from memory.
func LoadSpecBytes(data []byte) (*Runner, error) {
	sel, err := selector.FromYAML(data)
	if err != nil {
		return nil, err
	}
	return &Runner{sel: sel}, nil
}

// Selector returns the loaded root selector.
func (r *Runner) Selector() selector.Selector {
	return r.sel
}

// SpecYAML re-serializes the loaded spec. Loading the output again yields a
// selector with identical behavior.
func (r *Runner) SpecYAML() (string, error) {
	data, err := selector.ToYAML(r.sel)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Run applies the spec to a parsed document and returns the collapsed
// result: maps and slices of plain values ready for JSON or YAML encoding.
func (r *Runner) Run(doc *goquery.Document) (any, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	in, err := selector.NewSingle(doc.Selection)
	if err != nil {
		return nil, fmt.Errorf("preparing document: %w", err)
	}
	log.Debug("applying selector spec", "url", doc.Url)
	out, err := r.sel.Select(in)
	if err != nil {
		return nil, err
	}
	return out.Collapsed(), nil
}

// RunHTML parses raw HTML and applies the spec to it.
func (r *Runner) RunHTML(rawHTML string) (any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return r.Run(doc)
}
