package diff

import (
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"

	"github.com/pevans/pagesift/dom"
)

// DefaultThreshold is the child-coverage ratio at or above which a parent
// selector replaces its differing children during optimization.
const DefaultThreshold = 0.7

// Options tunes a comparison run. The zero value uses DefaultThreshold,
// DefaultPolicy, and slog.Default().
type Options struct {
	// Threshold is the promotion ratio; nil means DefaultThreshold. A
	// pointer so that an explicit 0 ("always promote") stays expressible.
	Threshold *float64
	Policy    ContentPolicy
	Logger    *slog.Logger
}

// Summary carries the per-stage counts of one comparison run.
type Summary struct {
	TotalPages                      int     `json:"total_pages"`
	TotalSelectorsAnalyzed          int     `json:"total_selectors_analyzed"`
	UniqueLeafSelectors             int     `json:"unique_leaf_selectors"`
	SinglePageElements              int     `json:"single_page_elements"`
	SelectorsAfterOptimization      int     `json:"selectors_after_optimization"`
	SelectorsAfterRedundancyRemoval int     `json:"selectors_after_redundancy_removal"`
	FinalGeneralizedSelectors       int     `json:"final_generalized_selectors"`
	OptimizationThreshold           float64 `json:"optimization_threshold"`
}

// PageContent is one page's rendition of a reported selector.
type PageContent struct {
	PageURL          string `json:"page_url"`
	HTMLContent      string `json:"html_content"`
	ContentSignature string `json:"content_signature"`
}

// SelectorReport pairs a final selector with its content on every page.
type SelectorReport struct {
	CSSSelector   string              `json:"css_selector"`
	Reason        string              `json:"reason"`
	ContentByPage map[int]PageContent `json:"content_by_page"`
}

// PageFailure records a page that could not be loaded or normalized.
// Failures never abort a run; they are reported alongside the results.
type PageFailure struct {
	Source string `json:"source"`
	Err    string `json:"error"`
}

// Report is the full result of comparing a set of pages.
type Report struct {
	Summary            Summary          `json:"summary"`
	Pages              []PageRef        `json:"pages"`
	OptimizedSelectors []SelectorReport `json:"optimized_selectors"`
	Failed             []PageFailure    `json:"failed_pages,omitempty"`
}

// Compare runs the full diff pipeline over normalized pages and reports the
// minimal generalized selector set that captures their differing content.
func Compare(pages []*dom.Page, opts Options) (*Report, error) {
	if len(pages) < 2 {
		return nil, fmt.Errorf("comparison requires at least 2 pages, got %d", len(pages))
	}
	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	idx := BuildIndex(pages)
	log.Info("indexed pages", "pages", len(pages), "selectors", len(idx.Selectors))

	uniqueLeaves, singlePage := Classify(idx, opts.Policy)
	log.Info("classified differing content",
		"unique_leaves", len(uniqueLeaves), "single_page", len(singlePage))

	diffs := map[string]struct{}{}
	for s := range uniqueLeaves {
		diffs[s] = struct{}{}
	}
	for s := range singlePage {
		diffs[s] = struct{}{}
	}

	optimized := Optimize(idx, diffs, threshold)
	log.Info("optimized selectors", "before", len(diffs), "after", len(optimized))

	pruned := RemoveRedundant(idx, optimized)
	gen, err := Generalize(pruned)
	if err != nil {
		return nil, fmt.Errorf("generalizing selectors: %w", err)
	}
	log.Info("generalized selectors",
		"after_redundancy", len(pruned), "final", len(gen.Selectors))

	report := &Report{
		Summary: Summary{
			TotalPages:                      len(pages),
			TotalSelectorsAnalyzed:          len(idx.Selectors),
			UniqueLeafSelectors:             len(uniqueLeaves),
			SinglePageElements:              len(singlePage),
			SelectorsAfterOptimization:      len(optimized),
			SelectorsAfterRedundancyRemoval: len(pruned),
			FinalGeneralizedSelectors:       len(gen.Selectors),
			OptimizationThreshold:           threshold,
		},
		Pages: idx.Pages,
	}

	final := make([]string, 0, len(gen.Selectors))
	for s := range gen.Selectors {
		final = append(final, s)
	}
	sort.Strings(final)

	for _, selector := range final {
		lookup := selector
		if rep, ok := gen.Representative[selector]; ok {
			lookup = rep
		}
		sr := SelectorReport{
			CSSSelector:   selector,
			Reason:        "unique_content",
			ContentByPage: map[int]PageContent{},
		}
		for _, ref := range idx.Pages {
			pc := PageContent{PageURL: ref.URL}
			if el := idx.Elements[lookup][ref.ID]; el != nil {
				pc.HTMLContent = RenderHTML(el)
				pc.ContentSignature = idx.Content[lookup][ref.ID]
			}
			sr.ContentByPage[ref.ID] = pc
		}
		report.OptimizedSelectors = append(report.OptimizedSelectors, sr)
	}
	return report, nil
}

// LoadPages reads previously saved page snapshots, isolating per-file
// failures so one unreadable snapshot does not abort the comparison.
func LoadPages(paths []string) ([]*dom.Page, []PageFailure) {
	var pages []*dom.Page
	var failed []PageFailure
	for _, path := range paths {
		page, err := dom.LoadPage(path)
		if err != nil {
			failed = append(failed, PageFailure{Source: path, Err: err.Error()})
			continue
		}
		pages = append(pages, page)
	}
	return pages, failed
}

var voidTags = map[string]bool{
	"img": true, "br": true, "hr": true, "input": true,
	"meta": true, "link": true, "area": true, "base": true,
	"col": true, "embed": true, "source": true, "track": true, "wbr": true,
}

// RenderHTML re-renders a normalized element subtree as HTML. Attributes
// are emitted in sorted order so output is deterministic.
func RenderHTML(el *dom.Element) string {
	var b strings.Builder
	renderElement(&b, el)
	return b.String()
}

func renderElement(b *strings.Builder, el *dom.Element) {
	b.WriteByte('<')
	b.WriteString(el.Tag)

	keys := make([]string, 0, len(el.Attributes))
	for k := range el.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, ` %s="%s"`, k, html.EscapeString(el.Attributes[k]))
	}

	if voidTags[el.Tag] {
		b.WriteString(" />")
		return
	}
	b.WriteByte('>')

	if len(el.Children) > 0 {
		for _, child := range el.Children {
			renderElement(b, child)
		}
	} else if el.TextContent != "" {
		b.WriteString(html.EscapeString(el.TextContent))
	}

	fmt.Fprintf(b, "</%s>", el.Tag)
}
