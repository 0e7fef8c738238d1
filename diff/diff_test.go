package diff

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pevans/pagesift/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: build a normalized catalog page with five product divs.
// Each entry of contents becomes <div id="DivN">...</div> inside #content.
func catalogPage(t *testing.T, url string, contents []string) *dom.Page {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<html><head><title>Catalog</title></head><body><div id="content">`)
	for i, c := range contents {
		fmt.Fprintf(&b, `<div id="Div%d">%s</div>`, i+1, c)
	}
	b.WriteString(`</div></body></html>`)

	page, err := dom.Normalize(b.String(), url)
	require.NoError(t, err)
	return page
}

func floatPtr(v float64) *float64 { return &v }

func reportSelectors(r *Report) []string {
	out := make([]string, 0, len(r.OptimizedSelectors))
	for _, sr := range r.OptimizedSelectors {
		out = append(out, sr.CSSSelector)
	}
	sort.Strings(out)
	return out
}

const staticSpec = "Laser calibration notes shared by every model"

func varyingSpec(n int) string {
	return fmt.Sprintf("Laser wavelength %d nm with high precision optics", n)
}

// TestCompare_SingleDifferingSibling verifies that when one of five sibling
// divs differs between pages, only that div's selector is reported
func TestCompare_SingleDifferingSibling(t *testing.T) {
	a := catalogPage(t, "http://example.com/a", []string{
		staticSpec, staticSpec, varyingSpec(650), staticSpec, staticSpec,
	})
	b := catalogPage(t, "http://example.com/b", []string{
		staticSpec, staticSpec, varyingSpec(532), staticSpec, staticSpec,
	})

	report, err := Compare([]*dom.Page{a, b}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"div#Div3"}, reportSelectors(report),
		"one differing sibling out of five must stay a leaf selector")
	assert.Equal(t, 2, report.Summary.TotalPages)
	assert.Equal(t, 1, report.Summary.UniqueLeafSelectors)
}

// TestCompare_MajorityDifferingSiblingsPromote verifies that when four of
// five siblings differ (above the 0.7 threshold), the parent replaces them
func TestCompare_MajorityDifferingSiblingsPromote(t *testing.T) {
	a := catalogPage(t, "http://example.com/a", []string{
		staticSpec, varyingSpec(650), varyingSpec(450), varyingSpec(780), varyingSpec(1064),
	})
	b := catalogPage(t, "http://example.com/b", []string{
		staticSpec, varyingSpec(532), varyingSpec(405), varyingSpec(808), varyingSpec(980),
	})

	report, err := Compare([]*dom.Page{a, b}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"div#content"}, reportSelectors(report),
		"four differing siblings of five should promote to the parent")
	assert.Equal(t, 1, report.Summary.FinalGeneralizedSelectors)
}

// TestCompare_ThresholdBlocksPromotion verifies a higher threshold keeps
// the same four differing siblings as individual (generalized) selectors
func TestCompare_ThresholdBlocksPromotion(t *testing.T) {
	a := catalogPage(t, "http://example.com/a", []string{
		staticSpec, varyingSpec(650), varyingSpec(450), varyingSpec(780), varyingSpec(1064),
	})
	b := catalogPage(t, "http://example.com/b", []string{
		staticSpec, varyingSpec(532), varyingSpec(405), varyingSpec(808), varyingSpec(980),
	})

	report, err := Compare([]*dom.Page{a, b}, Options{Threshold: floatPtr(0.9)})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.SelectorsAfterOptimization,
		"0.9 threshold should block the 4/5 promotion")
	assert.Equal(t, []string{`div[id^="Div"]`}, reportSelectors(report),
		"the sibling family should still merge into one id-prefix pattern")
}

// TestCompare_ZeroThresholdAlwaysPromotes verifies an explicit 0 threshold
// is honored rather than falling back to the default
func TestCompare_ZeroThresholdAlwaysPromotes(t *testing.T) {
	a := catalogPage(t, "http://example.com/a", []string{
		staticSpec, staticSpec, varyingSpec(650), staticSpec, staticSpec,
	})
	b := catalogPage(t, "http://example.com/b", []string{
		staticSpec, staticSpec, varyingSpec(532), staticSpec, staticSpec,
	})

	report, err := Compare([]*dom.Page{a, b}, Options{Threshold: floatPtr(0)})
	require.NoError(t, err)

	assert.Equal(t, []string{"div#content"}, reportSelectors(report),
		"with threshold 0 even a lone differing sibling promotes to its parent")
	assert.Equal(t, 0.0, report.Summary.OptimizationThreshold)
}

// TestCompare_MixedContentDirectTextDiffers verifies an element's own text
// still counts in the comparison when the element also has child elements
func TestCompare_MixedContentDirectTextDiffers(t *testing.T) {
	build := func(url, weight string) *dom.Page {
		html := `<html><head><title>Catalog</title></head><body><div id="content">` +
			`<div id="spec">Laser head weight ` + weight + ` kg <b>approx</b></div>` +
			`<div id="notes">` + staticSpec + `</div>` +
			`</div></body></html>`
		page, err := dom.Normalize(html, url)
		require.NoError(t, err)
		return page
	}

	report, err := Compare([]*dom.Page{
		build("http://example.com/a", "5"),
		build("http://example.com/b", "9"),
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"div#spec"}, reportSelectors(report),
		"a direct-text change on a mixed-content element must be reported")
}

// TestCompare_OrderIndependence verifies page order changes neither the
// selector set nor the summary counts
func TestCompare_OrderIndependence(t *testing.T) {
	build := func(urls []string, wavelengths []int) []*dom.Page {
		pages := make([]*dom.Page, len(urls))
		for i := range urls {
			pages[i] = catalogPage(t, urls[i], []string{
				staticSpec, staticSpec, varyingSpec(wavelengths[i]), staticSpec, staticSpec,
			})
		}
		return pages
	}

	forward := build([]string{"http://e.com/a", "http://e.com/b", "http://e.com/c"}, []int{650, 532, 405})
	reversed := []*dom.Page{forward[2], forward[1], forward[0]}

	first, err := Compare(forward, Options{})
	require.NoError(t, err)
	second, err := Compare(reversed, Options{})
	require.NoError(t, err)

	assert.Equal(t, reportSelectors(first), reportSelectors(second))
	assert.Equal(t, first.Summary.UniqueLeafSelectors, second.Summary.UniqueLeafSelectors)
	assert.Equal(t, first.Summary.FinalGeneralizedSelectors, second.Summary.FinalGeneralizedSelectors)
}

// TestCompare_SinglePageElement verifies an element present on only one
// page is reported even though it cannot differ across pages
func TestCompare_SinglePageElement(t *testing.T) {
	base := []string{staticSpec, staticSpec, staticSpec, staticSpec, staticSpec}
	a := catalogPage(t, "http://example.com/a", base)

	extra := `<html><head><title>Catalog</title></head><body><div id="content">` +
		`<div id="Div1">` + staticSpec + `</div>` +
		`<div id="Div2">` + staticSpec + `</div>` +
		`<div id="Div3">` + staticSpec + `</div>` +
		`<div id="Div4">` + staticSpec + `</div>` +
		`<div id="Div5">` + staticSpec + `</div>` +
		`<div id="promo">Limited spectrometer bundle with calibration laser</div>` +
		`</div></body></html>`
	b, err := dom.Normalize(extra, "http://example.com/b")
	require.NoError(t, err)

	report, err := Compare([]*dom.Page{a, b}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"div#promo"}, reportSelectors(report))
	assert.Equal(t, 1, report.Summary.SinglePageElements)
}

// TestCompare_NumberedIDFamilyGeneralizes verifies selectors differing only
// in a trailing id counter merge into an id-prefix pattern
func TestCompare_NumberedIDFamilyGeneralizes(t *testing.T) {
	build := func(url string, tag string) *dom.Page {
		html := `<html><head><title>Catalog</title></head><body><div id="list">` +
			`<div id="intro">Overview of our laser and spectrometer range</div>` +
			fmt.Sprintf(`<div id="content-item-1">Laser model %s-100 wavelength 650 nm</div>`, tag) +
			fmt.Sprintf(`<div id="content-item-2">Laser model %s-200 wavelength 532 nm</div>`, tag) +
			fmt.Sprintf(`<div id="content-item-3">Laser model %s-300 wavelength 405 nm</div>`, tag) +
			`<div id="footer-note">Calibration services for all instruments</div>` +
			`</div></body></html>`
		page, err := dom.Normalize(html, url)
		require.NoError(t, err)
		return page
	}

	report, err := Compare([]*dom.Page{
		build("http://example.com/a", "LX"),
		build("http://example.com/b", "SP"),
	}, Options{})
	require.NoError(t, err)

	selectors := reportSelectors(report)
	require.Len(t, selectors, 1)
	assert.Equal(t, `div[id^="content-item-"]`, selectors[0])

	// The pattern's content must come from a concrete member of the family.
	content := report.OptimizedSelectors[0].ContentByPage
	require.Len(t, content, 2)
	assert.Contains(t, content[0].HTMLContent, "content-item-1")
}

func TestCompare_RequiresTwoPages(t *testing.T) {
	page := catalogPage(t, "http://example.com/a", []string{staticSpec})
	_, err := Compare([]*dom.Page{page}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 pages")
}

func TestDefaultPolicy(t *testing.T) {
	assert.True(t, DefaultPolicy("div#specs", "text:Wavelength range 400 nm to 700 nm"),
		"measurements should be meaningful")
	assert.True(t, DefaultPolicy("div#anything", "text:Optical spectrometer with calibration"),
		"domain vocabulary should be meaningful")
	assert.True(t, DefaultPolicy("div.product-detail", "text:xyz"),
		"content-ish selectors should pass even with short text")
	assert.False(t, DefaultPolicy("div#footer", "text:We use cookies to improve your experience on this site"),
		"boilerplate should be rejected")
	assert.False(t, DefaultPolicy("a.nav", "text:home"),
		"navigation words should be rejected")
	assert.False(t, DefaultPolicy("div#x", "text:ok"),
		"short unrecognized text should be rejected")
}

func TestBuildIndex_AdjacencyFollowsTree(t *testing.T) {
	page := catalogPage(t, "http://example.com/a", []string{staticSpec, staticSpec})
	idx := BuildIndex([]*dom.Page{page})

	assert.Equal(t, "div#content", idx.ChildToParent["div#Div1"],
		"adjacency must connect id-anchored selectors through the tree")
	children := idx.ParentToChildren["div#content"]
	assert.Contains(t, children, "div#Div1")
	assert.Contains(t, children, "div#Div2")
}

func TestBuildIndex_InteriorElementKeepsDirectText(t *testing.T) {
	html := `<html><head><title>T</title></head><body>` +
		`<div id="spec">Wavelength 650 nm <b>typical</b></div></body></html>`
	page, err := dom.Normalize(html, "http://example.com/a")
	require.NoError(t, err)

	idx := BuildIndex([]*dom.Page{page})
	sig := idx.Content["div#spec"][0]
	assert.Contains(t, sig, "Wavelength 650 nm",
		"the element's own text belongs in its signature")
	assert.NotContains(t, sig, "typical",
		"descendant text stays out of the parent signature")
}

func TestRemoveRedundant_DropsCoveredDescendants(t *testing.T) {
	page := catalogPage(t, "http://example.com/a", []string{staticSpec})
	idx := BuildIndex([]*dom.Page{page})

	kept := RemoveRedundant(idx, map[string]struct{}{
		"div#content": {},
		"div#Div1":    {},
	})
	assert.Equal(t, map[string]struct{}{"div#content": {}}, kept,
		"a selector whose tree ancestor is kept is redundant")
}

func TestGeneralize_CollapsesNthOfTypeFamilies(t *testing.T) {
	gen, err := Generalize(map[string]struct{}{
		"ul#specs > li:nth-of-type(1)": {},
		"ul#specs > li:nth-of-type(2)": {},
		"ul#specs > li:nth-of-type(4)": {},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{"ul#specs > li": {}}, gen.Selectors)
	assert.Equal(t, "ul#specs > li:nth-of-type(1)", gen.Representative["ul#specs > li"],
		"the representative should be a concrete family member")
}

// TestGeneralize_MidChainNthCollapsesToParentPart verifies a family whose
// positional qualifier sits mid-chain collapses to the part before it
func TestGeneralize_MidChainNthCollapsesToParentPart(t *testing.T) {
	gen, err := Generalize(map[string]struct{}{
		"ul#a > li:nth-of-type(1) > b": {},
		"ul#a > li:nth-of-type(2) > b": {},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{"ul#a > li": {}}, gen.Selectors)
	assert.Equal(t, "ul#a > li:nth-of-type(1) > b", gen.Representative["ul#a > li"])
}

func TestGeneralize_IDWithSuffix(t *testing.T) {
	gen, err := Generalize(map[string]struct{}{
		"div#spec1-price": {},
		"div#spec2-price": {},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{`div[id^="spec"][id$="-price"]`: {}}, gen.Selectors)
}

func TestGeneralize_ClassCounters(t *testing.T) {
	gen, err := Generalize(map[string]struct{}{
		"div#list > div.item1": {},
		"div#list > div.item2": {},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{`div#list > div[class*="item"]`: {}}, gen.Selectors)
}

func TestGeneralize_SingletonsPassThrough(t *testing.T) {
	in := map[string]struct{}{
		"div#content":   {},
		"div#Div3":      {},
		"p.description": {},
	}
	gen, err := Generalize(in)
	require.NoError(t, err)
	assert.Equal(t, in, gen.Selectors, "ungroupable selectors must survive verbatim")
	assert.Empty(t, gen.Representative)
}

func TestConsistencyError_NamesLostSelectors(t *testing.T) {
	err := &ConsistencyError{Missing: []string{"div#a", "div#b"}}
	assert.Contains(t, err.Error(), "2 selector(s)")
	assert.Contains(t, err.Error(), "div#a")
}

func TestRenderHTML(t *testing.T) {
	el := &dom.Element{
		Tag:        "div",
		Attributes: map[string]string{"id": "spec", "data-value": `650 "nm"`},
		Children: []*dom.Element{
			{Tag: "img", Attributes: map[string]string{"src": "laser.png"}},
			{Tag: "span", Attributes: map[string]string{}, TextContent: "Wavelength < 700"},
		},
	}

	html := RenderHTML(el)
	assert.Equal(t,
		`<div data-value="650 &#34;nm&#34;" id="spec"><img src="laser.png" /><span>Wavelength &lt; 700</span></div>`,
		html)
}

func TestLoadPages_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()

	page := catalogPage(t, "http://example.com/a", []string{staticSpec})
	good := filepath.Join(dir, "good.json")
	require.NoError(t, page.Save(good))

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{"), 0o644))

	pages, failed := LoadPages([]string{good, corrupt, filepath.Join(dir, "absent.json")})
	assert.Len(t, pages, 1, "the readable page should load")
	require.Len(t, failed, 2, "both bad paths should be isolated as failures")
	assert.Equal(t, corrupt, failed[0].Source)
}
