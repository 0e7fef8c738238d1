package dom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogHTML = `
<html>
<head>
  <title>Lab Equipment Catalog</title>
  <meta charset="utf-8">
  <style>.hidden { display: none; }</style>
  <script>console.log("tracking");</script>
</head>
<body>
  <div id="content">
    <h1 class="title">Precision Laser 3000</h1>
    <div class="spec">Wavelength: 650 nm</div>
    <div class="spec">Power: 5 mW</div>
    <div class="spec">Weight: 2 kg</div>
    <p>A compact diode laser for
       alignment    tasks.</p>
  </div>
</body>
</html>`

// Test helper: collect every element of a page in walk order.
func allElements(p *Page) []*Element {
	var out []*Element
	p.DOMTree.Walk(func(el *Element) { out = append(out, el) })
	return out
}

func findByTag(p *Page, tag string) []*Element {
	var out []*Element
	p.DOMTree.Walk(func(el *Element) {
		if el.Tag == tag {
			out = append(out, el)
		}
	})
	return out
}

func TestNormalize_RootsAtBody(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com/laser-3000")
	require.NoError(t, err)

	assert.Equal(t, "body", page.DOMTree.Tag, "tree should be rooted at body")
	assert.Equal(t, "http://example.com/laser-3000", page.URL)
	assert.Equal(t, "Lab Equipment Catalog", page.Title)
}

func TestNormalize_TitleFallsBackToUnknown(t *testing.T) {
	page, err := Normalize(`<html><body><p>bare</p></body></html>`, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", page.Title)
}

// TestNormalize_ExcludesNonDisplayableTags verifies script, style, and the
// whole head subtree never appear in the tree or in extracted text
func TestNormalize_ExcludesNonDisplayableTags(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com")
	require.NoError(t, err)

	for _, el := range allElements(page) {
		assert.NotContains(t, []string{"script", "style", "head", "title", "meta", "link", "noscript"},
			el.Tag, "non-displayable tag leaked into the tree")
	}
	assert.NotContains(t, page.DOMTree.TextContent, "tracking",
		"script text must not leak into text content")
	assert.NotContains(t, page.DOMTree.TextContent, "hidden",
		"style text must not leak into text content")
}

// TestNormalize_SequentialIDs verifies ids are assigned 1..TotalElements in
// depth-first order, independently per call
func TestNormalize_SequentialIDs(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com")
	require.NoError(t, err)

	elements := allElements(page)
	require.Equal(t, page.TotalElements, len(elements))
	for i, el := range elements {
		assert.Equal(t, i+1, el.ID, "ids should be sequential in walk order")
	}

	// A second run must restart the counter.
	again, err := Normalize(catalogHTML, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, again.DOMTree.ID, "counter must reset between calls")
	assert.Equal(t, page.TotalElements, again.TotalElements)
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com")
	require.NoError(t, err)

	paragraphs := findByTag(page, "p")
	require.Len(t, paragraphs, 1)
	assert.Equal(t, "A compact diode laser for alignment tasks.", paragraphs[0].TextContent)
}

func TestNormalize_FormControlText(t *testing.T) {
	html := `<html><body>
	  <form>
	    <label for="qty">Quantity</label>
	    <input type="text" value="1" placeholder="How many?">
	    <select>
	      <option>Red laser</option>
	      <option>Green laser</option>
	    </select>
	  </form>
	</body></html>`

	page, err := Normalize(html, "http://example.com")
	require.NoError(t, err)

	labels := findByTag(page, "label")
	require.Len(t, labels, 1)
	assert.Equal(t, "Quantity [for: qty]", labels[0].TextContent)

	inputs := findByTag(page, "input")
	require.Len(t, inputs, 1)
	assert.Equal(t, "1 How many?", inputs[0].TextContent)

	selects := findByTag(page, "select")
	require.Len(t, selects, 1)
	assert.Contains(t, selects[0].TextContent, "Red laser")
	assert.Contains(t, selects[0].TextContent, "Green laser")
}

// TestNormalize_FragmentInput verifies the parser's synthesized body is
// still usable as the tree root for fragment markup
func TestNormalize_FragmentInput(t *testing.T) {
	page, err := Normalize(`<div class="spec">Wavelength: 650 nm</div>`, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "body", page.DOMTree.Tag)
	require.Len(t, page.DOMTree.Children, 1)
	assert.Equal(t, "Wavelength: 650 nm", page.DOMTree.Children[0].TextContent)
}

// TestCSSSelector_UniqueIDAnchor verifies elements with a page-unique id
// get a short tag#id selector with no ancestor chain
func TestCSSSelector_UniqueIDAnchor(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com")
	require.NoError(t, err)

	divs := findByTag(page, "div")
	require.NotEmpty(t, divs)
	assert.Equal(t, "div#content", divs[0].CSSSelector)
}

// TestCSSSelector_NthOfTypeForSiblings verifies repeated siblings are
// distinguished by :nth-of-type and anchored at the nearest unique id
func TestCSSSelector_NthOfTypeForSiblings(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com")
	require.NoError(t, err)

	var specs []*Element
	page.DOMTree.Walk(func(el *Element) {
		if el.Attributes["class"] == "spec" {
			specs = append(specs, el)
		}
	})
	require.Len(t, specs, 3)

	assert.Equal(t, "div#content > div.spec:nth-of-type(1)", specs[0].CSSSelector)
	assert.Equal(t, "div#content > div.spec:nth-of-type(2)", specs[1].CSSSelector)
	assert.Equal(t, "div#content > div.spec:nth-of-type(3)", specs[2].CSSSelector)
}

// TestCSSSelector_ResolvesToOwnElement verifies every generated selector
// matches exactly one element on the page it was generated from
func TestCSSSelector_ResolvesToOwnElement(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com")
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(catalogHTML))
	require.NoError(t, err)

	for _, el := range allElements(page) {
		require.NotEmpty(t, el.CSSSelector, "every element should have a selector")
		matches := doc.Find(el.CSSSelector).Length()
		assert.Equal(t, 1, matches, "selector %q should be unique on the page", el.CSSSelector)
	}
}

func TestCSSSelector_AttributeDisambiguation(t *testing.T) {
	html := `<html><body>
	  <div id="list">
	    <span data-sku="A1">first</span>
	    <span data-sku="B2">second</span>
	  </div>
	</body></html>`

	page, err := Normalize(html, "http://example.com")
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	for _, el := range findByTag(page, "span") {
		assert.Equal(t, 1, doc.Find(el.CSSSelector).Length(),
			"selector %q should resolve uniquely", el.CSSSelector)
	}
}

func TestPage_SaveAndLoad(t *testing.T) {
	page, err := Normalize(catalogHTML, "http://example.com/laser-3000")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "page.json")
	require.NoError(t, page.Save(path))

	loaded, err := LoadPage(path)
	require.NoError(t, err)

	assert.Equal(t, page.URL, loaded.URL)
	assert.Equal(t, page.Title, loaded.Title)
	assert.Equal(t, page.TotalElements, loaded.TotalElements)
	assert.Equal(t, page.DOMTree, loaded.DOMTree)
}

func TestLoadPage_MissingFile(t *testing.T) {
	_, err := LoadPage(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadPage_CorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadPage(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}
