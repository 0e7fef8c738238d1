package pagesift

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeHTML = `
<html><body>
  <div class="product">
    <h2 class="name">Spectro 500</h2>
    <span class="price">$12,400</span>
  </div>
  <div class="product">
    <h2 class="name">Spectro 900</h2>
    <span class="price">$21,900</span>
  </div>
</body></html>`

const productListSpec = `
- soup_selector:
    attrs:
      class: product
- for_each_selector:
    selector:
      mapping_selector:
        mapping:
          name:
            - soup_selector:
                attrs:
                  class: name
                index: 0
            - text_selector
          price:
            - soup_selector:
                attrs:
                  class: price
                index: 0
            - text_selector
`

func TestLoadSpecBytes_RunHTML(t *testing.T) {
	runner, err := LoadSpecBytes([]byte(productListSpec))
	require.NoError(t, err)

	result, err := runner.RunHTML(storeHTML)
	require.NoError(t, err)

	records, ok := result.([]any)
	require.True(t, ok, "a for_each pipeline should collapse to a list")
	require.Len(t, records, 2)

	first := records[0].(map[string]any)
	assert.Equal(t, "Spectro 500", first["name"])
	assert.Equal(t, "$12,400", first["price"])

	second := records[1].(map[string]any)
	assert.Equal(t, "Spectro 900", second["name"])
	assert.Equal(t, "$21,900", second["price"])
}

func TestLoadSpec_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	require.NoError(t, os.WriteFile(path, []byte(productListSpec), 0o644))

	runner, err := LoadSpec(path)
	require.NoError(t, err)
	require.NotNil(t, runner.Selector())

	result, err := runner.RunHTML(storeHTML)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestLoadSpec_MissingFile(t *testing.T) {
	_, err := LoadSpec(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadSpecBytes_BadSpec(t *testing.T) {
	_, err := LoadSpecBytes([]byte(`bogus_selector`))
	require.Error(t, err)
}

// TestSpecYAML_RoundTrips verifies the re-serialized spec loads and behaves
// like the original
func TestSpecYAML_RoundTrips(t *testing.T) {
	runner, err := LoadSpecBytes([]byte(productListSpec))
	require.NoError(t, err)

	out, err := runner.SpecYAML()
	require.NoError(t, err)

	reloaded, err := LoadSpecBytes([]byte(out))
	require.NoError(t, err, "re-serialized spec should load: %s", out)

	want, err := runner.RunHTML(storeHTML)
	require.NoError(t, err)
	got, err := reloaded.RunHTML(storeHTML)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunHTML_MalformedMarkupTolerated(t *testing.T) {
	runner, err := LoadSpecBytes([]byte(productListSpec))
	require.NoError(t, err)

	// Unclosed tags still parse; the selector simply finds no products.
	result, err := runner.RunHTML(`<div><p>stray`)
	require.NoError(t, err)
	assert.Empty(t, result)
}
