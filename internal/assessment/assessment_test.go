package assessment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = "Java 8 (New) Description Multi-choice test that measures knowledge of Java 8. " +
	"Job levels Mid-Professional, Professional Languages English (USA) " +
	"Assessment length Approximate Completion Time in minutes = 18 " +
	"Test Type: K Remote Testing: Yes"

func TestParseExtractsFields(t *testing.T) {
	d := Parse(page, "java-8-new", "Java 8 (New) | SHL", nil)

	assert.Equal(t, "18 minutes", d.Duration)
	assert.Equal(t, "K", d.TestType)
	assert.Equal(t, "Yes", d.Remote)
	assert.Equal(t, "No", d.Adaptive)
	assert.Equal(t, "Multi-choice test that measures knowledge of Java 8.", d.Description)
	assert.Equal(t, "https://www.shl.com/solutions/products/product-catalog/view/java-8-new/", d.URL)
	assert.Equal(t, "Java 8 (New) | SHL", d.Title)
}

func TestParseMaxDuration(t *testing.T) {
	d := Parse("Approximate Completion Time in minutes = max 45", "x", "X", nil)
	assert.Equal(t, "45 minutes", d.Duration)
}

func TestParseTestTypeStopsAtProduct(t *testing.T) {
	d := Parse("Test Type: Personality Behavior Product Fact Sheet", "x", "X", nil)
	assert.Equal(t, "Personality Behavior", d.TestType)
}

func TestParseMissingFields(t *testing.T) {
	content := strings.Repeat("a", 400)
	d := Parse(content, "slug", "", nil)

	assert.Equal(t, NotAvailable, d.Duration)
	assert.Equal(t, NotAvailable, d.TestType)
	assert.Equal(t, NotAvailable, d.Remote)
	assert.Equal(t, strings.Repeat("a", 300)+"...", d.Description)
	assert.Equal(t, UnknownTitle, d.Title)
}

func TestParseDescriptionMarkersOutOfOrder(t *testing.T) {
	d := Parse("Job levels Graduate Description", "s", "T", nil)
	assert.Equal(t, "", d.Description)
}

func TestParseAppliesLinkOverrides(t *testing.T) {
	links := Links{"Java 8 (New)": {
		Name:          "Java 8 (New)",
		URL:           "https://example.com/java",
		AdaptiveIRT:   "Yes",
		TestType:      "Knowledge & Skills",
		RemoteTesting: NotAvailable,
		Duration:      "",
	}}
	d := Parse(page, "java-8-new", "Java 8 (New) | SHL", links)

	assert.Equal(t, "https://example.com/java", d.URL)
	assert.Equal(t, "Yes", d.Adaptive)
	assert.Equal(t, "Knowledge & Skills", d.TestType)
	assert.Equal(t, "Yes", d.Remote)
	assert.Equal(t, "18 minutes", d.Duration)
}

func TestLoadLinks(t *testing.T) {
	links, err := LoadLinks(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, links)

	path := filepath.Join(t.TempDir(), "links.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": " Verify G+ ", "url": "https://example.com/g", "adaptive_irt": "Yes"}]`), 0o644))
	links, err = LoadLinks(path)
	require.NoError(t, err)
	require.Contains(t, links, "Verify G+")
	assert.Equal(t, "https://example.com/g", links["Verify G+"].URL)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = LoadLinks(path)
	assert.Error(t, err)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "OPQ32r", CleanTitle(" OPQ32r | SHL "))
}
