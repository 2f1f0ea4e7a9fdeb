package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Equal(t, 60, c.BaseScore)
	assert.Len(t, c.Rules, 20)
	for _, p := range Platforms {
		assert.Contains(t, c.Profiles, p)
	}
	assert.Contains(t, c.Lexicon.CallToAction, "shop now")
	assert.NotContains(t, c.Lexicon.CallToAction, "check out")
}

func TestDecodeCatalogRejectsDefects(t *testing.T) {
	base := string(defaultCatalogYAML)
	cases := []struct {
		name    string
		doc     string
		message string
	}{
		{name: "empty", doc: "", message: "empty document"},
		{name: "unknown field", doc: base + "\nsparkle: true\n", message: "sparkle"},
		{name: "duplicate id", doc: strings.Replace(base, "id: length.fit", "id: length.too_long", 1), message: "duplicate rule id"},
		{name: "unknown kind", doc: strings.Replace(base, "kind: length_fit", "kind: sparkle", 1), message: "unknown kind"},
		{name: "missing profile", doc: strings.Replace(base, "  youtube:\n    reach", "  myspace:\n    reach", 1), message: "youtube"},
		{name: "zero weight", doc: strings.Replace(base, "weight: 5\n    note: Length suits", "weight: 0\n    note: Length suits", 1), message: "Weight"},
		{name: "inverted range", doc: strings.Replace(base, "reach: {min: 300, max: 6000}", "reach: {min: 6000, max: 300}", 1), message: "Max"},
		{name: "terms required", doc: strings.Replace(base, "    terms: [lol, omg, lmao, wtf, gonna, wanna, ya]\n", "", 1), message: "requires terms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCatalog([]byte(tc.doc))
			require.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestDecodeCatalogNormalisesLexicon(t *testing.T) {
	doc := strings.Replace(string(defaultCatalogYAML), "    - shop now\n", "    - Shop Now\n    - shop now\n", 1)
	c, err := DecodeCatalog([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "shop now", c.Lexicon.CallToAction[0])
	assert.NotEqual(t, "shop now", c.Lexicon.CallToAction[1])
}

func TestLoadCatalogFromFile(t *testing.T) {
	c := MustDefaultCatalog()
	c.BaseScore = 55
	raw, err := EncodeCatalog(c)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	loaded, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 55, loaded.BaseScore)
	assert.Equal(t, c.Rules, loaded.Rules)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
