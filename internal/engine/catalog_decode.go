package engine

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// DecodeCatalog parses a YAML catalog document. Unknown fields are rejected
// and the result is validated before it is returned.
func DecodeCatalog(data []byte) (Catalog, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	c := Catalog{BaseScore: DefaultBaseScore}
	if err := decoder.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
		}
		return Catalog{}, fmt.Errorf("%w: decode YAML: %v", ErrInvalidCatalog, err)
	}

	c.Lexicon.CallToAction = lowerAll(dedupeStrings(c.Lexicon.CallToAction))
	c.Lexicon.StopWords = lowerAll(dedupeStrings(c.Lexicon.StopWords))
	for i := range c.Rules {
		c.Rules[i].Terms = lowerAll(dedupeStrings(c.Rules[i].Terms))
	}

	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// LoadCatalog reads and decodes a catalog document from disk.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := DecodeCatalog(raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() (Catalog, error) {
	return DecodeCatalog(defaultCatalogYAML)
}

// MustDefaultCatalog is DefaultCatalog for initialisers and tests; the embedded
// document is part of the build, so a failure here is a programming error.
func MustDefaultCatalog() Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// EncodeCatalog renders a catalog back to YAML.
func EncodeCatalog(c Catalog) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return values
}
