package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Parse decodes and validates a catalog from YAML bytes.
func Parse(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, fmt.Errorf("catalog: payload is empty")
	}
	violations, err := ValidateSchema(data)
	if err != nil {
		return Definition{}, err
	}
	if len(violations) > 0 {
		return Definition{}, schemaError(violations)
	}
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadReader reads a catalog from r.
func LoadReader(r io.Reader) (Definition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("catalog: read: %w", err)
	}
	return Parse(content)
}

// LoadFile loads a catalog from an explicit file path.
func LoadFile(path string) (Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	def, parseErr := Parse(content)
	if parseErr != nil {
		return Definition{}, fmt.Errorf("catalog: %s: %w", path, parseErr)
	}
	return def, nil
}

// Default returns the built-in workstation catalog.
func Default() (Definition, error) {
	return Parse(defaultCatalog)
}

// Load returns the catalog at path, or the built-in one when path is empty.
func Load(path string) (Definition, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
