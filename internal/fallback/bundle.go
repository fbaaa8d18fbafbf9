// Package fallback holds the static listing bundle served when the primary
// store is unavailable, and the breaker that decides when to skip the store.
package fallback

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed data/listings.json data/listing.schema.json
var dataFS embed.FS

const schemaPath = "data/listing.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func bundleSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := dataFS.ReadFile(schemaPath)
		if err != nil {
			schemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaPath, bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaPath)
	})
	return schema, schemaErr
}

// Parse validates a listing bundle against the schema and decodes it.
func Parse(data []byte) ([]models.Listing, error) {
	s, err := bundleSchema()
	if err != nil {
		return nil, err
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("bundle is not valid JSON: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return nil, fmt.Errorf("bundle schema validation failed: %w", err)
	}

	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return listings, nil
}

// LoadFile reads and parses a bundle from disk.
func LoadFile(path string) ([]models.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	return Parse(data)
}

// Embedded returns the listings compiled into the binary.
func Embedded() ([]models.Listing, error) {
	data, err := dataFS.ReadFile("data/listings.json")
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Load returns the embedded bundle as a queryable store.
func Load() (*catalog.MemoryStore, error) {
	listings, err := Embedded()
	if err != nil {
		return nil, err
	}
	return catalog.NewMemoryStore(listings), nil
}
