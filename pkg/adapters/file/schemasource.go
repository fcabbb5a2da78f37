package file

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// SchemaSource implements ports.SchemaSource over a local directory tree.
// A schema URL maps to a file by stripping the scheme and host and joining
// the remaining path under the root, so
// https://schemas.example.com/hiring/v1/offer/schema.json is served from
// <root>/hiring/v1/offer/schema.json.
type SchemaSource struct {
	root string
}

// NewSchemaSource creates a schema source rooted at root.
// If root is empty, it defaults to "schemas".
func NewSchemaSource(root string) *SchemaSource {
	if root == "" {
		root = "schemas"
	}
	return &SchemaSource{root: root}
}

// ToLocalPath maps a schema URL to a path under the root. It returns false
// for URLs it cannot parse and for paths escaping the root.
func (s *SchemaSource) ToLocalPath(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return "", false
	}

	relative := filepath.FromSlash(strings.TrimPrefix(parsed.Path, "/"))
	path := filepath.Join(s.root, relative)

	// Join cleans "..", so a path escaping the root no longer has it as a
	// prefix.
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

// Fetch reads the schema document at a local path.
func (s *SchemaSource) Fetch(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetch schema %s: %w", path, err)
	}
	return data, nil
}
