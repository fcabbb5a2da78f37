package schema_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/pkg/schema"
)

// fakeSource serves schema documents from a map and counts fetches.
type fakeSource struct {
	docs    map[string]string
	fetches map[string]int
}

func newFakeSource(docs map[string]string) *fakeSource {
	return &fakeSource{docs: docs, fetches: map[string]int{}}
}

func (s *fakeSource) ToLocalPath(url string) (string, bool) {
	path := strings.TrimPrefix(url, "https://specs.example.com/")
	if _, ok := s.docs[path]; !ok {
		return "", false
	}
	return path, true
}

func (s *fakeSource) Fetch(path string) ([]byte, error) {
	s.fetches[path]++
	doc, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("no such document: %s", path)
	}
	return []byte(doc), nil
}

func TestRepository_Get(t *testing.T) {
	source := newFakeSource(map[string]string{
		"v1/process": `{"title": "process", "properties": {"id": {"type": "string"}}}`,
	})
	repo := schema.NewRepository(source)

	doc := repo.Get("https://specs.example.com/v1/process")
	require.NotNil(t, doc)
	assert.Equal(t, "process", doc["title"])
}

func TestRepository_CacheIsIdempotent(t *testing.T) {
	source := newFakeSource(map[string]string{
		"v1/process": `{"title": "process"}`,
	})
	repo := schema.NewRepository(source)

	first := repo.Get("https://specs.example.com/v1/process")
	second := repo.Get("https://specs.example.com/v1/process")

	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.fetches["v1/process"], "second Get must hit the cache")
}

func TestRepository_UnversionedURL(t *testing.T) {
	source := newFakeSource(map[string]string{
		"process": `{"title": "process"}`,
	})
	repo := schema.NewRepository(source)

	assert.Nil(t, repo.Get("https://specs.example.com/process"))
	assert.Equal(t, 0, source.fetches["process"], "unversioned URLs must not be fetched")
}

func TestRepository_NestedRefExpansion(t *testing.T) {
	source := newFakeSource(map[string]string{
		"v1/leaf": `{"type": "string", "format": "iban"}`,
		"v1/root": `{
			"title": "root",
			"properties": {
				"outer": {
					"properties": {
						"inner": {
							"items": {"$ref": "https://specs.example.com/v1/leaf"}
						}
					}
				}
			}
		}`,
	})
	repo := schema.NewRepository(source)

	doc := repo.Get("https://specs.example.com/v1/root")
	require.NotNil(t, doc)

	outer := doc["properties"].(map[string]any)["outer"].(map[string]any)
	inner := outer["properties"].(map[string]any)["inner"].(map[string]any)
	items := inner["items"].(map[string]any)
	assert.Equal(t, "string", items["type"], "ref three levels deep must expand to the target document")
	assert.Equal(t, "iban", items["format"])

	// The referenced document is cached independently.
	leaf := repo.Get("https://specs.example.com/v1/leaf")
	require.NotNil(t, leaf)
	assert.Equal(t, 1, source.fetches["v1/leaf"])
}

func TestRepository_CycleGuard(t *testing.T) {
	source := newFakeSource(map[string]string{
		"v1/a": `{"title": "a", "next": {"$ref": "https://specs.example.com/v1/b"}}`,
		"v1/b": `{"title": "b", "next": {"$ref": "https://specs.example.com/v1/a"}}`,
	})
	repo := schema.NewRepository(source)

	doc := repo.Get("https://specs.example.com/v1/a")
	require.NotNil(t, doc, "a cyclic graph must still resolve the outer document")
	assert.Equal(t, "a", doc["title"])

	next := doc["next"].(map[string]any)
	assert.Equal(t, "b", next["title"])
}

func TestRepository_MalformedDocument(t *testing.T) {
	source := newFakeSource(map[string]string{
		"v1/bad": `{"title": ]`,
	})
	repo := schema.NewRepository(source)

	assert.Nil(t, repo.Get("https://specs.example.com/v1/bad"))

	// The nil result is cached as well.
	assert.Nil(t, repo.Get("https://specs.example.com/v1/bad"))
	assert.Equal(t, 1, source.fetches["v1/bad"])
}

func TestRepository_UnknownURL(t *testing.T) {
	repo := schema.NewRepository(newFakeSource(nil))
	assert.Nil(t, repo.Get("https://specs.example.com/v1/missing"))
}

func TestRepository_RefWithSiblingKeysNotExpanded(t *testing.T) {
	source := newFakeSource(map[string]string{
		"v1/leaf": `{"type": "string"}`,
		"v1/root": `{"field": {"$ref": "https://specs.example.com/v1/leaf", "description": "annotated"}}`,
	})
	repo := schema.NewRepository(source)

	doc := repo.Get("https://specs.example.com/v1/root")
	require.NotNil(t, doc)
	field := doc["field"].(map[string]any)
	assert.Equal(t, "https://specs.example.com/v1/leaf", field["$ref"],
		"an object with keys besides $ref is not a pure reference")
}
