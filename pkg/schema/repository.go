package schema

import (
	"log/slog"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/ports"
)

// refKey marks an object as a reference to another schema document.
const refKey = "$ref"

// versionSegment matches a version path segment such as "v1" or "0.2.0".
// URLs without one cannot identify a schema revision and resolve to nil.
var versionSegment = regexp.MustCompile(`(^|/)(v\d+|\d+\.\d+(\.\d+)?)(/|$)`)

// Repository fetches and caches schema documents by URL.
// Safe for concurrent use; lookups racing on the same uncached URL may both
// fetch, which is acceptable because the cache is idempotent.
type Repository struct {
	source ports.SchemaSource
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]map[string]any
}

// Option configures the Repository.
type Option func(*Repository)

// WithLogger sets the logger used for fetch and parse warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a repository backed by the given source.
func NewRepository(source ports.SchemaSource, opts ...Option) *Repository {
	r := &Repository{
		source: source,
		logger: logging.NewNop(),
		cache:  make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get resolves a schema URL to its fully expanded document. Results,
// including nil, are cached per URL. A nil result means there is no schema
// to validate against; callers must not treat it as an error.
func (r *Repository) Get(url string) map[string]any {
	return r.get(url, map[string]bool{})
}

// get carries the set of URLs currently being expanded on this call stack.
// A URL reappearing in the set is a reference cycle; the inner reference
// resolves to nil so expansion terminates.
func (r *Repository) get(url string, inflight map[string]bool) map[string]any {
	r.mu.RLock()
	cached, ok := r.cache[url]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	if inflight[url] {
		r.logger.Warn("schema reference cycle", "url", url)
		return nil
	}

	doc := r.load(url)
	if doc != nil {
		inflight[url] = true
		doc = r.expandObject(doc, inflight)
		delete(inflight, url)
	}

	r.mu.Lock()
	r.cache[url] = doc
	r.mu.Unlock()
	return doc
}

// load resolves, reads and parses a single document without expanding it.
func (r *Repository) load(url string) map[string]any {
	if !versionSegment.MatchString(url) {
		r.logger.Warn("schema url has no version segment", "url", url)
		return nil
	}

	path, ok := r.source.ToLocalPath(url)
	if !ok {
		r.logger.Warn("schema url not locally resolvable", "url", url)
		return nil
	}

	raw, err := r.source.Fetch(path)
	if err != nil {
		r.logger.Warn("failed to read schema", "url", url, "path", path, "err", err)
		return nil
	}

	// YAML is a superset of JSON, so one parser covers both formats.
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		r.logger.Warn("failed to parse schema", "url", url, "path", path, "err", err)
		return nil
	}
	return doc
}

// expandObject walks a document, replacing reference objects by the
// expanded documents they point to.
func (r *Repository) expandObject(doc map[string]any, inflight map[string]bool) map[string]any {
	if ref, ok := reference(doc); ok {
		return r.get(ref, inflight)
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = r.expandValue(v, inflight)
	}
	return out
}

func (r *Repository) expandValue(value any, inflight map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		expanded := r.expandObject(v, inflight)
		if expanded == nil {
			return v
		}
		return expanded
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = r.expandValue(e, inflight)
		}
		return out
	default:
		return value
	}
}

// reference returns the target URL if the object's sole relevant key is a
// $ref marker.
func reference(doc map[string]any) (string, bool) {
	ref, ok := doc[refKey].(string)
	if !ok || ref == "" {
		return "", false
	}
	for k := range doc {
		if k != refKey {
			return "", false
		}
	}
	return ref, true
}
