package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/ports"
	"github.com/flowdhq/flowd/pkg/projection"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeForm      = "application/x-www-form-urlencoded"
	contentTypeMultipart = "multipart/form-data"
)

// httpAuth configures outbound request authentication.
type httpAuth struct {
	Type     string `mapstructure:"type"` // "basic" or "bearer"
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

// httpSettings is the configuration surface of the http trigger. Per-action
// data fields overlay these defaults.
type httpSettings struct {
	URL        string            `mapstructure:"url"`
	Method     string            `mapstructure:"method"`
	Headers    map[string]string `mapstructure:"headers"`
	Query      map[string]string `mapstructure:"query"`
	Auth       *httpAuth         `mapstructure:"auth"`
	Body       any               `mapstructure:"body"`
	Projection string            `mapstructure:"projection"`

	// Requests declares concurrent mode: a map of request keys to
	// per-request overrides, each inheriting unset fields from the
	// action-level config.
	Requests map[string]map[string]any `mapstructure:"requests"`
}

// HTTP invokes a webhook and converts the HTTP outcome into a response.
// With a requests map configured it issues all requests in parallel and
// combines the results.
type HTTP struct {
	client   ports.HTTPDoer
	logger   *slog.Logger
	timeout  time.Duration
	settings httpSettings
}

// HTTPOption configures the base http trigger.
type HTTPOption func(*HTTP)

// WithHTTPTimeout bounds each outbound call. Default 30s.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(t *HTTP) {
		t.timeout = d
	}
}

// NewHTTP creates the base http trigger.
func NewHTTP(client ports.HTTPDoer, logger *slog.Logger, opts ...HTTPOption) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &HTTP{
		client:  client,
		logger:  logger,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithConfig returns a copy configured with the given settings. The
// receiver's settings maps are deep-copied first: mapstructure decodes into
// existing maps, and the receiver may itself be a configured copy whose
// maps must stay untouched.
func (t *HTTP) WithConfig(settings map[string]any) (Trigger, error) {
	out := *t
	out.settings = t.settings.clone()
	if err := mapstructure.Decode(settings, &out.settings); err != nil {
		return nil, &domain.ConfigurationError{Component: "http trigger", Reason: "invalid settings", Cause: err}
	}
	return &out, nil
}

func (s httpSettings) clone() httpSettings {
	out := s
	out.Headers = cloneStringMap(s.Headers)
	out.Query = cloneStringMap(s.Query)
	if s.Auth != nil {
		auth := *s.Auth
		out.Auth = &auth
	}
	out.Body = projection.CloneValue(s.Body)
	if s.Requests != nil {
		out.Requests = make(map[string]map[string]any, len(s.Requests))
		for k, v := range s.Requests {
			out.Requests[k] = projection.Clone(v)
		}
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Apply builds and issues the configured request(s). A 202 status defers:
// Apply returns (nil, nil) and the eventual response arrives out-of-band.
func (t *HTTP) Apply(ctx context.Context, process *domain.Process, action *domain.Action) (*domain.Response, error) {
	overlay, err := fields(process, action, t.settings.Projection)
	if err != nil {
		return nil, err
	}

	if requests := t.requests(overlay); len(requests) > 0 {
		return t.applyConcurrent(ctx, action, overlay, requests)
	}

	spec, err := t.resolve(overlay)
	if err != nil {
		return nil, err
	}
	return t.do(ctx, action, "", spec)
}

// requestSpec is one fully resolved outbound request.
type requestSpec struct {
	url     string
	method  string
	headers map[string]string
	query   map[string]string
	auth    *httpAuth
	body    any
}

// resolve overlays per-action data fields over the trigger defaults.
func (t *HTTP) resolve(overlay map[string]any) (*requestSpec, error) {
	spec := &requestSpec{
		url:     t.settings.URL,
		method:  t.settings.Method,
		headers: t.settings.Headers,
		query:   t.settings.Query,
		auth:    t.settings.Auth,
		body:    t.settings.Body,
	}
	if err := overlaySpec(spec, overlay); err != nil {
		return nil, err
	}
	if spec.url == "" {
		return nil, &domain.ConfigurationError{Component: "http trigger", Reason: "no url configured"}
	}
	if spec.method == "" {
		if spec.body != nil {
			spec.method = http.MethodPost
		} else {
			spec.method = http.MethodGet
		}
	}
	return spec, nil
}

func overlaySpec(spec *requestSpec, overlay map[string]any) error {
	var fields struct {
		URL     string            `mapstructure:"url"`
		Method  string            `mapstructure:"method"`
		Headers map[string]string `mapstructure:"headers"`
		Query   map[string]string `mapstructure:"query"`
		Auth    *httpAuth         `mapstructure:"auth"`
		Body    any               `mapstructure:"body"`
	}
	if err := mapstructure.Decode(overlay, &fields); err != nil {
		return &domain.ConfigurationError{Component: "http trigger", Reason: "invalid request fields", Cause: err}
	}
	if fields.URL != "" {
		spec.url = fields.URL
	}
	if fields.Method != "" {
		spec.method = fields.Method
	}
	if len(fields.Headers) > 0 {
		merged := map[string]string{}
		for k, v := range spec.headers {
			merged[k] = v
		}
		for k, v := range fields.Headers {
			merged[k] = v
		}
		spec.headers = merged
	}
	if len(fields.Query) > 0 {
		merged := map[string]string{}
		for k, v := range spec.query {
			merged[k] = v
		}
		for k, v := range fields.Query {
			merged[k] = v
		}
		spec.query = merged
	}
	if fields.Auth != nil {
		spec.auth = fields.Auth
	}
	if fields.Body != nil {
		spec.body = fields.Body
	}
	return nil
}

// requests returns the concurrent request overrides, from the action data
// overlay or the trigger settings.
func (t *HTTP) requests(overlay map[string]any) map[string]map[string]any {
	raw, ok := overlay["requests"]
	if !ok {
		return t.settings.Requests
	}
	switch v := raw.(type) {
	case map[string]any:
		out := make(map[string]map[string]any, len(v))
		for k, entry := range v {
			out[k] = projection.AsObject(entry)
		}
		return out
	case []any:
		// Unnamed requests are keyed by numeric index.
		out := make(map[string]map[string]any, len(v))
		for i, entry := range v {
			out[strconv.Itoa(i)] = projection.AsObject(entry)
		}
		return out
	default:
		return t.settings.Requests
	}
}

// applyConcurrent issues all declared requests in parallel and combines the
// results. A failing sub-request never cancels its siblings; every
// outstanding request is awaited before combining.
func (t *HTTP) applyConcurrent(ctx context.Context, action *domain.Action, shared map[string]any, requests map[string]map[string]any) (*domain.Response, error) {
	generic := projection.Clone(shared)
	delete(generic, "requests")

	keys := make([]string, 0, len(requests))
	for k := range requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Resolve every request up front so configuration errors surface before
	// any side effect is issued.
	specs := make([]*requestSpec, len(keys))
	for i, key := range keys {
		merged := projection.Patch(generic, requests[key], projection.ModePatch)
		spec, err := t.resolve(merged)
		if err != nil {
			return nil, fmt.Errorf("request %q: %w", key, err)
		}
		specs[i] = spec
	}

	results := make([]*domain.Response, len(keys))
	var wg sync.WaitGroup
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := t.do(ctx, action, keys[i], specs[i])
			if err != nil {
				// do only fails on request construction; record it as an
				// error result rather than losing the sibling outcomes.
				resp = syntheticError(action, err.Error())
			}
			results[i] = resp
		}(i)
	}
	wg.Wait()

	data := map[string]any{}
	errs := map[string]any{}
	for i, key := range keys {
		sub := results[i]
		if sub == nil {
			// Deferred sub-responses are dropped from the combined data.
			continue
		}
		if sub.Key == domain.DefaultResponseKey {
			data[key] = sub.Data
		} else {
			errs[key] = sub.Data
		}
	}

	key := domain.DefaultResponseKey
	if len(errs) > 0 {
		key = domain.ErrorResponseKey
		data[domain.ErrorsAssetKey] = errs
	}

	return &domain.Response{Action: action.Key, Key: key, Data: data}, nil
}

// do issues a single request and classifies the outcome. It returns
// (nil, nil) for a deferred (202) response. Transport failures and 5xx
// statuses are absorbed into a synthetic error response so a broken
// downstream never crashes the engine.
func (t *HTTP) do(ctx context.Context, action *domain.Action, key string, spec *requestSpec) (*domain.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := t.buildRequest(ctx, spec)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("http trigger request failed",
			"action", action.Key, "request", key, "url", spec.url, "err", err)
		return syntheticError(action, fmt.Sprintf("request to %s failed", spec.url)), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.logger.Warn("http trigger response read failed",
			"action", action.Key, "request", key, "url", spec.url, "err", err)
		return syntheticError(action, fmt.Sprintf("request to %s failed", spec.url)), nil
	}

	return t.classify(action, key, spec, resp, raw), nil
}

func (t *HTTP) buildRequest(ctx context.Context, spec *requestSpec) (*http.Request, error) {
	contentType := ""
	for k, v := range spec.headers {
		if strings.EqualFold(k, "Content-Type") {
			contentType = v
		}
	}

	var body io.Reader
	sendContentType := contentType
	if spec.body != nil {
		encoded, effectiveType, err := encodeBody(spec.body, contentType)
		if err != nil {
			return nil, err
		}
		body = encoded
		sendContentType = effectiveType
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(spec.method), spec.url, body)
	if err != nil {
		return nil, &domain.ConfigurationError{Component: "http trigger", Reason: "invalid request", Cause: err}
	}

	if len(spec.query) > 0 {
		q := req.URL.Query()
		for k, v := range spec.query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	for k, v := range spec.headers {
		if strings.EqualFold(k, "Content-Type") {
			continue
		}
		req.Header.Set(k, v)
	}
	if sendContentType != "" {
		req.Header.Set("Content-Type", sendContentType)
	}

	if spec.auth != nil {
		switch strings.ToLower(spec.auth.Type) {
		case "basic":
			req.SetBasicAuth(spec.auth.Username, spec.auth.Password)
		case "bearer":
			req.Header.Set("Authorization", "Bearer "+spec.auth.Token)
		default:
			return nil, &domain.ConfigurationError{
				Component: "http trigger",
				Reason:    fmt.Sprintf("unsupported auth type %q", spec.auth.Type),
			}
		}
	}

	return req, nil
}

// encodeBody serializes the body according to the configured content type.
// Structured bodies default to JSON.
func encodeBody(body any, contentType string) (io.Reader, string, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch mediaType {
	case contentTypeForm:
		values := url.Values{}
		for k, v := range projection.AsObject(body) {
			values.Set(k, fmt.Sprint(v))
		}
		return strings.NewReader(values.Encode()), contentType, nil

	case contentTypeMultipart:
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		for k, v := range projection.AsObject(body) {
			if err := writer.WriteField(k, fmt.Sprint(v)); err != nil {
				return nil, "", fmt.Errorf("encode multipart field %q: %w", k, err)
			}
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("encode multipart body: %w", err)
		}
		// The writer picks the boundary, so its content type wins.
		return &buf, writer.FormDataContentType(), nil

	default:
		// Unstructured bodies pass through raw; structured ones default to
		// JSON.
		switch v := body.(type) {
		case string:
			if mediaType != contentTypeJSON {
				return strings.NewReader(v), contentType, nil
			}
		case []byte:
			return bytes.NewReader(v), contentType, nil
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		if mediaType == "" {
			contentType = contentTypeJSON
		}
		return bytes.NewReader(raw), contentType, nil
	}
}

// classify converts an HTTP outcome into a domain response.
//
//   - 202 defers (nil response)
//   - a status matching one of the action's declared response keys is used
//     verbatim
//   - 2xx -> ok, 4xx -> error, anything else -> synthetic error
func (t *HTTP) classify(action *domain.Action, key string, spec *requestSpec, resp *http.Response, raw []byte) *domain.Response {
	if resp.StatusCode == http.StatusAccepted {
		return nil
	}

	data := decodeResponseBody(resp.Header.Get("Content-Type"), raw)

	statusKey := strconv.Itoa(resp.StatusCode)
	if action.AllowsResponse(statusKey) {
		return &domain.Response{Action: action.Key, Key: statusKey, Data: data}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &domain.Response{Action: action.Key, Key: domain.DefaultResponseKey, Data: data}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &domain.Response{Action: action.Key, Key: domain.ErrorResponseKey, Data: data}
	default:
		t.logger.Warn("http trigger unexpected status",
			"action", action.Key, "request", key, "url", spec.url, "status", resp.StatusCode)
		return syntheticError(action, fmt.Sprintf("request to %s failed", spec.url))
	}
}

func decodeResponseBody(contentType string, raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && (mediaType == contentTypeJSON || strings.HasSuffix(mediaType, "+json")) {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return projection.AsObject(decoded)
		}
	}
	return map[string]any{"body": string(raw)}
}

func syntheticError(action *domain.Action, message string) *domain.Response {
	return &domain.Response{
		Action: action.Key,
		Key:    domain.ErrorResponseKey,
		Data:   map[string]any{"message": message},
	}
}
