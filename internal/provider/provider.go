// Package provider polls remote SAO providers over HTTP and feeds their
// contributions into the store. Each provider exposes two endpoints:
// GET /hello (liveness/identity check) and GET /all_data (the full
// current object list). A fetch that fails at the network or HTTP-status
// level leaves the provider's previous contribution untouched; a fetch
// that succeeds but decodes into invalid SAOs clears the provider's
// contribution to empty and marks it degraded, rather than serving
// stale-but-plausible data next to a provider that is actively lying.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oxhq/saq/internal/lang/parser"
	"github.com/oxhq/saq/internal/metrics"
	"github.com/oxhq/saq/internal/store"
	"github.com/oxhq/saq/internal/value"
)

// Source names one provider by its configured base URL. The store's
// actual provider key is not this URL but the name the provider declares
// in its /hello response, resolved fresh each time a worker starts.
type Source struct {
	BaseURL string
}

// modeAllAtOnce is the only /hello mode this shell understands: the
// provider's entire object list is re-sent whole on every /all_data
// fetch, rather than as incremental deltas.
const modeAllAtOnce = "ALL_AT_ONCE"

// HelloResponse is a provider's answer to GET /hello: its self-declared
// identity and the only piece of its contract the shell actually checks
// before polling it.
type HelloResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
	Version     string `json:"version"`
}

// Poller periodically fetches every configured provider's /all_data and
// replaces its contribution in the store. One Poller owns all providers
// for a shell instance; each provider's fetch runs on its own interval
// tick so a slow provider never delays the others.
type Poller struct {
	store    *store.Store
	sources  []Source
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	degraded map[string]bool
}

// New builds a Poller. interval is how often each provider is refetched;
// timeout bounds a single fetch.
func New(s *store.Store, sources []Source, interval, timeout time.Duration, log *zap.Logger) *Poller {
	return &Poller{
		store:    s,
		sources:  sources,
		client:   &http.Client{},
		interval: interval,
		timeout:  timeout,
		log:      log,
		degraded: make(map[string]bool),
	}
}

// Run blocks, polling every provider on its own ticker, until ctx is
// canceled. Each provider's poll loop is supervised by an errgroup so a
// panic-free fetch error is logged and retried on the next tick rather
// than bringing down the others; Run itself only returns when ctx ends
// (or a provider goroutine returns a non-nil error, which none do by
// design — fetch failures are handled internally).
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range p.sources {
		src := src
		g.Go(func() error {
			p.pollLoop(ctx, src)
			return nil
		})
	}
	return g.Wait()
}

// FetchAllOnce runs a single fetch for every configured provider and
// waits for them all to finish, for one-shot query invocations that
// don't want a background poll loop.
func (p *Poller) FetchAllOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, src := range p.sources {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, ok := p.handshake(ctx, src)
			if !ok {
				return
			}
			p.fetchOnce(ctx, src, name)
		}()
	}
	wg.Wait()
}

func (p *Poller) pollLoop(ctx context.Context, src Source) {
	name, ok := p.handshake(ctx, src)
	if !ok {
		return
	}
	p.fetchOnce(ctx, src, name)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchOnce(ctx, src, name)
		}
	}
}

// handshake performs the mandatory /hello call a worker makes on start: it
// resolves the provider's declared name (the actual store source key) and
// rejects any provider not offering the only delivery mode this shell
// speaks, ALL_AT_ONCE.
func (p *Poller) handshake(ctx context.Context, src Source) (string, bool) {
	hello, err := p.fetchHello(ctx, src)
	if err != nil {
		p.log.Warn("hello handshake failed, skipping provider",
			zap.String("base_url", src.BaseURL), zap.Error(err))
		return "", false
	}
	if hello.Mode != modeAllAtOnce {
		p.log.Warn("provider mode unsupported, skipping",
			zap.String("base_url", src.BaseURL), zap.String("name", hello.Name), zap.String("mode", hello.Mode))
		return "", false
	}
	return hello.Name, true
}

func (p *Poller) fetchHello(ctx context.Context, src Source) (*HelloResponse, error) {
	url := strings.TrimRight(src.BaseURL, "/") + "/hello"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	var hello HelloResponse
	if err := sonic.Unmarshal(body, &hello); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	if hello.Name == "" {
		return nil, fmt.Errorf("%s: empty name", url)
	}
	return &hello, nil
}

// Degraded reports whether source's last fetch left it cleared to empty
// due to malformed data.
func (p *Poller) Degraded(source string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded[source]
}

func (p *Poller) fetchOnce(ctx context.Context, src Source, name string) {
	stop := metrics.Timer("provider_fetch")
	defer stop()

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	objects, err := p.fetchAllData(fetchCtx, src, name)
	metrics.ProviderFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		var malformed *malformedError
		if isMalformed(err, &malformed) {
			p.log.Warn("provider returned malformed data, clearing contribution",
				zap.String("source", name), zap.Error(err))
			p.store.ClearProvider(name)
			p.setDegraded(name, true)
			metrics.ProviderFetchTotal.WithLabelValues(name, "malformed").Inc()
			return
		}
		p.log.Warn("provider fetch failed, keeping previous contribution",
			zap.String("source", name), zap.Error(err))
		metrics.ProviderFetchTotal.WithLabelValues(name, "network_error").Inc()
		return
	}

	p.store.ReplaceProvider(name, objects)
	p.setDegraded(name, false)
	metrics.ProviderFetchTotal.WithLabelValues(name, "ok").Inc()
}

func (p *Poller) setDegraded(source string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.degraded[source] = v
}

// malformedError distinguishes "the provider is unreachable, keep
// serving stale data" from "the provider answered but the payload is
// garbage, serve nothing" failures.
type malformedError struct{ cause error }

func (e *malformedError) Error() string { return e.cause.Error() }
func (e *malformedError) Unwrap() error { return e.cause }

func isMalformed(err error, target **malformedError) bool {
	if me, ok := err.(*malformedError); ok {
		*target = me
		return true
	}
	return false
}

func (p *Poller) fetchAllData(ctx context.Context, src Source, name string) ([]*value.SAO, error) {
	url := strings.TrimRight(src.BaseURL, "/") + "/all_data"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	var raw []map[string]interface{}
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, &malformedError{cause: fmt.Errorf("decoding %s: %w", url, err)}
	}

	out := make([]*value.SAO, 0, len(raw))
	for i, r := range raw {
		o, err := decodeSAO(r, name)
		if err != nil {
			return nil, &malformedError{cause: fmt.Errorf("object %d from %s: %w", i, url, err)}
		}
		out = append(out, o)
	}
	return out, nil
}

// decodeSAO builds an SAO from one /all_data entry. source is the name
// the provider declared at /hello, not the wire object's own __source__
// field: the latter is still required to be present and well-formed (the
// provider's self-report must be internally consistent), but the
// handshake-resolved name is what the store actually indexes under, so a
// provider can't claim to speak for a different source than the one it
// authenticated as.
func decodeSAO(raw map[string]interface{}, source string) (*value.SAO, error) {
	idRaw, ok := raw[value.FieldID]
	if !ok {
		return nil, fmt.Errorf("missing %s", value.FieldID)
	}
	id, ok := idRaw.(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%s must be a non-empty string", value.FieldID)
	}

	typesRaw, ok := raw[value.FieldTypes]
	if !ok {
		return nil, fmt.Errorf("missing %s", value.FieldTypes)
	}
	typesList, ok := typesRaw.([]interface{})
	if !ok || len(typesList) == 0 {
		return nil, fmt.Errorf("%s must be a non-empty array", value.FieldTypes)
	}
	types := make([]string, 0, len(typesList))
	seen := make(map[string]struct{}, len(typesList))
	for _, t := range typesList {
		s, ok := t.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%s entries must be non-empty strings", value.FieldTypes)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("duplicate type %q", s)
		}
		seen[s] = struct{}{}
		types = append(types, s)
	}

	sourceRaw, ok := raw[value.FieldSource]
	if !ok {
		return nil, fmt.Errorf("missing %s", value.FieldSource)
	}
	if _, ok := sourceRaw.(string); !ok {
		return nil, fmt.Errorf("%s must be a string", value.FieldSource)
	}

	fields := value.NewMap()
	for k, v := range raw {
		if k == value.FieldID || k == value.FieldTypes || k == value.FieldSource {
			continue
		}
		fv, err := convertJSON(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields.Set(k, fv)
	}

	o := &value.SAO{ID: id, Source: source, Types: types, Fields: fields}
	if err := value.ValidateSAO(o); err != nil {
		return nil, err
	}
	return o, nil
}

// fieldSAType is the reserved key marking a map as a link rather than a
// plain nested object: {"__sa_type__": "link", "query": "...", "label": "..."}.
const fieldSAType = "__sa_type__"

// convertJSON maps a decoded JSON value to the engine's Value sum type. A
// nested object bearing __sa_type__: "link" becomes a value.Link, its
// query string parsed eagerly at decode time so a bad query surfaces as a
// malformed-payload error rather than failing silently the first time some
// query traverses the field.
func convertJSON(v interface{}) (value.Value, error) {
	switch tv := v.(type) {
	case nil:
		return value.Null{}, nil
	case bool:
		return value.Bool(tv), nil
	case string:
		return value.Str(tv), nil
	case float64:
		if tv == float64(int64(tv)) {
			return value.Int(int64(tv)), nil
		}
		return value.Float(tv), nil
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return value.Int(i), nil
		}
		f, _ := tv.Float64()
		return value.Float(f), nil
	case []interface{}:
		out := make(value.List, len(tv))
		for i, e := range tv {
			ev, err := convertJSON(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case map[string]interface{}:
		if isLink(tv) {
			return asLink(tv)
		}
		m := value.NewMap()
		for k, e := range tv {
			ev, err := convertJSON(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(k, ev)
		}
		return m, nil
	default:
		return value.Absorbing, nil
	}
}

func isLink(m map[string]interface{}) bool {
	t, ok := m[fieldSAType].(string)
	return ok && t == "link"
}

func asLink(m map[string]interface{}) (value.Link, error) {
	queryText, ok := m["query"].(string)
	if !ok || queryText == "" {
		return value.Link{}, fmt.Errorf("link missing non-empty query string")
	}
	chain, err := parser.Parse(queryText)
	if err != nil {
		return value.Link{}, fmt.Errorf("link query %q: %w", queryText, err)
	}
	label, _ := m["label"].(string)
	return value.Link{QueryText: queryText, Query: chain, Label: label}, nil
}
