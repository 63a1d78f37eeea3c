// Package offline implements the asset cache that sits in front of the
// app server: a fixed manifest of static paths is pre-cached per
// version-stamped generation and served cache-first, with an offline
// navigation fallback to the root document.
package offline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/log"
)

// Lifecycle states of a cache generation.
const (
	StateUninstalled = "uninstalled"
	StateInstalling  = "installing"
	StateInstalled   = "installed"
	StateActive      = "active"
)

// RootDocument is served as the offline shell for failed navigations,
// regardless of the originally requested path.
const RootDocument = "/index.html"

// Manager drives one cache generation through install and activate, and
// serves intercepted requests with a cache-first policy.
type Manager struct {
	storage    *Storage
	upstream   *url.URL
	client     *http.Client
	proxy      *httputil.ReverseProxy
	generation string
	manifest   []string
	logger     *log.Logger

	mu    sync.Mutex
	state string
}

// New creates a manager for the given generation name over shared
// storage. The manifest lists the asset paths populated at install time.
func New(storage *Storage, upstream *url.URL, generation string, manifest []string, logger *log.Logger) *Manager {
	m := &Manager{
		storage:    storage,
		upstream:   upstream,
		client:     &http.Client{},
		generation: generation,
		manifest:   manifest,
		logger:     logger.WithComponent("offline"),
		state:      StateUninstalled,
	}
	m.proxy = httputil.NewSingleHostReverseProxy(upstream)
	m.proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		m.logger.WarnContext(r.Context(), "Upstream proxy failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return m
}

// Generation returns the version-stamped cache name.
func (m *Manager) Generation() string { return m.generation }

// State returns the current lifecycle state.
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s string) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Install fetches every manifest path and commits the populated
// generation. Population is all-or-nothing: any fetch failure aborts the
// install and leaves existing generations untouched.
func (m *Manager) Install(ctx context.Context) error {
	m.setState(StateInstalling)

	var mu sync.Mutex
	entries := make(map[string]*CachedResponse, len(m.manifest))

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range m.manifest {
		g.Go(func() error {
			resp, sameOrigin, err := m.fetch(gctx, path)
			if err != nil {
				return fmt.Errorf("precache %s: %w", path, err)
			}
			if !sameOrigin {
				return fmt.Errorf("precache %s: response left upstream origin", path)
			}
			if resp.Status != http.StatusOK {
				return fmt.Errorf("precache %s: unexpected status %d", path, resp.Status)
			}
			mu.Lock()
			entries[path] = resp
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.setState(StateUninstalled)
		return fmt.Errorf("install generation %s: %w", m.generation, err)
	}

	m.storage.Commit(m.generation, entries)
	m.setState(StateInstalled)
	m.logger.InfoContext(ctx, "Generation installed", "generation", m.generation, "assets", len(entries))
	return nil
}

// Activate evicts every generation whose name differs from this one.
// Exactly one generation survives activation.
func (m *Manager) Activate(ctx context.Context) error {
	if !m.storage.Has(m.generation) {
		return fmt.Errorf("activate generation %s: not installed", m.generation)
	}
	for _, name := range m.storage.Names() {
		if name != m.generation {
			m.storage.Delete(name)
			m.logger.InfoContext(ctx, "Evicted stale generation", "generation", name)
		}
	}
	m.setState(StateActive)
	return nil
}

// ServeHTTP intercepts requests. GETs follow the cache-first policy;
// navigation requests go network-first and fall back to the cached root
// document when the network fails. Everything else is proxied to the
// upstream untouched, method and body included.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		m.proxy.ServeHTTP(w, r)
		return
	}

	if isNavigation(r) {
		m.serveNavigation(w, r)
		return
	}

	key := cacheKey(r)
	if cached, ok := m.storage.Match(m.generation, key); ok {
		writeCached(w, cached)
		return
	}

	resp, sameOrigin, err := m.fetch(r.Context(), key)
	if err != nil {
		m.logger.WarnContext(r.Context(), "Upstream fetch failed", "path", key, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	// Successful same-origin responses are written through to the cache,
	// except API content which is always dynamic.
	if resp.Status == http.StatusOK && sameOrigin && !strings.Contains(r.URL.Path, "/api/") {
		m.storage.Put(m.generation, key, resp)
	}
	writeCached(w, resp)
}

func (m *Manager) serveNavigation(w http.ResponseWriter, r *http.Request) {
	resp, _, err := m.fetch(r.Context(), cacheKey(r))
	if err == nil {
		writeCached(w, resp)
		return
	}

	shell, ok := m.storage.Match(m.generation, RootDocument)
	if !ok {
		m.logger.WarnContext(r.Context(), "Offline shell missing", "generation", m.generation)
		http.Error(w, "offline", http.StatusServiceUnavailable)
		return
	}
	m.logger.InfoContext(r.Context(), "Serving offline shell", "path", r.URL.Path)
	writeCached(w, shell)
}

// fetch performs a GET against the upstream for the given request path.
// The bool reports whether the final response still came from the
// upstream host; redirected cross-origin responses pass through but must
// never enter the cache.
func (m *Manager) fetch(ctx context.Context, path string) (*CachedResponse, bool, error) {
	target := m.upstream.ResolveReference(&url.URL{Path: strings.SplitN(path, "?", 2)[0], RawQuery: rawQuery(path)})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	sameOrigin := resp.Request == nil || resp.Request.URL.Host == m.upstream.Host

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	return &CachedResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, sameOrigin, nil
}

// cacheKey is the exact-match lookup key for a request.
func cacheKey(r *http.Request) string {
	return r.URL.RequestURI()
}

func rawQuery(path string) string {
	if i := strings.Index(path, "?"); i >= 0 {
		return path[i+1:]
	}
	return ""
}

// isNavigation reports whether the request is a full-page navigation.
func isNavigation(r *http.Request) bool {
	return r.Header.Get("Sec-Fetch-Mode") == "navigate"
}

func writeCached(w http.ResponseWriter, c *CachedResponse) {
	for k, vs := range c.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(c.Status)
	_, _ = w.Write(c.Body)
}
