package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dice-offline/internal/logger"
	"dice-offline/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const CacheNamePrefix = "dice-offline-"

var (
	// ErrOffline is returned when the network failed and no cached fallback exists.
	ErrOffline      = errors.New("offline and no cached fallback")
	ErrNotInstalled = errors.New("cache manager is not installed")
)

// DefaultManifest is the app shell. Changing it needs a cache version bump to
// reach instances that already installed.
var DefaultManifest = []string{
	"./",
	"./index.html",
	"./style.css",
	"./app.js",
	"./manifest.json",
	"./icon-192.png",
	"./icon-512.png",
	"./d20.svg",
}

// shellKeys are tried in order when a navigation cannot reach the network.
var shellKeys = []string{"/", "/index.html"}

// Fetcher performs a request against the network.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*models.CachedResponse, error)
}

type FetcherFunc func(ctx context.Context, req *http.Request) (*models.CachedResponse, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*models.CachedResponse, error) {
	return f(ctx, req)
}

type RequestKind int

const (
	KindPassthrough RequestKind = iota
	KindNavigate
	KindAsset
)

func (k RequestKind) String() string {
	switch k {
	case KindNavigate:
		return "navigate"
	case KindAsset:
		return "asset"
	default:
		return "passthrough"
	}
}

// IsNavigation reports whether req loads a page. Browsers send
// Sec-Fetch-Mode; older clients are recognised by a GET that accepts HTML.
func IsNavigation(req *http.Request) bool {
	if mode := req.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return req.Method == http.MethodGet && strings.Contains(req.Header.Get("Accept"), "text/html")
}

// NormalizePath turns manifest entries such as "./", "index.html" and
// "./style.css" into rooted paths.
func NormalizePath(p string) string {
	p = strings.TrimPrefix(strings.TrimSpace(p), ".")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	if trailing && p != "/" {
		p += "/"
	}
	return p
}

// CacheKey is the key a request is stored and matched under.
func CacheKey(u *url.URL) string {
	key := NormalizePath(u.Path)
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

type CacheManager struct {
	version  string
	name     string
	storage  CacheStorage
	network  Fetcher
	manifest []string
	excluded []string

	installed atomic.Bool
	pending   sync.WaitGroup
}

type ManagerOption func(*CacheManager)

func WithManifest(paths ...string) ManagerOption {
	return func(m *CacheManager) {
		m.manifest = dedupePaths(paths)
	}
}

// WithExcludedPrefixes keeps matching paths out of the cache entirely.
func WithExcludedPrefixes(prefixes ...string) ManagerOption {
	return func(m *CacheManager) {
		m.excluded = append(m.excluded, prefixes...)
	}
}

func NewCacheManager(version string, storage CacheStorage, network Fetcher, opts ...ManagerOption) *CacheManager {
	m := &CacheManager{
		version:  version,
		name:     CacheNamePrefix + version,
		storage:  storage,
		network:  network,
		manifest: dedupePaths(DefaultManifest),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *CacheManager) Name() string {
	return m.name
}

func (m *CacheManager) Version() string {
	return m.version
}

func (m *CacheManager) Manifest() []string {
	return append([]string(nil), m.manifest...)
}

func (m *CacheManager) Installed() bool {
	return m.installed.Load()
}

// Install fetches the whole manifest and stores it under this version's
// cache. Nothing is stored unless every entry fetched with a 2xx status.
func (m *CacheManager) Install(ctx context.Context) error {
	responses := make([]*models.CachedResponse, len(m.manifest))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range m.manifest {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, p, nil)
			if err != nil {
				return fmt.Errorf("build request for %s: %w", p, err)
			}
			resp, err := m.network.Fetch(gctx, req)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", p, err)
			}
			if !resp.OK() {
				return fmt.Errorf("fetch %s: unexpected status %d", p, resp.Status)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("install %s: %w", m.name, err)
	}

	if err := m.storage.Open(ctx, m.name); err != nil {
		return fmt.Errorf("install %s: %w", m.name, err)
	}
	for i, p := range m.manifest {
		if err := m.storage.Put(ctx, m.name, p, responses[i]); err != nil {
			m.discard(ctx)
			return fmt.Errorf("install %s: %w", m.name, err)
		}
	}

	m.installed.Store(true)
	logger.WithCtx(ctx).Info("offline cache installed",
		zap.String("cache", m.name),
		zap.Int("assets", len(m.manifest)),
	)
	return nil
}

// discard drops a partly written cache so a later Restore cannot adopt it.
func (m *CacheManager) discard(ctx context.Context) {
	if _, err := m.storage.DeleteCache(context.WithoutCancel(ctx), m.name); err != nil {
		logger.WithCtx(ctx).Warn("failed to discard partial cache",
			zap.String("cache", m.name),
			zap.Error(err),
		)
	}
}

// Restore adopts a cache this version installed in an earlier run. It
// reports false when no such cache exists or when any manifest entry is
// missing from it; an incomplete cache is discarded.
func (m *CacheManager) Restore(ctx context.Context) (bool, error) {
	names, err := m.storage.Names(ctx)
	if err != nil {
		return false, fmt.Errorf("restore %s: %w", m.name, err)
	}
	if !slices.Contains(names, m.name) {
		return false, nil
	}

	for _, key := range m.manifest {
		_, ok, err := m.storage.Match(ctx, m.name, key)
		if err != nil {
			return false, fmt.Errorf("restore %s: %w", m.name, err)
		}
		if !ok {
			logger.WithCtx(ctx).Warn("cache incomplete, reinstalling",
				zap.String("cache", m.name),
				zap.String("missing", key),
			)
			m.discard(ctx)
			return false, nil
		}
	}

	m.installed.Store(true)
	return true, nil
}

// Activate deletes every cache store except this version's and returns the
// names it removed.
func (m *CacheManager) Activate(ctx context.Context) ([]string, error) {
	if !m.installed.Load() {
		return nil, ErrNotInstalled
	}

	names, err := m.storage.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("activate %s: %w", m.name, err)
	}

	var deleted []string
	for _, name := range names {
		if name == m.name {
			continue
		}
		ok, err := m.storage.DeleteCache(ctx, name)
		if err != nil {
			return deleted, fmt.Errorf("activate %s: %w", m.name, err)
		}
		if ok {
			deleted = append(deleted, name)
		}
	}

	logger.WithCtx(ctx).Info("offline cache activated",
		zap.String("cache", m.name),
		zap.Strings("deleted", deleted),
	)
	return deleted, nil
}

func (m *CacheManager) Classify(req *http.Request) RequestKind {
	key := NormalizePath(req.URL.Path)
	for _, prefix := range m.excluded {
		if strings.HasPrefix(key, prefix) {
			return KindPassthrough
		}
	}
	if IsNavigation(req) {
		return KindNavigate
	}
	if req.Method != http.MethodGet {
		return KindPassthrough
	}
	return KindAsset
}

// Fetch serves req according to its kind:
//
//	navigate     network first, then the cached shell ("/", then "/index.html")
//	asset        cache first, then network (storing 2xx copies), then the cached "/"
//	passthrough  network only
func (m *CacheManager) Fetch(ctx context.Context, req *http.Request) (*models.CachedResponse, models.CacheSource, error) {
	switch m.Classify(req) {
	case KindNavigate:
		return m.fetchNavigate(ctx, req)
	case KindAsset:
		return m.fetchAsset(ctx, req)
	default:
		resp, err := m.network.Fetch(ctx, req)
		return resp, models.SourcePassthrough, err
	}
}

func (m *CacheManager) fetchNavigate(ctx context.Context, req *http.Request) (*models.CachedResponse, models.CacheSource, error) {
	resp, netErr := m.network.Fetch(ctx, req)
	if netErr == nil {
		return resp, models.SourceNetwork, nil
	}

	for _, key := range shellKeys {
		if cached, ok := m.match(ctx, key); ok {
			return cached, models.SourceFallback, nil
		}
	}
	return nil, "", fmt.Errorf("navigate %s: %w: %w", req.URL.Path, ErrOffline, netErr)
}

func (m *CacheManager) fetchAsset(ctx context.Context, req *http.Request) (*models.CachedResponse, models.CacheSource, error) {
	key := CacheKey(req.URL)
	if cached, ok := m.match(ctx, key); ok {
		return cached, models.SourceCache, nil
	}

	resp, netErr := m.network.Fetch(ctx, req)
	if netErr != nil {
		if cached, ok := m.match(ctx, shellKeys[0]); ok {
			return cached, models.SourceFallback, nil
		}
		return nil, "", fmt.Errorf("fetch %s: %w: %w", key, ErrOffline, netErr)
	}

	if resp.OK() {
		m.storeInBackground(ctx, key, resp.Clone())
	}
	return resp, models.SourceMiss, nil
}

// storeInBackground stores resp without holding up the response. Wait blocks
// until every pending store has finished.
func (m *CacheManager) storeInBackground(ctx context.Context, key string, resp *models.CachedResponse) {
	storeCtx := context.WithoutCancel(ctx)
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		if resp.StoredAt.IsZero() {
			resp.StoredAt = time.Now().UTC()
		}
		if err := m.storage.Put(storeCtx, m.name, key, resp); err != nil {
			logger.WithCtx(storeCtx).Warn("failed to store asset",
				zap.String("cache", m.name),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}()
}

// match looks only at this version's cache. Storage errors count as a miss.
func (m *CacheManager) match(ctx context.Context, key string) (*models.CachedResponse, bool) {
	cached, ok, err := m.storage.Match(ctx, m.name, key)
	if err != nil {
		logger.WithCtx(ctx).Warn("cache match failed",
			zap.String("cache", m.name),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	return cached, ok
}

// Wait blocks until background stores started by Fetch have completed.
func (m *CacheManager) Wait() {
	m.pending.Wait()
}

func dedupePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		n := NormalizePath(p)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Controller routes requests through the active cache manager. Until a
// manager has activated, every request goes straight to the network.
type Controller struct {
	network Fetcher
	active  atomic.Pointer[CacheManager]
}

func NewController(network Fetcher) *Controller {
	return &Controller{network: network}
}

// Register installs m, activates it without waiting for the previous manager
// to go idle, and claims all subsequent requests. Requests already in flight
// finish on the manager they started with.
func (c *Controller) Register(ctx context.Context, m *CacheManager) error {
	if err := m.Install(ctx); err != nil {
		return fmt.Errorf("register %s: %w", m.Name(), err)
	}
	if _, err := m.Activate(ctx); err != nil {
		return fmt.Errorf("register %s: %w", m.Name(), err)
	}
	c.active.Store(m)
	return nil
}

// Resume claims requests for m straight away when its cache survived from a
// previous run; otherwise it behaves like Register.
func (c *Controller) Resume(ctx context.Context, m *CacheManager) error {
	restored, err := m.Restore(ctx)
	if err != nil {
		return err
	}
	if !restored {
		return c.Register(ctx, m)
	}
	if _, err := m.Activate(ctx); err != nil {
		return fmt.Errorf("resume %s: %w", m.Name(), err)
	}
	c.active.Store(m)
	return nil
}

func (c *Controller) Active() *CacheManager {
	return c.active.Load()
}

func (c *Controller) Fetch(ctx context.Context, req *http.Request) (*models.CachedResponse, models.CacheSource, error) {
	if m := c.active.Load(); m != nil {
		return m.Fetch(ctx, req)
	}
	resp, err := c.network.Fetch(ctx, req)
	return resp, models.SourcePassthrough, err
}
