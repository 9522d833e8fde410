// Package regions discovers and caches the set of usable scan endpoints.
package regions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tagvet/tagvet/cache"
	"github.com/tagvet/tagvet/telemetry"
)

const cacheKey = "regions:usable:v1"

// EndpointRecord is one discoverable region as reported by the provider.
type EndpointRecord struct {
	ID      string `json:"id"`
	OptedIn bool   `json:"opted_in"`
}

// EndpointLister is the provider collaborator that enumerates regions.
type EndpointLister interface {
	ListEndpoints(ctx context.Context) ([]EndpointRecord, error)
}

// Resolution is the outcome of resolving scan targets. Degraded is set when
// the provider call failed and the directory fell back to a stale cache
// entry or the default endpoint; callers surface it as a warning.
type Resolution struct {
	Targets  []string
	Degraded bool
	Source   string // "cache", "provider", "stale-cache", "default"
}

// cacheEntry is the wholesale-replaced region cache value.
type cacheEntry struct {
	Endpoints []string  `json:"endpoints"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Directory resolves the set of usable endpoints for a scan. Discovery
// results live in the cache collaborator for the configured TTL; freshness
// is judged by the entry's own fetch timestamp so stale entries remain
// available as a fallback when the provider is unreachable.
type Directory struct {
	lister          EndpointLister
	cache           cache.Cache // may be nil: always-miss
	ttl             time.Duration
	defaultEndpoint string
	logger          *telemetry.Logger

	mu  sync.Mutex // serializes refresh, cache entry is replaced atomically
	now func() time.Time
}

// NewDirectory creates a directory backed by the given provider lister and
// cache. A nil cache degrades to always-miss behavior.
func NewDirectory(lister EndpointLister, c cache.Cache, ttl time.Duration, defaultEndpoint string) *Directory {
	return &Directory{
		lister:          lister,
		cache:           c,
		ttl:             ttl,
		defaultEndpoint: defaultEndpoint,
		logger:          telemetry.NewLogger("region-directory"),
		now:             time.Now,
	}
}

// ResolveTargets resolves the endpoint set for one scan. With an explicit
// filter every entry must exist in the currently known usable set; an
// unknown or opted-out entry fails the whole request with InvalidTargetError
// and no partial application. Without a filter the full usable set is
// returned.
func (d *Directory) ResolveTargets(ctx context.Context, explicitFilter []string) (Resolution, error) {
	res, err := d.usableEndpoints(ctx)
	if err != nil {
		return Resolution{}, err
	}

	if explicitFilter == nil {
		return res, nil
	}

	if len(explicitFilter) == 0 {
		return Resolution{}, &InvalidTargetError{Invalid: nil, Reason: "empty endpoint filter"}
	}

	known := make(map[string]bool, len(res.Targets))
	for _, e := range res.Targets {
		known[e] = true
	}

	var invalid []string
	for _, e := range explicitFilter {
		if !known[e] {
			invalid = append(invalid, e)
		}
	}
	if len(invalid) > 0 {
		return Resolution{}, &InvalidTargetError{Invalid: invalid, Reason: "unknown or opted-out endpoints"}
	}

	targets := append([]string(nil), explicitFilter...)
	return Resolution{Targets: targets, Degraded: res.Degraded, Source: res.Source}, nil
}

// Invalidate clears the cached endpoint list unconditionally. The next
// resolution performs a fresh provider call.
func (d *Directory) Invalidate() {
	if d.cache == nil {
		return
	}
	if err := d.cache.Delete(cacheKey); err != nil {
		d.logger.Warn().Err(err).Msg("failed to invalidate region cache")
	}
}

func (d *Directory) usableEndpoints(ctx context.Context) (Resolution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, found := d.loadEntry()
	if found && d.now().Sub(entry.FetchedAt) < d.ttl {
		return Resolution{Targets: entry.Endpoints, Source: "cache"}, nil
	}

	endpoints, err := d.fetchUsable(ctx)
	if err == nil {
		d.storeEntry(cacheEntry{Endpoints: endpoints, FetchedAt: d.now()})
		return Resolution{Targets: endpoints, Source: "provider"}, nil
	}

	// Provider call failed. Prefer a stale cache entry over the single
	// default endpoint; either way the result is degraded, not fatal.
	if found {
		d.logger.WithContext(ctx).Warn().
			Err(err).
			Time("fetched_at", entry.FetchedAt).
			Msg("region discovery failed, using stale cache entry")
		return Resolution{Targets: entry.Endpoints, Degraded: true, Source: "stale-cache"}, nil
	}

	d.logger.WithContext(ctx).Warn().
		Err(err).
		Str("default_endpoint", d.defaultEndpoint).
		Msg("region discovery failed with no cache entry, using default endpoint")
	return Resolution{Targets: []string{d.defaultEndpoint}, Degraded: true, Source: "default"}, nil
}

func (d *Directory) fetchUsable(ctx context.Context) ([]string, error) {
	records, err := d.lister.ListEndpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}

	usable := make([]string, 0, len(records))
	for _, r := range records {
		if r.OptedIn {
			usable = append(usable, r.ID)
		}
	}
	return usable, nil
}

func (d *Directory) loadEntry() (cacheEntry, bool) {
	if d.cache == nil {
		return cacheEntry{}, false
	}

	raw, ok := d.cache.Get(cacheKey)
	if !ok {
		return cacheEntry{}, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		d.logger.Warn().Err(err).Msg("corrupt region cache entry, treating as miss")
		return cacheEntry{}, false
	}
	return entry, true
}

func (d *Directory) storeEntry(entry cacheEntry) {
	if d.cache == nil {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to encode region cache entry")
		return
	}

	// Stored without a cache-level TTL: freshness is judged against
	// FetchedAt, and an aged entry still serves as the stale fallback.
	if err := d.cache.Set(cacheKey, raw, 0); err != nil {
		d.logger.Warn().Err(err).Msg("failed to store region cache entry")
	}
}
