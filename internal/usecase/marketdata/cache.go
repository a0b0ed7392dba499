// Package marketdata keeps the freshest known market snapshot and shields consumers
// from transient feed failures.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/simaogato/cryptodash-backend/internal/domain"
)

// Source is the external, read-only market feed
type Source interface {
	// FetchMarkets returns the top assets ordered by market capitalisation descending
	FetchMarkets(ctx context.Context) ([]domain.Asset, error)
}

// Snapshot is the state of the cache at one point in time
type Snapshot struct {
	Assets         []domain.Asset
	Loading        bool
	Error          string // empty when the last refresh succeeded
	FallbackActive bool
	UpdatedAt      time.Time
}

// Cache holds the most recently fetched asset list.
// Refreshes may overlap; the last one to complete wins.
type Cache struct {
	source Source
	policy RetryPolicy
	log    zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	assets    []domain.Asset
	inFlight  int
	errMsg    string
	fallback  bool
	updatedAt time.Time

	subMu       sync.Mutex
	subscribers map[uint64]chan Snapshot
	nextSubID   uint64
}

// NewCache creates an empty cache over source
func NewCache(source Source, policy RetryPolicy, log zerolog.Logger) *Cache {
	return &Cache{
		source:      source,
		policy:      policy,
		log:         log.With().Str("component", "market_cache").Logger(),
		now:         time.Now,
		subscribers: make(map[uint64]chan Snapshot),
	}
}

// Refresh fetches a new snapshot, retrying per the policy and falling back to the
// fixed dataset once every attempt failed.
// Fetch errors never escape: they are reported through Snapshot.Error.
// Logic:
//  1. Mark the cache as loading
//  2. Fetch; on failure publish a "Retrying..." message and wait for the next attempt
//  3. On success replace the assets and clear the error
//  4. After the last failed attempt replace the assets with FallbackAssets()
func (c *Cache) Refresh(ctx context.Context) Snapshot {
	c.begin()

	var (
		attempt uint64
		assets  []domain.Asset
	)
	err := retry.Do(ctx, c.policy.backoff(), func(ctx context.Context) error {
		attempt++
		fetched, err := c.source.FetchMarkets(ctx)
		if err != nil {
			fe := Classify(err)
			c.log.Warn().
				Err(err).
				Str("failure", fe.Kind.String()).
				Uint64("attempt", attempt).
				Uint64("max_attempts", c.policy.Attempts()).
				Msg("Market fetch failed")
			if attempt < c.policy.Attempts() {
				c.setError(RetryingMessage(err))
			}
			return retry.RetryableError(err)
		}
		assets = fetched
		return nil
	})

	switch {
	case err == nil:
		c.log.Info().Int("assets", len(assets)).Uint64("attempts", attempt).Msg("Market snapshot refreshed")
		return c.complete(assets, "", false)
	case ctx.Err() != nil:
		// Shutdown or caller cancellation: keep whatever is cached
		c.log.Debug().Err(ctx.Err()).Msg("Market refresh cancelled")
		return c.abort()
	default:
		c.log.Error().Err(err).Uint64("attempts", attempt).Msg("Market fetch retries exhausted, serving fallback data")
		return c.complete(FallbackAssets(), FallbackMessage(err), true)
	}
}

// Snapshot returns the current state without blocking on any fetch
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Assets returns a copy of the cached assets
func (c *Cache) Assets() []domain.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAssets(c.assets)
}

// Lookup returns a copy of the cached asset with the given ID
func (c *Cache) Lookup(assetID string) (domain.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	asset, ok := domain.FindAsset(c.assets, assetID)
	if !ok {
		return domain.Asset{}, false
	}
	return asset.Clone(), true
}

// Subscribe registers a consumer for change notifications.
// The channel always holds at most the latest snapshot; a slow consumer skips
// intermediate states. Call the returned func to unsubscribe; it is safe to call twice.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close unsubscribes every consumer
func (c *Cache) Close() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}

func (c *Cache) begin() {
	c.mu.Lock()
	c.inFlight++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

func (c *Cache) setError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

func (c *Cache) complete(assets []domain.Asset, errMsg string, fallback bool) Snapshot {
	c.mu.Lock()
	c.inFlight--
	c.assets = cloneAssets(assets)
	c.errMsg = errMsg
	c.fallback = fallback
	c.updatedAt = c.now()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return snap
}

func (c *Cache) abort() Snapshot {
	c.mu.Lock()
	c.inFlight--
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return snap
}

func (c *Cache) snapshotLocked() Snapshot {
	return Snapshot{
		Assets:         cloneAssets(c.assets),
		Loading:        c.inFlight > 0,
		Error:          c.errMsg,
		FallbackActive: c.fallback,
		UpdatedAt:      c.updatedAt,
	}
}

func (c *Cache) publish(snap Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// Replace the stale pending snapshot with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func cloneAssets(assets []domain.Asset) []domain.Asset {
	out := make([]domain.Asset, len(assets))
	for i, a := range assets {
		out[i] = a.Clone()
	}
	return out
}
