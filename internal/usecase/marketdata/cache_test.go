package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	assets []domain.Asset
	err    error
}

// fakeSource replays scripted results; the last one repeats once the script runs out
type fakeSource struct {
	mu      sync.Mutex
	calls   int
	results []fakeResult
	onCall  func(call int)
}

func (f *fakeSource) FetchMarkets(ctx context.Context) ([]domain.Asset, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	r := f.results[len(f.results)-1]
	if call <= len(f.results) {
		r = f.results[call-1]
	}
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return r.assets, r.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errRefused = errors.New("connection refused")

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Delay: time.Millisecond}
}

func liveAssets() []domain.Asset {
	return []domain.Asset{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: decimal.NewFromInt(60000)},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: decimal.NewFromInt(3000)},
	}
}

func TestCache_RefreshSuccess(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{assets: liveAssets()}}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())

	snap := cache.Refresh(context.Background())

	assert.Equal(t, 1, src.Calls())
	assert.Len(t, snap.Assets, 2)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.FallbackActive)
	assert.False(t, snap.Loading)
	assert.False(t, snap.UpdatedAt.IsZero())

	btc, ok := cache.Lookup("bitcoin")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(60000).Equal(btc.CurrentPrice))
}

func TestCache_FallbackAfterAllAttemptsFail(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{err: errRefused}}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())

	snap := cache.Refresh(context.Background())

	// 1 initial attempt + 3 retries
	assert.Equal(t, 4, src.Calls())
	assert.True(t, snap.FallbackActive)
	assert.Equal(t, "Failed to fetch cryptocurrency data. No response from server. Using fallback data.", snap.Error)
	require.Len(t, snap.Assets, 5)
	assert.Equal(t, "bitcoin", snap.Assets[0].ID)
	assert.Equal(t, FallbackAssets(), cache.Assets())
}

func TestCache_ThreeConsecutiveFailuresLeaveFallback(t *testing.T) {
	src := &fakeSource{results: []fakeResult{
		{err: errRefused},
		{err: &FetchError{Kind: FailureTimeout, Err: context.DeadlineExceeded}},
		{err: &FetchError{Kind: FailureServer, StatusCode: 500, Err: errors.New("internal error")}},
		{assets: liveAssets()},
	}}
	policy := RetryPolicy{MaxRetries: 2, Delay: time.Millisecond}
	require.Equal(t, uint64(3), policy.Attempts())
	cache := NewCache(src, policy, zerolog.Nop())

	snap := cache.Refresh(context.Background())

	// the fourth scripted result is never requested
	assert.Equal(t, 3, src.Calls())
	assert.True(t, snap.FallbackActive)
	assert.False(t, snap.Loading)
	assert.Equal(t, FallbackAssets(), snap.Assets)
	assert.Equal(t, FallbackAssets(), cache.Assets())
}

func TestCache_RecoversWithinRetryBudget(t *testing.T) {
	src := &fakeSource{results: []fakeResult{
		{err: errRefused},
		{err: &FetchError{Kind: FailureServer, StatusCode: 503, Err: errors.New("unavailable")}},
		{assets: liveAssets()},
	}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())

	snap := cache.Refresh(context.Background())

	assert.Equal(t, 3, src.Calls())
	assert.Empty(t, snap.Error)
	assert.False(t, snap.FallbackActive)
	assert.Len(t, snap.Assets, 2)
}

func TestCache_RetryingMessageVisibleBetweenAttempts(t *testing.T) {
	src := &fakeSource{results: []fakeResult{
		{err: &FetchError{Kind: FailureTimeout, Err: context.DeadlineExceeded}},
		{assets: liveAssets()},
	}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())

	var seen Snapshot
	src.onCall = func(call int) {
		if call == 2 {
			seen = cache.Snapshot()
		}
	}

	cache.Refresh(context.Background())

	assert.True(t, seen.Loading)
	assert.Equal(t, "Failed to fetch cryptocurrency data. Request timed out. Retrying...", seen.Error)
}

func TestCache_ServerErrorFallbackMessage(t *testing.T) {
	src := &fakeSource{results: []fakeResult{
		{err: &FetchError{Kind: FailureServer, StatusCode: 429, Err: errors.New("too many requests")}},
	}}
	cache := NewCache(src, RetryPolicy{MaxRetries: 0, Delay: time.Millisecond}, zerolog.Nop())

	snap := cache.Refresh(context.Background())

	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, "Failed to fetch cryptocurrency data. Server error: 429. Using fallback data.", snap.Error)
}

func TestCache_LiveDataReplacesFallbackWholesale(t *testing.T) {
	src := &fakeSource{results: []fakeResult{
		{err: errRefused}, {err: errRefused}, {err: errRefused}, {err: errRefused},
		{assets: []domain.Asset{{ID: "dogecoin", Symbol: "doge", Name: "Dogecoin", CurrentPrice: decimal.RequireFromString("0.1")}}},
	}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())

	first := cache.Refresh(context.Background())
	require.True(t, first.FallbackActive)

	second := cache.Refresh(context.Background())

	assert.False(t, second.FallbackActive)
	assert.Empty(t, second.Error)
	require.Len(t, second.Assets, 1)
	assert.Equal(t, "dogecoin", second.Assets[0].ID)
	_, ok := cache.Lookup("bitcoin")
	assert.False(t, ok)
}

func TestCache_CancelledRefreshKeepsCachedData(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{assets: liveAssets()}}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())
	cache.Refresh(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := cache.Refresh(ctx)

	assert.False(t, snap.Loading)
	assert.False(t, snap.FallbackActive)
	assert.Len(t, snap.Assets, 2)
}

func TestCache_LoadingWhileFetchInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{results: []fakeResult{{assets: liveAssets()}}}
	src.onCall = func(int) {
		close(started)
		<-release
	}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())

	done := make(chan Snapshot)
	go func() { done <- cache.Refresh(context.Background()) }()

	<-started
	assert.True(t, cache.Snapshot().Loading)
	assert.Empty(t, cache.Snapshot().Assets)

	close(release)
	snap := <-done
	assert.False(t, snap.Loading)
}

func TestCache_ReturnedAssetsAreCopies(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{assets: FallbackAssets()}}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())
	cache.Refresh(context.Background())

	assets := cache.Assets()
	assets[0].Name = "mutated"
	assets[0].Sparkline7d[0] = decimal.Zero

	fresh, ok := cache.Lookup("bitcoin")
	require.True(t, ok)
	assert.Equal(t, "Bitcoin", fresh.Name)
	assert.False(t, fresh.Sparkline7d[0].IsZero())
}

func TestCache_Subscribe(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{assets: liveAssets()}}}
	cache := NewCache(src, fastPolicy(), zerolog.Nop())

	updates, unsubscribe := cache.Subscribe()
	cache.Refresh(context.Background())

	// Only the latest state is buffered
	select {
	case snap := <-updates:
		assert.False(t, snap.Loading)
		assert.Len(t, snap.Assets, 2)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot notification")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-updates
	assert.False(t, open)
}

func TestCache_CloseEndsSubscriptions(t *testing.T) {
	cache := NewCache(&fakeSource{results: []fakeResult{{assets: liveAssets()}}}, fastPolicy(), zerolog.Nop())
	updates, unsubscribe := cache.Subscribe()

	cache.Close()
	unsubscribe()

	_, open := <-updates
	assert.False(t, open)
}
