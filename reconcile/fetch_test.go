package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"moddb-curator/steam"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lookupFunc func(ctx context.Context, remoteID string) (*steam.Details, error)

func (f lookupFunc) Lookup(ctx context.Context, remoteID string) (*steam.Details, error) {
	return f(ctx, remoteID)
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", 1000+i)
	}
	return out
}

func byID(results []FetchResult) map[string]FetchResult {
	m := make(map[string]FetchResult, len(results))
	for _, r := range results {
		m[r.RemoteID] = r
	}
	return m
}

func TestFetchAllRespectsConcurrencyLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32

	f := &Fetcher{
		Concurrency: limit,
		Log:         zap.NewNop().Sugar(),
		Lookup: lookupFunc(func(ctx context.Context, id string) (*steam.Details, error) {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return &steam.Details{RemoteID: id, Tags: []string{"1.5"}}, nil
		}),
	}

	results := f.FetchAll(context.Background(), ids(20))

	require.Len(t, results, 20)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Greater(t, peak.Load(), int32(0))
	for _, r := range results {
		assert.True(t, r.Found())
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	f := &Fetcher{
		Concurrency: 4,
		Timeout:     50 * time.Millisecond,
		Lookup: lookupFunc(func(ctx context.Context, id string) (*steam.Details, error) {
			switch id {
			case "1":
				return nil, errors.New("connection reset")
			case "2":
				panic("boom")
			case "3":
				// Ignores ctx; the timeout must still release the item.
				time.Sleep(time.Second)
				return &steam.Details{RemoteID: id}, nil
			case "4":
				return nil, nil
			default:
				return &steam.Details{RemoteID: id, Tags: []string{"1.4"}}, nil
			}
		}),
	}

	start := time.Now()
	results := f.FetchAll(context.Background(), []string{"1", "2", "3", "4", "5", "6"})
	elapsed := time.Since(start)

	require.Len(t, results, 6)
	got := byID(results)

	assert.Error(t, got["1"].Err)
	assert.False(t, got["1"].Found())
	assert.ErrorContains(t, got["2"].Err, "panicked")
	assert.ErrorIs(t, got["3"].Err, context.DeadlineExceeded)
	assert.NoError(t, got["4"].Err)
	assert.False(t, got["4"].Found())
	assert.True(t, got["5"].Found())
	assert.True(t, got["6"].Found())
	assert.Less(t, elapsed, 900*time.Millisecond)
}

func TestFetchAllReportsProgressInBatches(t *testing.T) {
	var mu sync.Mutex
	var reports [][2]int

	f := &Fetcher{
		Concurrency: 5,
		BatchSize:   10,
		Lookup: lookupFunc(func(ctx context.Context, id string) (*steam.Details, error) {
			return &steam.Details{RemoteID: id}, nil
		}),
		OnProgress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, [2]int{done, total})
		},
	}

	results := f.FetchAll(context.Background(), ids(25))

	require.Len(t, results, 25)
	assert.Equal(t, [][2]int{{10, 25}, {20, 25}, {25, 25}}, reports)
}

func TestFetchAllEmpty(t *testing.T) {
	called := false
	f := &Fetcher{
		Lookup: lookupFunc(func(ctx context.Context, id string) (*steam.Details, error) {
			called = true
			return nil, nil
		}),
		OnProgress: func(done, total int) { called = true },
	}

	assert.Empty(t, f.FetchAll(context.Background(), nil))
	assert.False(t, called)
}

func TestFetchAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &Fetcher{
		Concurrency: 1,
		Lookup: lookupFunc(func(ctx context.Context, id string) (*steam.Details, error) {
			return &steam.Details{RemoteID: id}, nil
		}),
	}

	results := f.FetchAll(ctx, ids(5))

	require.Len(t, results, 5)
	for _, r := range results {
		assert.False(t, r.Found(), "cancelled item %s must be absent", r.RemoteID)
	}
}

func TestFetchAllTimeoutCancelsLookupContext(t *testing.T) {
	var mu sync.Mutex
	var seen []context.Context

	f := &Fetcher{
		Concurrency: 2,
		Timeout:     20 * time.Millisecond,
		Log:         zap.NewNop().Sugar(),
		Lookup: lookupFunc(func(ctx context.Context, id string) (*steam.Details, error) {
			mu.Lock()
			seen = append(seen, ctx)
			mu.Unlock()
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	}

	results := f.FetchAll(context.Background(), ids(4))
	require.Len(t, results, 4)
	for _, r := range results {
		assert.False(t, r.Found())
		assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 4
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, ctx := range seen {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "lookup context carries the per-item deadline")
		assert.Error(t, ctx.Err(), "lookup context is done once the fetcher gave up")
	}
}
