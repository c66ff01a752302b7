package reconcile

import (
	"context"
	"fmt"
	"time"

	"moddb-curator/steam"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultConcurrency = 10
	DefaultTimeout     = 45 * time.Second
	DefaultBatchSize   = 10
)

// Lookuper resolves one remote id. A nil result with a nil error means the
// remote service does not know the item.
//
// Implementations must return once ctx is done. The fetcher gives up on a
// lookup at its timeout and frees the slot, so a lookup that ignores ctx
// keeps running outside the Concurrency bound.
type Lookuper interface {
	Lookup(ctx context.Context, remoteID string) (*steam.Details, error)
}

// FetchResult is the outcome of one lookup. Details is nil when the item was
// not found or the lookup failed; Err says which.
type FetchResult struct {
	RemoteID string
	Details  *steam.Details
	Err      error
}

// Found reports whether the lookup produced usable details.
func (r FetchResult) Found() bool {
	return r.Details != nil
}

// Fetcher performs one lookup per remote id with a bounded number in flight.
type Fetcher struct {
	Lookup      Lookuper
	Concurrency int
	Timeout     time.Duration
	BatchSize   int
	// OnProgress, if set, is called from the collecting goroutine every
	// BatchSize completions and once more for a final partial batch.
	OnProgress func(done, total int)
	Log        *zap.SugaredLogger
}

func (f *Fetcher) defaults() (limit int64, timeout time.Duration, batch int, log *zap.SugaredLogger) {
	limit = int64(f.Concurrency)
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	timeout = f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	batch = f.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	log = f.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return limit, timeout, batch, log
}

// FetchAll looks up every id and returns the results in completion order.
// It always returns exactly one result per id: a failed, timed-out or
// unknown item yields an absent result and never stops its siblings.
func (f *Fetcher) FetchAll(ctx context.Context, ids []string) []FetchResult {
	total := len(ids)
	if total == 0 {
		return nil
	}
	limit, timeout, batch, log := f.defaults()

	sem := semaphore.NewWeighted(limit)
	results := make(chan FetchResult, total)

	go func() {
		var g errgroup.Group
		for _, id := range ids {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- FetchResult{RemoteID: id, Err: err}
				continue
			}
			g.Go(func() error {
				defer sem.Release(1)
				results <- f.lookupOne(ctx, id, timeout)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	out := make([]FetchResult, 0, total)
	for res := range results {
		out = append(out, res)
		if res.Err != nil {
			log.Warnw("Lookup failed", zap.String("remote_id", res.RemoteID), zap.Error(res.Err))
		} else if !res.Found() {
			log.Infow("Item not found remotely", zap.String("remote_id", res.RemoteID))
		}
		done := len(out)
		if f.OnProgress != nil && (done%batch == 0 || done == total) {
			f.OnProgress(done, total)
		}
	}
	return out
}

// lookupOne runs a single lookup bounded by timeout. The slot is given back
// when the timeout fires even if the lookup ignores its context.
func (f *Fetcher) lookupOne(ctx context.Context, id string, timeout time.Duration) FetchResult {
	if err := ctx.Err(); err != nil {
		return FetchResult{RemoteID: id, Err: fmt.Errorf("lookup %s: %w", id, err)}
	}
	itemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan FetchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- FetchResult{RemoteID: id, Err: fmt.Errorf("lookup %s panicked: %v", id, p)}
			}
		}()
		details, err := f.Lookup.Lookup(itemCtx, id)
		done <- FetchResult{RemoteID: id, Details: details, Err: err}
	}()

	select {
	case res := <-done:
		if res.Err != nil {
			res.Details = nil
		}
		return res
	case <-itemCtx.Done():
		return FetchResult{RemoteID: id, Err: fmt.Errorf("lookup %s: %w", id, itemCtx.Err())}
	}
}
