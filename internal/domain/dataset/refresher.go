package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vor/pkg/logger"
	"github.com/okian/vor/pkg/metrics"
)

// Refresh results recorded in metrics.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// RefresherOption applies a configuration option to the Refresher.
type RefresherOption func(*Refresher)

// WithInterval sets how often the source is reloaded. Zero disables periodic
// reloads; only the initial load runs.
func WithInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d >= 0 {
			r.interval = d
		}
	}
}

// WithLoadTimeout bounds a single load.
func WithLoadTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the refresher logger.
func WithLogger(l logger.Logger) RefresherOption {
	return func(r *Refresher) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

// Refresher loads snapshots from a Source and publishes them to a Holder.
// A failed load keeps the previous snapshot in place.
type Refresher struct {
	source   Source
	holder   *Holder
	interval time.Duration
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewRefresher creates a refresher. The logger defaults to the global one.
func NewRefresher(src Source, holder *Holder, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		source:   src,
		holder:   holder,
		interval: 15 * time.Minute,
		timeout:  2 * time.Minute,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("dataset")
	}
	return r
}

// Refresh performs one load and swap.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	snap, err := r.load(ctx)
	ms := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordSnapshotRefresh(resultFailure, ms)
		metrics.RecordErrorByComponent("dataset", "refresh")
		r.log.Error(ctx, "dataset refresh failed",
			logger.String("source", r.source.Name()),
			logger.Error(err))
		return nil, err
	}

	prev := r.holder.Swap(snap)
	metrics.RecordSnapshotRefresh(resultSuccess, ms)
	metrics.UpdateSnapshot(snap.Len(), snap.LoadedAt())

	fields := []logger.Field{
		logger.String("source", r.source.Name()),
		logger.String("snapshot_id", snap.ID()),
		logger.Int("records", snap.Len()),
		logger.Float64("duration_ms", ms),
	}
	if prev != nil {
		fields = append(fields, logger.String("replaced", prev.ID()))
	}
	r.log.Info(ctx, "dataset snapshot published", fields...)
	return snap, nil
}

func (r *Refresher) load(ctx context.Context) (*Snapshot, error) {
	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.source.Load(lctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.source.Name(), err)
	}
	if raw.Len() == 0 {
		return nil, fmt.Errorf("load %s: %w", r.source.Name(), ErrEmpty)
	}
	snap, err := NewSnapshot(r.source.Name(), raw, r.now())
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", r.source.Name(), err)
	}
	return snap, nil
}

// Start runs periodic refreshes in the background until ctx ends or Close is
// called. The initial load is the caller's responsibility.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				_, _ = r.Refresh(ctx)
			}
		}
	}()
}

// Close stops the background loop and waits for it to exit.
func (r *Refresher) Close() error {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	return nil
}
