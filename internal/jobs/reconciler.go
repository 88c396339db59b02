// Package jobs holds the out-of-band batch processes that flush cache
// counters into PostgreSQL, the system of record.
package jobs

import (
	"context"
	"fmt"
	"sort"

	"github.com/zephyrsocial/zephyr/backend/internal/cache"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
	"go.uber.org/zap"
)

// DefaultBatchSize is how many posts each reconciliation transaction covers.
const DefaultBatchSize = 100

// Reconciler flushes view counters from the cache into the posts table.
// Runs are idempotent: counts are written as absolute values, so replaying an
// unchanged cache snapshot is a no-op.
type Reconciler struct {
	posts     repositories.PostRepository
	views     *cache.PostViewsCache
	logger    *zap.Logger
	batchSize int
	verify    bool
}

// NewReconciler creates a Reconciler with the default batch size and
// post-flush verification enabled.
func NewReconciler(posts repositories.PostRepository, views *cache.PostViewsCache, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		posts:     posts,
		views:     views,
		logger:    logger.Named("reconciler"),
		batchSize: DefaultBatchSize,
		verify:    true,
	}
}

// Run performs one full reconciliation sweep. It fails fast if the cache is
// unreachable, before any database write. A failure partway through the
// batched writes leaves earlier batches committed; the run is safe to repeat
// from scratch.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.views.Ping(ctx); err != nil {
		return fmt.Errorf("views cache unreachable, aborting run: %w", err)
	}

	dirty, err := r.views.DirtyPosts(ctx)
	if err != nil {
		return fmt.Errorf("reading dirty set: %w", err)
	}
	if len(dirty) == 0 {
		r.logger.Info("No posts with pending view counts")
		return nil
	}

	counts, err := r.views.GetMultipleViews(ctx, dirty)
	if err != nil {
		return fmt.Errorf("reading view counts: %w", err)
	}

	// Zero counts carry no information worth a write.
	updates := make([]viewUpdate, 0, len(counts))
	for id, views := range counts {
		if views > 0 {
			updates = append(updates, viewUpdate{postID: id, views: views})
		}
	}
	if len(updates) == 0 {
		r.logger.Info("All pending view counts were zero, nothing to flush")
		return nil
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].postID < updates[j].postID })

	r.logger.Info("Flushing view counts",
		zap.Int("dirty", len(dirty)),
		zap.Int("updates", len(updates)))

	for start := 0; start < len(updates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(updates) {
			end = len(updates)
		}
		batch := make(map[uint]int64, end-start)
		for _, u := range updates[start:end] {
			batch[u.postID] = u.views
		}
		if err := r.posts.UpdateViewCounts(ctx, batch); err != nil {
			r.logger.Error("View count batch failed, earlier batches stay committed",
				zap.Int("batch", start/r.batchSize+1),
				zap.Error(err))
			return fmt.Errorf("writing batch %d: %w", start/r.batchSize+1, err)
		}
	}

	if r.verify {
		r.verifyFlush(ctx, updates)
	}

	r.logger.Info("View count flush complete", zap.Int("updates", len(updates)))
	return nil
}

// verifyFlush re-reads the authoritative store and logs any mismatch.
// Diagnostic only; failures here never fail the run.
func (r *Reconciler) verifyFlush(ctx context.Context, updates []viewUpdate) {
	ids := make([]uint, len(updates))
	for i, u := range updates {
		ids[i] = u.postID
	}
	stored, err := r.posts.GetViewCounts(ctx, ids)
	if err != nil {
		r.logger.Warn("Skipping flush verification", zap.Error(err))
		return
	}
	for _, u := range updates {
		if got, ok := stored[u.postID]; !ok || got != u.views {
			r.logger.Warn("View count mismatch after flush",
				zap.Uint("postID", u.postID),
				zap.Int64("expected", u.views),
				zap.Int64("stored", got))
		}
	}
}

type viewUpdate struct {
	postID uint
	views  int64
}
