package services

import (
	"context"
	"errors"
	"time"

	"github.com/containerd/log"
	"go.uber.org/multierr"

	"github.com/melih/whalesbook/internal/core/domain"
)

const (
	OutcomeSkipped    = "skipped"
	OutcomeNoop       = "noop"
	OutcomeConverged  = "converged"
	OutcomePartial    = "partial"
	OutcomeFailed     = "failed"
	OutcomeInProgress = "in_progress"
)

// UpdateBook runs one reconciliation cycle: diff, build, converge.
//
// With an empty diff and force unset it does nothing. Build failures do not
// stop the convergence of the refs that were built. Pruning is never part of
// a cycle. A cycle overlapping another one of the same book returns
// domain.ErrReconcileInProgress without doing anything.
func (r *Reconciler) UpdateBook(ctx context.Context, book domain.Book, force bool) (domain.UpdateResult, error) {
	res := domain.UpdateResult{Book: book.Name, Forced: force}
	start := time.Now()

	ctx, release, cycle, err := r.acquire(ctx, book, "update")
	if err != nil {
		if errors.Is(err, domain.ErrReconcileInProgress) {
			r.recorder.ReconcileFinished(book.Name, OutcomeInProgress, time.Since(start))
			res.Skipped = true
		}
		return res, err
	}
	defer release()
	res.Cycle = cycle

	outcome := OutcomeFailed
	defer func() {
		r.recorder.ReconcileFinished(book.Name, outcome, time.Since(start))
	}()

	tags, err := r.registryTags(ctx, book)
	if err != nil {
		log.G(ctx).WithError(err).Error("Failed to read registry state")
		return res, err
	}
	pairs, err := r.TrackingRefPairs(ctx, book)
	if err != nil {
		log.G(ctx).WithError(err).Error("Failed to scan remotes")
		return res, err
	}

	res.Diff = ComputeDiff(book, tags, pairs)
	log.G(ctx).Debugf("refs to update: %v, orphaned tags: %v", res.Diff.RefsToUpdate, res.Diff.OrphanedHashTags)
	if res.Diff.Empty() && !force {
		log.G(ctx).Info("Nothing to update")
		res.Skipped = true
		outcome = OutcomeNoop
		return res, nil
	}
	if force {
		log.G(ctx).Info("Forcing update")
	}

	built, buildErr := r.BuildRefs(ctx, book, res.Diff.RefsToUpdate)
	res.Built = built
	res.Failed = len(multierr.Errors(buildErr))

	conv, convErr := r.Converge(ctx, book)
	res.Started, res.Stopped = conv.Started, conv.Stopped

	err = multierr.Combine(buildErr, convErr)
	switch {
	case err == nil:
		outcome = OutcomeConverged
	case res.Started > 0:
		outcome = OutcomePartial
	}
	if err != nil {
		log.G(ctx).WithError(err).Warn("Update finished with errors")
	} else {
		log.G(ctx).WithFields(log.Fields{"built": res.Built, "started": res.Started, "stopped": res.Stopped}).Info("Update finished")
	}
	return res, err
}

// RebuildBook builds every tracked ref regardless of what the registry holds,
// then converges the containers.
func (r *Reconciler) RebuildBook(ctx context.Context, book domain.Book) (domain.UpdateResult, error) {
	res := domain.UpdateResult{Book: book.Name, Forced: true}
	ctx, release, cycle, err := r.acquire(ctx, book, "rebuild")
	if err != nil {
		res.Skipped = errors.Is(err, domain.ErrReconcileInProgress)
		return res, err
	}
	defer release()
	res.Cycle = cycle

	pairs, err := r.TrackingRefPairs(ctx, book)
	if err != nil {
		return res, err
	}
	res.Diff.RefsToUpdate = pairs

	built, buildErr := r.BuildRefs(ctx, book, pairs)
	res.Built = built
	res.Failed = len(multierr.Errors(buildErr))
	conv, convErr := r.Converge(ctx, book)
	res.Started, res.Stopped = conv.Started, conv.Stopped
	return res, multierr.Combine(buildErr, convErr)
}
