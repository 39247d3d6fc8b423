package services

import (
	"context"
	"sync/atomic"

	"github.com/containerd/log"

	"github.com/melih/whalesbook/internal/core/domain"
)

// BuildRefs builds and pushes one image per pair, tagged with the ref slug and
// git-<hash>. Builds run concurrently up to the build limit and a failing
// build never cancels its siblings. It returns the number of successful
// builds and the combined *domain.BuildError of the failed ones.
func (r *Reconciler) BuildRefs(ctx context.Context, book domain.Book, pairs []domain.TrackingRefPair) (int, error) {
	image, err := r.bookImage(book)
	if err != nil {
		return 0, err
	}
	refs := book.TrackedRefs()

	var built atomic.Int64
	err = fanOut(ctx, r.limits.Builds, pairs, func(ctx context.Context, pair domain.TrackingRefPair) error {
		tracked, ok := refs[pair.Key()]
		if !ok {
			log.G(ctx).WithField("ref", pair.RefName).Warn("Ref is not tracked by the book, skipping build")
			return nil
		}
		req := newBuildRequest(book, image, tracked, pair)
		logger := log.G(ctx).WithFields(log.Fields{
			"tag":    req.Tags[0],
			"source": req.Source.String(),
		})

		logger.Info("Building tag")
		err := r.builder.BuildImage(ctx, req)
		r.recorder.BuildFinished(book.Name, err)
		if err != nil {
			logger.WithError(err).Error("Failed to build tag")
			return &domain.BuildError{Tag: req.Tags[0], Source: req.Source.String(), Err: err}
		}
		built.Add(1)
		logger.Info("Finished building tag")
		return nil
	})
	return int(built.Load()), err
}

func newBuildRequest(book domain.Book, image domain.MainTag, tracked domain.TrackedRef, pair domain.TrackingRefPair) domain.BuildRequest {
	slugTag := image.WithTag(tracked.Ref.SubdomainName)
	gitTag := image.WithTag(pair.GitTag())
	source := domain.BuildSource{RepoURL: tracked.Repo.URL, RefName: pair.RefName, Commit: pair.Hash}

	record := domain.LabelRecord{
		MainTag:      slugTag,
		GitTag:       gitTag.String(),
		BuildContext: source.String(),
	}
	return domain.BuildRequest{
		Tags:        []string{slugTag.String(), gitTag.String()},
		Source:      source,
		ExecContext: book.Builder,
		Dockerfile:  book.Dockerfile,
		Labels:      record.Encode(),
		Push:        true,
	}
}
