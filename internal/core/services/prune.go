package services

import (
	"context"

	"github.com/containerd/log"

	"github.com/melih/whalesbook/internal/core/domain"
)

// Prune deletes the git-<hash> registry tags and local images of commits no
// longer tracked by the book. It is best effort: a failed deletion is logged
// and counted, and the pass moves on. Only a failure to list the tracked refs
// aborts it.
func (r *Reconciler) Prune(ctx context.Context, book domain.Book) (domain.PruneReport, error) {
	report := domain.PruneReport{Book: book.Name}
	ctx, release, _, err := r.acquire(ctx, book, "prune")
	if err != nil {
		return report, err
	}
	defer release()

	image, err := r.bookImage(book)
	if err != nil {
		return report, err
	}
	pairs, err := r.TrackingRefPairs(ctx, book)
	if err != nil {
		return report, err
	}

	refs := book.TrackedRefs()
	validMainTags := make(map[string]domain.MainTag)
	validGitTags := make(map[string]struct{}, len(pairs))
	for _, pair := range pairs {
		validGitTags[pair.GitTag()] = struct{}{}
		if tracked, ok := refs[pair.Key()]; ok {
			tag := image.WithTag(tracked.Ref.SubdomainName)
			validMainTags[tag.String()] = tag
		}
	}

	// A slug shaped like a git tag shares its digest with a live image.
	for slug := range book.Slugs() {
		validGitTags[slug] = struct{}{}
	}

	r.pruneRegistry(ctx, book, validGitTags, &report)
	for _, execCtx := range book.ExecContexts() {
		r.pruneImages(ctx, execCtx, validMainTags, validGitTags, &report)
	}
	log.G(ctx).WithFields(log.Fields{
		"deleted_tags":   len(report.DeletedTags),
		"removed_images": len(report.RemovedImages),
		"failures":       report.Failures,
	}).Info("Finished pruning")
	return report, nil
}

func (r *Reconciler) pruneRegistry(ctx context.Context, book domain.Book, validGitTags map[string]struct{}, report *domain.PruneReport) {
	tags, err := r.registryTags(ctx, book)
	if err != nil {
		log.G(ctx).WithError(err).Error("Failed to list registry tags")
		report.Failures++
		return
	}
	for _, tag := range tags {
		if _, ok := validGitTags[tag]; ok || !domain.IsGitTag(tag) {
			continue
		}
		err := r.registry.DeleteByTag(ctx, book.RegistryNamespace, tag)
		r.recorder.TagPruned(book.Name, err)
		if err != nil {
			log.G(ctx).WithError(&domain.RegistryError{Op: "delete tag " + tag, Repository: book.RegistryNamespace, Err: err}).
				Error("Failed to delete registry tag")
			report.Failures++
			continue
		}
		log.G(ctx).WithField("tag", tag).Info("Deleted registry tag")
		report.DeletedTags = append(report.DeletedTags, tag)
	}
}

// pruneImages queries one main tag at a time: docker label filters are
// conjunctive.
func (r *Reconciler) pruneImages(ctx context.Context, execCtx string, validMainTags map[string]domain.MainTag, validGitTags map[string]struct{}, report *domain.PruneReport) {
	logger := log.G(ctx).WithField("context", execCtx)
	seen := make(map[string]struct{})
	var stale []string
	for _, key := range domain.SortedKeys(validMainTags) {
		images, err := r.runtime.ListImages(ctx, execCtx, []string{domain.MainTagFilter(validMainTags[key])})
		if err != nil {
			logger.WithError(err).Error("Failed to list images")
			report.Failures++
			continue
		}
		for _, img := range images {
			for _, repoTag := range img.RepoTags {
				ref, err := domain.ParseMainTag(repoTag)
				if err != nil || !domain.IsGitTag(ref.Tag) {
					continue
				}
				if _, ok := validGitTags[ref.Tag]; ok {
					continue
				}
				if _, dup := seen[repoTag]; !dup {
					seen[repoTag] = struct{}{}
					stale = append(stale, repoTag)
				}
			}
		}
	}
	if len(stale) == 0 {
		logger.Info("No images to remove")
		return
	}

	logger.Infof("Removing images %v", stale)
	if err := r.runtime.RemoveImages(ctx, execCtx, stale); err != nil {
		logger.WithError(err).Error("Failed to remove some images")
		report.Failures++
	}
	report.RemovedImages = append(report.RemovedImages, stale...)
}
