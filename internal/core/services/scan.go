package services

import (
	"context"
	"sort"

	"github.com/containerd/log"

	"github.com/melih/whalesbook/internal/core/domain"
)

// TrackingRefPairs lists every remote of the book and keeps the refs it
// tracks. Pairs are keyed by repository, so two repos tracking the same ref
// name stay distinct. Any scan failure aborts the whole listing.
func (r *Reconciler) TrackingRefPairs(ctx context.Context, book domain.Book) ([]domain.TrackingRefPair, error) {
	var pairs []domain.TrackingRefPair
	for _, repo := range book.Repos {
		tracked := make(map[string]struct{}, len(repo.Refs))
		for _, ref := range repo.Refs {
			tracked[ref.Name] = struct{}{}
		}

		log.G(ctx).WithField("repo", repo.URL).Info("Fetching refs")
		remote, err := r.scanner.ListRemoteRefs(ctx, repo.URL)
		if err != nil {
			return nil, err
		}
		for _, ref := range remote {
			if _, ok := tracked[ref.Name]; ok {
				pairs = append(pairs, domain.TrackingRefPair{RepoURL: repo.URL, Hash: ref.Hash, RefName: ref.Name})
			}
		}
	}
	sortPairs(pairs)
	log.G(ctx).Debugf("tracking ref pairs: %v", pairs)
	return pairs, nil
}

func sortPairs(pairs []domain.TrackingRefPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].RepoURL != pairs[j].RepoURL {
			return pairs[i].RepoURL < pairs[j].RepoURL
		}
		return pairs[i].RefName < pairs[j].RefName
	})
}
