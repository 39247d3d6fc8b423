package services

import (
	"sort"
	"strings"

	"github.com/melih/whalesbook/internal/core/domain"
)

// ComputeDiff compares the tracked refs with the tags published for the book.
//
// A pair needs a build unless both its slug tag and its git-<hash> tag are
// published. A git-<hash> tag whose hash is not tracked anymore is orphaned,
// unless it is also the slug of a tracked ref.
func ComputeDiff(book domain.Book, registryTags []string, pairs []domain.TrackingRefPair) domain.Diff {
	published := make(map[string]struct{}, len(registryTags))
	for _, tag := range registryTags {
		published[tag] = struct{}{}
	}
	refs := book.TrackedRefs()

	var diff domain.Diff
	trackedHashes := make(map[string]struct{}, len(pairs))
	for _, pair := range pairs {
		trackedHashes[pair.Hash] = struct{}{}
		tracked, ok := refs[pair.Key()]
		if !ok {
			continue
		}
		_, slugOK := published[tracked.Ref.SubdomainName]
		_, hashOK := published[pair.GitTag()]
		if !slugOK || !hashOK {
			diff.RefsToUpdate = append(diff.RefsToUpdate, pair)
		}
	}

	slugs := book.Slugs()
	for _, tag := range registryTags {
		if !domain.IsGitTag(tag) {
			continue
		}
		if _, isSlug := slugs[tag]; isSlug {
			continue
		}
		if _, ok := trackedHashes[strings.TrimPrefix(tag, domain.GitTagPrefix)]; !ok {
			diff.OrphanedHashTags = append(diff.OrphanedHashTags, tag)
		}
	}
	sortPairs(diff.RefsToUpdate)
	sort.Strings(diff.OrphanedHashTags)
	return diff
}
