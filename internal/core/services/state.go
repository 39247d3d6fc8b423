package services

import (
	"context"

	"github.com/melih/whalesbook/internal/core/domain"
)

// BookState reports the registry, remote and runtime view of every tracked
// ref. It never fails: whatever could not be observed is listed in Errors.
func (r *Reconciler) BookState(ctx context.Context, book domain.Book) domain.BookState {
	state := domain.BookState{Book: book.Name, Repos: make(map[string]map[string]domain.RefState)}

	published := make(map[string]struct{})
	if tags, err := r.registryTags(ctx, book); err != nil {
		state.Errors = append(state.Errors, err.Error())
	} else {
		for _, tag := range tags {
			published[tag] = struct{}{}
		}
	}

	commits := make(map[domain.RefKey]string)
	for _, repo := range book.Repos {
		remote, err := r.scanner.ListRemoteRefs(ctx, repo.URL)
		if err != nil {
			state.Errors = append(state.Errors, err.Error())
			continue
		}
		for _, ref := range remote {
			commits[domain.RefKey{RepoURL: repo.URL, RefName: ref.Name}] = ref.Hash
		}
	}

	bySlug := make(map[string][]domain.Container)
	if containers, err := r.BookContainers(ctx, book); err != nil {
		state.Errors = append(state.Errors, err.Error())
	} else {
		for _, c := range containers {
			bySlug[c.Record.MainTag.Tag] = append(bySlug[c.Record.MainTag.Tag], c)
		}
	}

	for _, repo := range book.Repos {
		refs := make(map[string]domain.RefState, len(repo.Refs))
		for _, ref := range repo.Refs {
			rs := domain.RefState{
				Ref:        ref.Name,
				Slug:       ref.SubdomainName,
				Commit:     commits[domain.RefKey{RepoURL: repo.URL, RefName: ref.Name}],
				Containers: bySlug[ref.SubdomainName],
			}
			_, rs.SlugPublished = published[ref.SubdomainName]
			if rs.Commit != "" {
				_, rs.CommitPublished = published[domain.GitTagPrefix+rs.Commit]
			}
			refs[ref.Name] = rs
		}
		state.Repos[repo.Name] = refs
	}
	return state
}
