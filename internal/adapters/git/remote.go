package git

import (
	"context"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/melih/whalesbook/internal/core/domain"
)

// RemoteScanner lists remote refs in-process with go-git. Nothing is
// written to disk.
type RemoteScanner struct{}

func NewRemoteScanner() *RemoteScanner {
	return &RemoteScanner{}
}

// ListRemoteRefs returns every hash ref advertised by the remote; symbolic
// refs are skipped.
func (s *RemoteScanner) ListRemoteRefs(ctx context.Context, repoURL string) ([]domain.RemoteRef, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, &domain.ScanError{RepoURL: repoURL, Err: err}
	}

	out := make([]domain.RemoteRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Type() != plumbing.HashReference {
			continue
		}
		out = append(out, domain.RemoteRef{Hash: ref.Hash().String(), Name: ref.Name().String()})
	}
	return out, nil
}
