package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/containerd/log"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/melih/whalesbook/internal/adapters/docker"
	"github.com/melih/whalesbook/internal/core/domain"
)

// customDockerfile is where a book's own Dockerfile is copied inside the
// checkout so it travels with the build context.
const customDockerfile = ".whalesbook.Dockerfile"

type Adapter struct {
	clients      *docker.Clients
	registryAuth string
}

func NewBuilderAdapter(clients *docker.Clients, registryAuth string) *Adapter {
	return &Adapter{clients: clients, registryAuth: registryAuth}
}

// BuildImage clones a repo at the requested commit, builds a Docker image
// and pushes its tags.
func (a *Adapter) BuildImage(ctx context.Context, req domain.BuildRequest) error {
	if len(req.Tags) == 0 {
		return fmt.Errorf("no tags to build")
	}
	logger := log.G(ctx).WithField("tag", req.Tags[0])

	// 1. Create temporary directory
	tmpDir, err := os.MkdirTemp("", "whalesbook-build-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir) // Clean up after build

	// 2. Clone Repository at the commit
	logger.Debugf("Cloning %s into %s", req.Source, tmpDir)
	if err := checkout(ctx, tmpDir, req.Source); err != nil {
		return err
	}

	dockerfile := "Dockerfile"
	if req.Dockerfile != "" {
		if err := copyFile(req.Dockerfile, filepath.Join(tmpDir, customDockerfile)); err != nil {
			return fmt.Errorf("failed to add dockerfile: %w", err)
		}
		dockerfile = customDockerfile
	}

	// 3. Create Build Context (Tar)
	tar, err := archive.TarWithOptions(tmpDir, &archive.TarOptions{ExcludePatterns: []string{".git"}})
	if err != nil {
		return fmt.Errorf("failed to create build context: %w", err)
	}
	defer tar.Close()

	cli, err := a.clients.Get(req.ExecContext)
	if err != nil {
		return err
	}

	// 4. Build Docker Image
	logger.Info("Building Docker image")
	resp, err := cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:        req.Tags,
		Dockerfile:  dockerfile,
		Labels:      req.Labels,
		Remove:      true, // Remove intermediate containers
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	// The stream carries build failures as error messages, so it has to be
	// read to the end before the build counts as done.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}

	if !req.Push {
		return nil
	}
	for _, tag := range req.Tags {
		logger.WithField("ref", tag).Info("Pushing image")
		rc, err := cli.ImagePush(ctx, tag, image.PushOptions{RegistryAuth: a.registryAuth})
		if err != nil {
			return fmt.Errorf("failed to push %s: %w", tag, err)
		}
		err = jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to push %s: %w", tag, err)
		}
	}
	return nil
}

func checkout(ctx context.Context, dir string, src domain.BuildSource) error {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           src.RepoURL,
		ReferenceName: plumbing.ReferenceName(src.RefName),
		SingleBranch:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(src.Commit), Force: true}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", src.Commit, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
