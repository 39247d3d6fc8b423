package ports

import (
	"context"

	"github.com/melih/whalesbook/internal/core/domain"
)

// BuilderService defines operations for building container images from source code.
type BuilderService interface {
	// BuildImage checks out the requested commit, builds one image carrying
	// every requested tag and pushes the tags when asked to.
	BuildImage(ctx context.Context, req domain.BuildRequest) error
}
