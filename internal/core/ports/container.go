package ports

import (
	"context"
	"io"

	"github.com/melih/whalesbook/internal/core/domain"
)

// ContainerService defines the core operations for managing containers and
// local images. Every call targets one execution context, so a book can build
// on one engine and run on another.
type ContainerService interface {
	// ListContainers returns the containers matching every label filter.
	ListContainers(ctx context.Context, execCtx string, labelFilters []string) ([]domain.Container, error)
	RunContainer(ctx context.Context, req domain.RunRequest) (string, error)
	// StopContainer stops a container and removes it when remove is set.
	// A container that no longer exists is not an error.
	StopContainer(ctx context.Context, execCtx, id string, remove bool) error
	GetContainerLogs(ctx context.Context, execCtx, id string) (io.ReadCloser, error)

	ListImages(ctx context.Context, execCtx string, labelFilters []string) ([]domain.Image, error)
	// RemoveImages removes every reference, continuing past failures.
	RemoveImages(ctx context.Context, execCtx string, refs []string) error
}
