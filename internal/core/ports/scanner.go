package ports

import (
	"context"

	"github.com/melih/whalesbook/internal/core/domain"
)

// RefScanner lists the refs currently advertised by a git remote.
type RefScanner interface {
	ListRemoteRefs(ctx context.Context, repoURL string) ([]domain.RemoteRef, error)
}
