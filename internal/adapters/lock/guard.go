package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/containerd/log"
	"github.com/gofrs/flock"

	"github.com/melih/whalesbook/internal/core/domain"
)

// FileGuard holds one lock file per book, so a CLI-triggered update and the
// daemon's scheduled tick never reconcile the same book at once.
type FileGuard struct {
	dir string
}

func NewFileGuard(dir string) (*FileGuard, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}
	return &FileGuard{dir: dir}, nil
}

// Path returns the lock file of a book. Book names are free-form, so the
// file name carries a slug for readability and a hash for uniqueness.
func (g *FileGuard) Path(book string) string {
	sum := sha256.Sum256([]byte(book))
	return filepath.Join(g.dir, domain.Slugify(book)+"-"+hex.EncodeToString(sum[:4])+".lock")
}

func (g *FileGuard) TryAcquire(book string) (func(), bool, error) {
	fl := flock.New(g.Path(book))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock book %s: %w", book, err)
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := fl.Unlock(); err != nil {
				log.L.WithError(err).WithField("book", book).Warn("Failed to release book lock")
			}
		})
	}, true, nil
}
