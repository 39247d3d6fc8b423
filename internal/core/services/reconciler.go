package services

import (
	"context"
	"sync"
	"time"

	"github.com/containerd/log"
	"github.com/google/uuid"

	"github.com/melih/whalesbook/internal/core/domain"
	"github.com/melih/whalesbook/internal/core/ports"
)

// Limits caps the fan-out of one reconciliation cycle.
type Limits struct {
	Builds     int
	Containers int
}

var DefaultLimits = Limits{Builds: 2, Containers: 8}

// Dependencies are the collaborators a Reconciler drives.
type Dependencies struct {
	Registry ports.Registry
	Scanner  ports.RefScanner
	Builder  ports.BuilderService
	Runtime  ports.ContainerService
	Guard    ports.BookGuard
	Recorder ports.Recorder
	Limits   Limits
}

// Reconciler converges books towards the latest commits of their tracked refs.
type Reconciler struct {
	registry ports.Registry
	scanner  ports.RefScanner
	builder  ports.BuilderService
	runtime  ports.ContainerService
	guard    ports.BookGuard
	recorder ports.Recorder
	limits   Limits
}

// NewReconciler wires a Reconciler. Guard and Recorder are optional.
func NewReconciler(deps Dependencies) *Reconciler {
	r := &Reconciler{
		registry: deps.Registry,
		scanner:  deps.Scanner,
		builder:  deps.Builder,
		runtime:  deps.Runtime,
		guard:    deps.Guard,
		recorder: deps.Recorder,
		limits:   deps.Limits,
	}
	if r.guard == nil {
		r.guard = NewMemoryGuard()
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	if r.limits.Builds <= 0 {
		r.limits.Builds = DefaultLimits.Builds
	}
	if r.limits.Containers <= 0 {
		r.limits.Containers = DefaultLimits.Containers
	}
	return r
}

// bookImage is the untagged reference every image of the book is published under.
func (r *Reconciler) bookImage(book domain.Book) (domain.MainTag, error) {
	return domain.NewMainTag(r.registry.URL(), book.RegistryNamespace, "")
}

func (r *Reconciler) registryTags(ctx context.Context, book domain.Book) ([]string, error) {
	tags, err := r.registry.Tags(ctx, book.RegistryNamespace)
	if err != nil {
		return nil, &domain.RegistryError{Op: "list tags", Repository: book.RegistryNamespace, Err: err}
	}
	return tags, nil
}

// acquire takes the book guard and attaches a cycle logger to ctx.
func (r *Reconciler) acquire(ctx context.Context, book domain.Book, op string) (context.Context, func(), string, error) {
	release, ok, err := r.guard.TryAcquire(book.Name)
	if err != nil {
		return ctx, nil, "", err
	}
	if !ok {
		log.G(ctx).WithField("book", book.Name).Warnf("Skipping %s, another one is in flight", op)
		return ctx, nil, "", domain.ErrReconcileInProgress
	}
	cycle := uuid.NewString()
	ctx = log.WithLogger(ctx, log.G(ctx).WithFields(log.Fields{
		"book":  book.Name,
		"cycle": cycle,
		"op":    op,
	}))
	return ctx, release, cycle, nil
}

// MemoryGuard is an in-process BookGuard.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) TryAcquire(book string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[book]; busy {
		return nil, false, nil
	}
	g.held[book] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, book)
			g.mu.Unlock()
		})
	}, true, nil
}

type nopRecorder struct{}

func (nopRecorder) ReconcileFinished(string, string, time.Duration) {}
func (nopRecorder) BuildFinished(string, error)                     {}
func (nopRecorder) ContainerStarted(string, error)                  {}
func (nopRecorder) ContainerStopped(string, error)                  {}
func (nopRecorder) TagPruned(string, error)                         {}
