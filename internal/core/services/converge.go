package services

import (
	"context"
	"sync/atomic"

	"github.com/containerd/log"
	"go.uber.org/multierr"

	"github.com/melih/whalesbook/internal/core/domain"
)

// BookContainers returns the containers of the runner context that carry a
// main tag of the book's image.
func (r *Reconciler) BookContainers(ctx context.Context, book domain.Book) ([]domain.Container, error) {
	image, err := r.bookImage(book)
	if err != nil {
		return nil, err
	}
	containers, err := r.runtime.ListContainers(ctx, book.Runner, []string{domain.LabelMainTag})
	if err != nil {
		return nil, &domain.RuntimeOpError{Op: "list containers", Target: book.Name, ExecContext: book.Runner, Err: err}
	}

	var owned []domain.Container
	for _, c := range containers {
		if c.Record.MainTag.SameImage(image) {
			owned = append(owned, c)
		}
	}
	log.G(ctx).Debugf("Current containers for book %s: %d", book.Name, len(owned))
	return owned, nil
}

// ConvergeResult counts the container operations of one convergence.
type ConvergeResult struct {
	Started int
	Stopped int
}

// Converge starts one container per published, tracked slug and only then
// stops and removes the containers that were running before, so old and new
// versions may briefly serve side by side.
func (r *Reconciler) Converge(ctx context.Context, book domain.Book) (ConvergeResult, error) {
	var res ConvergeResult
	image, err := r.bookImage(book)
	if err != nil {
		return res, err
	}
	old, err := r.BookContainers(ctx, book)
	if err != nil {
		return res, err
	}
	tags, err := r.registryTags(ctx, book)
	if err != nil {
		return res, err
	}
	extra, err := book.Labels()
	if err != nil {
		return res, err
	}

	slugs := book.Slugs()
	var targets []string
	for _, tag := range tags {
		if _, ok := slugs[tag]; ok {
			targets = append(targets, tag)
		}
	}

	var started, stopped atomic.Int64
	startErr := fanOut(ctx, r.limits.Containers, targets, func(ctx context.Context, slug string) error {
		req := newRunRequest(book, image.WithTag(slug), slug, extra)
		logger := log.G(ctx).WithField("image", req.Image)

		logger.Info("Starting container")
		id, err := r.runtime.RunContainer(ctx, req)
		r.recorder.ContainerStarted(book.Name, err)
		if err != nil {
			logger.WithError(err).Error("Failed to start container")
			return &domain.RuntimeOpError{Op: "start container", Target: req.Image, ExecContext: book.Runner, Err: err}
		}
		started.Add(1)
		logger.WithField("container", id).Info("Started container")
		return nil
	})

	stopErr := r.stopContainers(ctx, book, old, &stopped)
	res.Started, res.Stopped = int(started.Load()), int(stopped.Load())
	return res, multierr.Combine(startErr, stopErr)
}

// StopBookContainers stops and removes every container of the book.
func (r *Reconciler) StopBookContainers(ctx context.Context, book domain.Book) (int, error) {
	ctx, release, _, err := r.acquire(ctx, book, "stop")
	if err != nil {
		return 0, err
	}
	defer release()

	containers, err := r.BookContainers(ctx, book)
	if err != nil {
		return 0, err
	}
	var stopped atomic.Int64
	err = r.stopContainers(ctx, book, containers, &stopped)
	return int(stopped.Load()), err
}

func (r *Reconciler) stopContainers(ctx context.Context, book domain.Book, containers []domain.Container, stopped *atomic.Int64) error {
	return fanOut(ctx, r.limits.Containers, containers, func(ctx context.Context, c domain.Container) error {
		logger := log.G(ctx).WithFields(log.Fields{"container": c.ID, "image": c.Image})
		logger.Info("Stopping container")
		err := r.runtime.StopContainer(ctx, book.Runner, c.ID, true)
		r.recorder.ContainerStopped(book.Name, err)
		if err != nil {
			logger.WithError(err).Error("Failed to stop container")
			return &domain.RuntimeOpError{Op: "stop container", Target: c.ID, ExecContext: book.Runner, Err: err}
		}
		stopped.Add(1)
		return nil
	})
}

func newRunRequest(book domain.Book, tag domain.MainTag, slug string, extra map[string]string) domain.RunRequest {
	labels := make(map[string]string, len(extra)+4)
	for k, v := range extra {
		labels[k] = v
	}
	if book.Traefik != nil {
		for k, v := range domain.TraefikLabels(slug, book.Name, *book.Traefik) {
			labels[k] = v
		}
	}
	labels[domain.LabelMainTag] = tag.String()

	return domain.RunRequest{
		Image:         tag.String(),
		Network:       book.Network,
		RestartPolicy: domain.RestartAlways,
		Labels:        labels,
		Pull:          domain.PullAlways,
		ExecContext:   book.Runner,
	}
}
