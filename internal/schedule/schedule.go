// Package schedule runs a reconciliation of every book on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/log"
	"github.com/robfig/cron/v3"

	"github.com/melih/whalesbook/internal/core/domain"
)

// Updater is the part of the engine the scheduler drives.
type Updater interface {
	UpdateBook(ctx context.Context, book domain.Book, force bool) (domain.UpdateResult, error)
}

// Scheduler registers one cron entry per book. Entries of different books
// run independently; cron's SkipIfStillRunning keeps ticks of one book from
// piling up behind a slow cycle.
type Scheduler struct {
	cron    *cron.Cron
	updater Updater
	ctx     context.Context
}

func New(ctx context.Context, spec string, books []domain.Book, updater Updater) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{})))
	s := &Scheduler{cron: c, updater: updater, ctx: ctx}

	for _, book := range books {
		job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{})).Then(s.job(book))
		if _, err := c.AddJob(spec, job); err != nil {
			return nil, fmt.Errorf("failed to schedule book %s: %w", book.Name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) job(book domain.Book) cron.FuncJob {
	return func() { s.Run(book) }
}

// Run performs one scheduled update of book.
func (s *Scheduler) Run(book domain.Book) {
	ctx := log.WithLogger(s.ctx, log.G(s.ctx).WithField("book", book.Name))
	res, err := s.updater.UpdateBook(ctx, book, false)
	switch {
	case errors.Is(err, domain.ErrReconcileInProgress):
		log.G(ctx).Info("Scheduled update skipped, book is busy")
	case err != nil:
		log.G(ctx).WithError(err).Error("Scheduled update failed")
	case res.Skipped:
		log.G(ctx).Debug("Book is up to date")
	default:
		log.G(ctx).WithField("cycle", res.Cycle).Infof("Scheduled update done: %d built, %d started, %d stopped",
			res.Built, res.Started, res.Stopped)
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and returns a context done once running jobs end.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries is the number of scheduled books.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.L.WithFields(fields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.L.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
