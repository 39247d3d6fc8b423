package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"

	"github.com/melih/whalesbook/internal/core/domain"
)

type fakeUpdater struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeUpdater) UpdateBook(_ context.Context, book domain.Book, force bool) (domain.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, book.Name)
	return domain.UpdateResult{Book: book.Name, Forced: force}, f.err
}

func (f *fakeUpdater) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNewSchedulesEveryBook(t *testing.T) {
	books := []domain.Book{{Name: "shop"}, {Name: "blog"}}
	s, err := New(context.Background(), "*/5 * * * *", books, &fakeUpdater{})
	assert.NilError(t, err)
	assert.Equal(t, s.Entries(), 2)
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(context.Background(), "not a cron", []domain.Book{{Name: "shop"}}, &fakeUpdater{})
	assert.ErrorContains(t, err, "failed to schedule book shop")
}

func TestRunToleratesBusyBook(t *testing.T) {
	u := &fakeUpdater{err: domain.ErrReconcileInProgress}
	s, err := New(context.Background(), "@every 1h", nil, u)
	assert.NilError(t, err)

	s.Run(domain.Book{Name: "shop"})
	assert.Equal(t, u.count(), 1)
}

func TestSchedulerTicks(t *testing.T) {
	u := &fakeUpdater{}
	s, err := New(context.Background(), "@every 1s", []domain.Book{{Name: "shop"}}, u)
	assert.NilError(t, err)

	s.Start()
	defer func() { <-s.Stop().Done() }()

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if u.count() > 0 {
			return poll.Success()
		}
		return poll.Continue("no tick yet")
	}, poll.WithTimeout(5*time.Second), poll.WithDelay(50*time.Millisecond))
}
