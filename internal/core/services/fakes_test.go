package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/melih/whalesbook/internal/core/domain"
)

const testRegistryURL = "localhost:5000"

type fakeRegistry struct {
	mu        sync.Mutex
	tags      map[string][]string
	tagsErr   error
	deleteErr map[string]error
	deleted   []string
	attempts  []string
}

func newFakeRegistry(repo string, tags ...string) *fakeRegistry {
	return &fakeRegistry{tags: map[string][]string{repo: tags}, deleteErr: map[string]error{}}
}

func (f *fakeRegistry) URL() string { return testRegistryURL }

func (f *fakeRegistry) Repositories(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.SortedKeys(f.tags), nil
}

func (f *fakeRegistry) Tags(_ context.Context, repo string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagsErr != nil {
		return nil, f.tagsErr
	}
	return append([]string(nil), f.tags[repo]...), nil
}

func (f *fakeRegistry) DeleteByTag(_ context.Context, repo, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, tag)
	if err := f.deleteErr[tag]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, tag)
	return nil
}

func (f *fakeRegistry) publish(repo string, tags ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tag := range tags {
		found := false
		for _, t := range f.tags[repo] {
			found = found || t == tag
		}
		if !found {
			f.tags[repo] = append(f.tags[repo], tag)
		}
	}
}

type fakeScanner struct {
	refs map[string][]domain.RemoteRef
	errs map[string]error
}

func (f *fakeScanner) ListRemoteRefs(_ context.Context, url string) ([]domain.RemoteRef, error) {
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.refs[url], nil
}

type fakeBuilder struct {
	mu       sync.Mutex
	requests []domain.BuildRequest
	fail     map[string]error // by commit
	delay    time.Duration
	onBuild  func(domain.BuildRequest)

	inflight    atomic.Int64
	maxInflight atomic.Int64
}

func (f *fakeBuilder) BuildImage(_ context.Context, req domain.BuildRequest) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := f.fail[req.Source.Commit]; err != nil {
		return err
	}
	if f.onBuild != nil {
		f.onBuild(req)
	}
	return nil
}

func (f *fakeBuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeRuntime struct {
	mu         sync.Mutex
	ops        []string
	containers []domain.Container
	images     map[string][]domain.Image
	runs       []domain.RunRequest
	runErr     map[string]error
	stopErr    map[string]error
	removeErr  error
	removed    map[string][]string
	imageCalls []string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		images:  map[string][]domain.Image{},
		runErr:  map[string]error{},
		stopErr: map[string]error{},
		removed: map[string][]string{},
	}
}

func (f *fakeRuntime) addContainer(id, mainTag string) {
	tag, err := domain.ParseMainTag(mainTag)
	if err != nil {
		panic(err)
	}
	f.containers = append(f.containers, domain.Container{
		ID:     id,
		Image:  mainTag,
		State:  "running",
		Record: domain.LabelRecord{MainTag: tag},
	})
}

func (f *fakeRuntime) ListContainers(_ context.Context, _ string, filters []string) ([]domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(filters) != 1 || filters[0] != domain.LabelMainTag {
		return nil, fmt.Errorf("unexpected filters %v", filters)
	}
	return append([]domain.Container(nil), f.containers...), nil
}

func (f *fakeRuntime) RunContainer(_ context.Context, req domain.RunRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "start:"+req.Image)
	f.runs = append(f.runs, req)
	if err := f.runErr[req.Image]; err != nil {
		return "", err
	}
	return "new-" + req.Image, nil
}

func (f *fakeRuntime) StopContainer(_ context.Context, _ string, id string, remove bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !remove {
		return errors.New("expected remove")
	}
	f.ops = append(f.ops, "stop:"+id)
	return f.stopErr[id]
}

func (f *fakeRuntime) GetContainerLogs(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeRuntime) ListImages(_ context.Context, execCtx string, filters []string) ([]domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls = append(f.imageCalls, execCtx+" "+strings.Join(filters, ","))
	var out []domain.Image
	for _, img := range f.images[execCtx] {
		for _, filter := range filters {
			if domain.MainTagFilter(img.Record.MainTag) == filter {
				out = append(out, img)
			}
		}
	}
	return out, nil
}

func (f *fakeRuntime) RemoveImages(_ context.Context, execCtx string, refs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[execCtx] = append(f.removed[execCtx], refs...)
	return f.removeErr
}

func (f *fakeRuntime) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeRuntime) operationsOf(prefix string) []string {
	var out []string
	for _, op := range f.operations() {
		if strings.HasPrefix(op, prefix) {
			out = append(out, op)
		}
	}
	sort.Strings(out)
	return out
}

const (
	repoA = "https://git.example.com/shop/frontend.git"
	repoB = "https://git.example.com/shop/backend.git"
)

func testBook() domain.Book {
	return domain.Book{
		Name:              "shop",
		RegistryNamespace: "library/shop",
		Builder:           "builder",
		Runner:            "runner",
		Traefik:           &domain.TraefikConfig{BaseDomain: "example.com", Port: 8080},
		CustomLabels:      []string{"team=web"},
		Repos: []domain.Repo{
			{Name: "frontend", URL: repoA, Refs: []domain.Ref{domain.NewRef("main", "")}},
		},
	}
}

type harness struct {
	registry *fakeRegistry
	scanner  *fakeScanner
	builder  *fakeBuilder
	runtime  *fakeRuntime
	guard    *MemoryGuard
	r        *Reconciler
}

func newHarness(limits Limits, registryTags ...string) *harness {
	h := &harness{
		registry: newFakeRegistry("library/shop", registryTags...),
		scanner:  &fakeScanner{refs: map[string][]domain.RemoteRef{}, errs: map[string]error{}},
		builder:  &fakeBuilder{fail: map[string]error{}},
		runtime:  newFakeRuntime(),
		guard:    NewMemoryGuard(),
	}
	h.builder.onBuild = func(req domain.BuildRequest) {
		for _, t := range req.Tags {
			tag, _ := domain.ParseMainTag(t)
			h.registry.publish(tag.Repository, tag.Tag)
		}
	}
	h.r = NewReconciler(Dependencies{
		Registry: h.registry,
		Scanner:  h.scanner,
		Builder:  h.builder,
		Runtime:  h.runtime,
		Guard:    h.guard,
		Limits:   limits,
	})
	return h
}
