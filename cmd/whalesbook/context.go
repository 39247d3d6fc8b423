package main

import (
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/melih/whalesbook/internal/adapters/builder"
	"github.com/melih/whalesbook/internal/adapters/docker"
	gitscan "github.com/melih/whalesbook/internal/adapters/git"
	"github.com/melih/whalesbook/internal/adapters/lock"
	"github.com/melih/whalesbook/internal/adapters/registry"
	"github.com/melih/whalesbook/internal/config"
	"github.com/melih/whalesbook/internal/core/domain"
	"github.com/melih/whalesbook/internal/core/ports"
	"github.com/melih/whalesbook/internal/core/services"
	"github.com/melih/whalesbook/internal/metrics"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil || strings.TrimSpace(*c.configFlag) == "" {
		return config.DefaultPath
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.configPath())
	})
	return c.config, c.configErr
}

// app holds the wired engine and the adapters it was built from.
type app struct {
	cfg      *config.Config
	clients  *docker.Clients
	registry *registry.Client
	runtime  *docker.Adapter
	recorder *metrics.Recorder
	engine   *services.Reconciler
}

func (c *commandContext) newApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (*app, error) {
	// 1. Initialize Adapters (Infrastructure)
	auth, err := cfg.Registry.DockerAuth()
	if err != nil {
		return nil, err
	}
	reg, err := registry.NewClient(cfg.Registry)
	if err != nil {
		return nil, err
	}
	scanner, err := newScanner(cfg.Git)
	if err != nil {
		return nil, err
	}
	guard, err := lock.NewFileGuard(cfg.LockDir)
	if err != nil {
		return nil, err
	}
	clients := docker.NewClients(cfg.DockerHosts())
	runtime := docker.NewAdapter(clients, auth)
	recorder := metrics.NewRecorder()

	// 2. Inject them into the engine
	engine := services.NewReconciler(services.Dependencies{
		Registry: reg,
		Scanner:  scanner,
		Builder:  builder.NewBuilderAdapter(clients, auth),
		Runtime:  runtime,
		Guard:    guard,
		Recorder: recorder,
		Limits: services.Limits{
			Builds:     cfg.Concurrency.Builds,
			Containers: cfg.Concurrency.Containers,
		},
	})

	return &app{
		cfg:      cfg,
		clients:  clients,
		registry: reg,
		runtime:  runtime,
		recorder: recorder,
		engine:   engine,
	}, nil
}

func newScanner(cfg config.Git) (ports.RefScanner, error) {
	if cfg.Scanner == config.ScannerCLI {
		return gitscan.NewCLIScanner(cfg.Command, cfg.Timeout())
	}
	return gitscan.NewRemoteScanner(), nil
}

// books resolves the named books, or every book when names is empty.
func (a *app) books(names []string) ([]domain.Book, error) {
	if len(names) == 0 {
		return a.cfg.BookList(), nil
	}
	var errs error
	books := make([]domain.Book, 0, len(names))
	for _, name := range names {
		b, err := a.cfg.Book(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		books = append(books, b)
	}
	return books, errs
}

func (a *app) Close() error {
	return a.clients.Close()
}
