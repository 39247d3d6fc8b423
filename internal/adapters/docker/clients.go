package docker

import (
	"fmt"
	"sync"

	"github.com/docker/docker/client"
	"go.uber.org/multierr"

	"github.com/melih/whalesbook/internal/core/domain"
)

// Clients hands out one docker client per execution context. The default
// context without an explicit host is configured from the environment.
type Clients struct {
	mu      sync.Mutex
	hosts   map[string]string
	clients map[string]*client.Client
}

// NewClients creates a client pool for the given context → host mapping.
func NewClients(hosts map[string]string) *Clients {
	h := make(map[string]string, len(hosts)+1)
	for name, host := range hosts {
		h[name] = host
	}
	if _, ok := h[domain.DefaultExecContext]; !ok {
		h[domain.DefaultExecContext] = ""
	}
	return &Clients{hosts: h, clients: make(map[string]*client.Client)}
}

// Get returns the client of an execution context, creating it on first use.
func (c *Clients) Get(execCtx string) (*client.Client, error) {
	if execCtx == "" {
		execCtx = domain.DefaultExecContext
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cli, ok := c.clients[execCtx]; ok {
		return cli, nil
	}
	host, ok := c.hosts[execCtx]
	if !ok {
		return nil, fmt.Errorf("unknown docker context %q", execCtx)
	}

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client for context %s: %w", execCtx, err)
	}
	c.clients[execCtx] = cli
	return cli, nil
}

// Close closes every client created so far.
func (c *Clients) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs error
	for name, cli := range c.clients {
		errs = multierr.Append(errs, cli.Close())
		delete(c.clients, name)
	}
	return errs
}
