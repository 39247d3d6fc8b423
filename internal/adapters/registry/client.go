package registry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	dockerregistry "github.com/docker/docker/api/types/registry"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/melih/whalesbook/internal/core/domain"
)

// Config describes how to reach a docker registry v2 endpoint.
type Config struct {
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	CAFile   string `json:"cafile,omitempty"`
}

// Host returns the registry address without its scheme.
func (c Config) Host() string {
	if _, rest, ok := strings.Cut(c.URL, "://"); ok {
		return strings.TrimSuffix(rest, "/")
	}
	return strings.TrimSuffix(c.URL, "/")
}

func (c Config) insecure() bool {
	return strings.HasPrefix(c.URL, "http://")
}

// DockerAuth encodes the credentials for the docker engine's push and pull
// calls. Anonymous registries yield an empty string.
func (c Config) DockerAuth() (string, error) {
	if c.Username == "" && c.Password == "" {
		return "", nil
	}
	return dockerregistry.EncodeAuthConfig(dockerregistry.AuthConfig{
		Username:      c.Username,
		Password:      c.Password,
		ServerAddress: c.Host(),
	})
}

// Client talks to a registry with go-containerregistry.
type Client struct {
	cfg      Config
	nameOpts []name.Option
	opts     []remote.Option
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("registry url is required")
	}

	tr := cleanhttp.DefaultPooledTransport()
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read registry CA file: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	var auth authn.Authenticator = authn.Anonymous
	if cfg.Username != "" || cfg.Password != "" {
		auth = &authn.Basic{Username: cfg.Username, Password: cfg.Password}
	}

	c := &Client{
		cfg:  cfg,
		opts: []remote.Option{remote.WithAuth(auth), remote.WithTransport(tr)},
	}
	if cfg.insecure() {
		c.nameOpts = append(c.nameOpts, name.Insecure)
	}
	return c, nil
}

func (c *Client) URL() string { return c.cfg.URL }

func (c *Client) remoteOpts(ctx context.Context) []remote.Option {
	return append([]remote.Option{remote.WithContext(ctx)}, c.opts...)
}

// Repositories lists the registry catalog.
func (c *Client) Repositories(ctx context.Context) ([]string, error) {
	reg, err := name.NewRegistry(c.cfg.Host(), c.nameOpts...)
	if err != nil {
		return nil, &domain.RegistryError{Op: "catalog", Err: err}
	}
	repos, err := remote.Catalog(ctx, reg, c.remoteOpts(ctx)...)
	if err != nil {
		return nil, &domain.RegistryError{Op: "catalog", Err: err}
	}
	return repos, nil
}

// Tags lists the tags of a repository. A repository the registry does not
// know yet has no tags.
func (c *Client) Tags(ctx context.Context, repository string) ([]string, error) {
	repo, err := name.NewRepository(c.cfg.Host()+"/"+repository, c.nameOpts...)
	if err != nil {
		return nil, &domain.RegistryError{Op: "list tags", Repository: repository, Err: err}
	}
	tags, err := remote.List(repo, c.remoteOpts(ctx)...)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &domain.RegistryError{Op: "list tags", Repository: repository, Err: err}
	}
	return tags, nil
}

// DeleteByTag resolves tag to its manifest digest and deletes the manifest.
// Every tag sharing that digest goes with it.
func (c *Client) DeleteByTag(ctx context.Context, repository, tag string) error {
	ref, err := name.NewTag(c.cfg.Host()+"/"+repository+":"+tag, c.nameOpts...)
	if err != nil {
		return &domain.RegistryError{Op: "delete", Repository: repository, Err: err}
	}
	desc, err := remote.Head(ref, c.remoteOpts(ctx)...)
	if err != nil {
		return &domain.RegistryError{Op: "resolve " + tag, Repository: repository, Err: err}
	}
	digest := ref.Context().Digest(desc.Digest.String())
	if err := remote.Delete(digest, c.remoteOpts(ctx)...); err != nil {
		return &domain.RegistryError{Op: "delete " + tag, Repository: repository, Err: err}
	}
	return nil
}

func isNotFound(err error) bool {
	var terr *transport.Error
	if !errors.As(err, &terr) {
		return false
	}
	if terr.StatusCode == http.StatusNotFound {
		return true
	}
	for _, d := range terr.Errors {
		if d.Code == transport.NameUnknownErrorCode {
			return true
		}
	}
	return false
}
