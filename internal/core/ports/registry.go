package ports

import "context"

// Registry is a docker registry v2 endpoint.
type Registry interface {
	// URL is the registry base URL images are tagged against.
	URL() string
	Repositories(ctx context.Context) ([]string, error)
	// Tags lists the tags of a repository; an unknown repository has none.
	Tags(ctx context.Context, repository string) ([]string, error)
	// DeleteByTag resolves the tag to its manifest digest and deletes it.
	DeleteByTag(ctx context.Context, repository, tag string) error
}
