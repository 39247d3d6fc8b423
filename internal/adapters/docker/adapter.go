package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/containerd/log"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"go.uber.org/multierr"

	"github.com/melih/whalesbook/internal/core/domain"
)

const stopTimeout = 10 * time.Second

// Adapter implements ports.ContainerService using Docker SDK
type Adapter struct {
	clients      *Clients
	registryAuth string
}

// NewAdapter creates a new Docker adapter instance. registryAuth is the
// encoded credential sent with image pulls, empty for anonymous access.
func NewAdapter(clients *Clients, registryAuth string) *Adapter {
	return &Adapter{clients: clients, registryAuth: registryAuth}
}

// ListContainers returns every container, running or not, matching the label filters.
func (a *Adapter) ListContainers(ctx context.Context, execCtx string, labelFilters []string) ([]domain.Container, error) {
	cli, err := a.clients.Get(execCtx)
	if err != nil {
		return nil, err
	}
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: labelArgs(labelFilters)})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]domain.Container, 0, len(containers))
	for _, c := range containers {
		dc, err := toContainer(c)
		if err != nil {
			log.G(ctx).WithError(err).WithField("container", c.ID).Warn("Ignoring container with an invalid main tag label")
			continue
		}
		result = append(result, dc)
	}
	return result, nil
}

// RunContainer pulls the image when asked to, then creates and starts a container from it.
func (a *Adapter) RunContainer(ctx context.Context, req domain.RunRequest) (string, error) {
	cli, err := a.clients.Get(req.ExecContext)
	if err != nil {
		return "", err
	}

	if req.Pull == domain.PullAlways {
		reader, err := cli.ImagePull(ctx, req.Image, image.PullOptions{RegistryAuth: a.registryAuth})
		if err != nil {
			return "", fmt.Errorf("failed to pull image: %w", err)
		}
		defer reader.Close()
		if err := jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil); err != nil {
			return "", fmt.Errorf("failed to pull image: %w", err)
		}
	}

	hostConfig := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyMode(req.RestartPolicy)},
		AutoRemove:    req.RestartPolicy == "",
	}
	if req.Network != "" {
		hostConfig.NetworkMode = container.NetworkMode(req.Network)
	}
	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  req.Image,
		Labels: req.Labels,
	}, hostConfig, nil, nil, req.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}
	return resp.ID, nil
}

// StopContainer stops a running container and optionally removes it.
func (a *Adapter) StopContainer(ctx context.Context, execCtx, id string, remove bool) error {
	cli, err := a.clients.Get(execCtx)
	if err != nil {
		return err
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*stopTimeout)
	defer cancel()
	timeout := int(stopTimeout.Seconds())
	if err := cli.ContainerStop(stopCtx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			log.G(ctx).WithField("container", id).Warn("No such container")
			return nil
		}
		return fmt.Errorf("failed to stop container: %w", err)
	}
	if !remove {
		return nil
	}

	if err := cli.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			log.G(ctx).WithField("container", id).Warn("No such container")
			return nil
		}
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// GetContainerLogs returns a stream of container logs
func (a *Adapter) GetContainerLogs(ctx context.Context, execCtx, id string) (io.ReadCloser, error) {
	cli, err := a.clients.Get(execCtx)
	if err != nil {
		return nil, err
	}
	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     false, // Can be true for streaming
		Timestamps: true,
		Tail:       "500",
	}
	return cli.ContainerLogs(ctx, id, options)
}

// ListImages returns the local images matching every label filter.
func (a *Adapter) ListImages(ctx context.Context, execCtx string, labelFilters []string) ([]domain.Image, error) {
	cli, err := a.clients.Get(execCtx)
	if err != nil {
		return nil, err
	}
	images, err := cli.ImageList(ctx, image.ListOptions{Filters: labelArgs(labelFilters)})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	result := make([]domain.Image, 0, len(images))
	for _, img := range images {
		rec, _, err := domain.DecodeLabels(img.Labels)
		if err != nil {
			log.G(ctx).WithError(err).WithField("image", img.ID).Warn("Ignoring image with an invalid main tag label")
			continue
		}
		result = append(result, domain.Image{ID: img.ID, RepoTags: img.RepoTags, Record: rec})
	}
	return result, nil
}

// RemoveImages untags every reference, deleting images left without tags.
func (a *Adapter) RemoveImages(ctx context.Context, execCtx string, refs []string) error {
	cli, err := a.clients.Get(execCtx)
	if err != nil {
		return err
	}
	var errs error
	for _, ref := range refs {
		if _, err := cli.ImageRemove(ctx, ref, image.RemoveOptions{PruneChildren: true}); err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("failed to remove image %s: %w", ref, err))
			continue
		}
		log.G(ctx).WithField("image", ref).Info("Removed image")
	}
	return errs
}

func labelArgs(labelFilters []string) filters.Args {
	args := filters.NewArgs()
	for _, l := range labelFilters {
		args.Add("label", l)
	}
	return args
}

func toContainer(c types.Container) (domain.Container, error) {
	rec, _, err := domain.DecodeLabels(c.Labels)
	if err != nil {
		return domain.Container{}, err
	}

	// Use the first name if available, remove slash
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	id := c.ID
	if len(id) > 12 {
		id = id[:12] // Short ID
	}

	var ip string
	if c.NetworkSettings != nil {
		for _, nw := range c.NetworkSettings.Networks {
			if nw != nil && nw.IPAddress != "" {
				ip = nw.IPAddress
				break
			}
		}
	}

	return domain.Container{
		ID:        id,
		Name:      name,
		Image:     c.Image,
		Status:    c.Status,
		State:     c.State,
		IPAddress: ip,
		Labels:    c.Labels,
		Record:    rec,
	}, nil
}
