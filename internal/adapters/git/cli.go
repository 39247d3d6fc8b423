package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/containerd/log"
	"github.com/mattn/go-shellwords"

	"github.com/melih/whalesbook/internal/core/domain"
)

const DefaultTimeout = 300 * time.Second

// CLIScanner runs `<command> ls-remote <url>` and parses its output. It
// picks up the user's git credential helpers and ssh config, which the
// in-process scanner does not.
type CLIScanner struct {
	args    []string
	timeout time.Duration
}

// NewCLIScanner splits command shell-style; an empty command means "git".
func NewCLIScanner(command string, timeout time.Duration) (*CLIScanner, error) {
	if strings.TrimSpace(command) == "" {
		command = "git"
	}
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse git command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty git command")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CLIScanner{args: args, timeout: timeout}, nil
}

func (s *CLIScanner) ListRemoteRefs(ctx context.Context, repoURL string) ([]domain.RemoteRef, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append(append([]string{}, s.args[1:]...), "ls-remote", repoURL)
	cmd := exec.CommandContext(ctx, s.args[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.G(ctx).WithField("repo", repoURL).Debugf("Running %s", strings.Join(cmd.Args, " "))
	err := cmd.Run()
	if err != nil {
		scanErr := &domain.ScanError{
			RepoURL: repoURL,
			Stdout:  strings.TrimSpace(stdout.String()),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			scanErr.Err = ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			scanErr.ExitCode = exitErr.ExitCode()
		}
		return nil, scanErr
	}

	refs, err := domain.ParseRemoteRefs(stdout.String())
	if err != nil {
		return nil, &domain.ScanError{RepoURL: repoURL, Stdout: stdout.String(), Err: err}
	}
	return refs, nil
}
