package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTagFormat matches every *InvalidTagFormatError.
	ErrInvalidTagFormat = errors.New("invalid tag format")

	// ErrReconcileInProgress is returned when a reconciliation of the same
	// book is already running.
	ErrReconcileInProgress = errors.New("reconciliation already in progress")

	ErrBookNotFound = errors.New("book not found")
)

// InvalidTagFormatError is returned when a string is not a valid MainTag.
type InvalidTagFormatError struct {
	Value string
}

func (e *InvalidTagFormatError) Error() string {
	return fmt.Sprintf("invalid main tag %q", e.Value)
}

func (e *InvalidTagFormatError) Is(target error) bool {
	return target == ErrInvalidTagFormat
}

// ScanError is returned when listing the refs of a remote failed.
type ScanError struct {
	RepoURL  string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *ScanError) Error() string {
	msg := fmt.Sprintf("failed to list refs of %s", e.RepoURL)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScanError) Unwrap() error { return e.Err }

// BuildError is returned when the image of one ref failed to build or push.
type BuildError struct {
	Tag    string
	Source string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build %s from %s: %v", e.Tag, e.Source, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// RegistryError is returned when a registry call failed or answered with an
// unexpected status.
type RegistryError struct {
	Op         string
	Repository string
	Err        error
}

func (e *RegistryError) Error() string {
	if e.Repository == "" {
		return fmt.Sprintf("registry %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("registry %s %s failed: %v", e.Op, e.Repository, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// RuntimeOpError is returned when a container or image operation failed.
type RuntimeOpError struct {
	Op          string
	Target      string
	ExecContext string
	Err         error
}

func (e *RuntimeOpError) Error() string {
	return fmt.Sprintf("failed to %s %s on context %s: %v", e.Op, e.Target, e.ExecContext, e.Err)
}

func (e *RuntimeOpError) Unwrap() error { return e.Err }
