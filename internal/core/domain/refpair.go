package domain

import (
	"bufio"
	"fmt"
	"strings"
)

const GitTagPrefix = "git-"

// RemoteRef is one line of a remote ref listing.
type RemoteRef struct {
	Hash string
	Name string
}

// ParseRemoteRefs parses "<hash> <ref>" lines as printed by git ls-remote.
func ParseRemoteRefs(out string) ([]RemoteRef, error) {
	var refs []RemoteRef
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed ref line %q", line)
		}
		refs = append(refs, RemoteRef{Hash: fields[0], Name: fields[1]})
	}
	return refs, scanner.Err()
}

// TrackingRefPair is a tracked ref observed on a remote during one cycle.
type TrackingRefPair struct {
	RepoURL string `json:"repo_url"`
	Hash    string `json:"hash"`
	RefName string `json:"ref_name"`
}

// Key returns the repository-qualified ref this pair belongs to.
func (p TrackingRefPair) Key() RefKey {
	return RefKey{RepoURL: p.RepoURL, RefName: p.RefName}
}

// GitTag is the content-addressed registry tag of the pair's commit.
func (p TrackingRefPair) GitTag() string {
	return GitTagPrefix + p.Hash
}

// IsGitTag reports whether a registry tag is content-addressed.
func IsGitTag(tag string) bool {
	return strings.HasPrefix(tag, GitTagPrefix)
}
