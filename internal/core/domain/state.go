package domain

// Diff is the difference between the tracked refs and the registry.
type Diff struct {
	RefsToUpdate     []TrackingRefPair `json:"refs_to_update"`
	OrphanedHashTags []string          `json:"orphaned_hash_tags"`
}

// Empty reports whether nothing needs to be built or pruned.
func (d Diff) Empty() bool {
	return len(d.RefsToUpdate) == 0 && len(d.OrphanedHashTags) == 0
}

// UpdateResult summarizes one reconciliation of a book.
type UpdateResult struct {
	Book    string `json:"book"`
	Cycle   string `json:"cycle"`
	Diff    Diff   `json:"diff"`
	Skipped bool   `json:"skipped"`
	Forced  bool   `json:"forced"`
	Built   int    `json:"built"`
	Failed  int    `json:"failed"`
	Started int    `json:"started"`
	Stopped int    `json:"stopped"`
}

// PruneReport summarizes one pruning pass over a book.
type PruneReport struct {
	Book          string   `json:"book"`
	DeletedTags   []string `json:"deleted_tags"`
	RemovedImages []string `json:"removed_images"`
	Failures      int      `json:"failures"`
}

// RefState is the observed state of one tracked ref.
type RefState struct {
	Ref             string      `json:"ref"`
	Slug            string      `json:"slug"`
	Commit          string      `json:"commit,omitempty"`
	SlugPublished   bool        `json:"slug_published"`
	CommitPublished bool        `json:"commit_published"`
	Containers      []Container `json:"containers"`
}

// UpToDate reports whether the latest commit is published under both tags.
func (s RefState) UpToDate() bool {
	return s.Commit != "" && s.SlugPublished && s.CommitPublished
}

// BookState is the observed state of a book, keyed by repo name then ref name.
type BookState struct {
	Book   string                         `json:"book"`
	Repos  map[string]map[string]RefState `json:"repos"`
	Errors []string                       `json:"errors,omitempty"`
}
