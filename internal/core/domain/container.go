package domain

// Container represents a container in the system (Docker, K8s, etc.)
type Container struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Image     string            `json:"image"`
	Status    string            `json:"status"`
	State     string            `json:"state"` // running, exited, etc.
	IPAddress string            `json:"ip_address,omitempty"`
	Labels    map[string]string `json:"-"`
	Record    LabelRecord       `json:"record"`
}

// Running reports whether the runtime considers the container alive.
func (c Container) Running() bool {
	return c.State == "running"
}

// Image is a local image known to an execution context.
type Image struct {
	ID       string      `json:"id"`
	RepoTags []string    `json:"repo_tags"`
	Record   LabelRecord `json:"record"`
}

type PullPolicy string

const (
	PullAlways PullPolicy = "always"
	PullNever  PullPolicy = "never"
)

const RestartAlways = "always"

// RunRequest describes a container to start.
type RunRequest struct {
	Image         string
	Network       string
	Name          string
	RestartPolicy string
	Labels        map[string]string
	Pull          PullPolicy
	ExecContext   string
}

// BuildSource is a commit of a remote repository.
type BuildSource struct {
	RepoURL string
	RefName string
	Commit  string
}

// String renders the source as "<url>#<commit>".
func (s BuildSource) String() string {
	return s.RepoURL + "#" + s.Commit
}

// BuildRequest describes one image build.
type BuildRequest struct {
	Tags        []string
	Source      BuildSource
	ExecContext string
	Dockerfile  string
	Labels      map[string]string
	Push        bool
}
