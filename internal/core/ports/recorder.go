package ports

import "time"

// Recorder receives reconciliation events for metrics.
type Recorder interface {
	ReconcileFinished(book, outcome string, elapsed time.Duration)
	BuildFinished(book string, err error)
	ContainerStarted(book string, err error)
	ContainerStopped(book string, err error)
	TagPruned(book string, err error)
}
