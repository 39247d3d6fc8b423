package logging

import (
	"fmt"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
)

// Setup configures the process-wide logger.
func Setup(verbose bool, format string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := log.SetLevel(level); err != nil {
		return err
	}

	switch log.OutputFormat(format) {
	case "", log.TextFormat:
		log.L.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: log.RFC3339NanoFixed,
		})
	case log.JSONFormat:
		return log.SetFormat(log.JSONFormat)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
