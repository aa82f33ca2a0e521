package health

import (
	"context"
	"fmt"
	"os"
)

// FileChecker reports healthy iff path exists. The path is unlinked once
// when the service starts (ResetReadinessFile), so the service itself
// must recreate it to prove liveness (spec §4.6).
type FileChecker struct {
	path string
}

// NewFileChecker creates a file-existence probe for path.
func NewFileChecker(path string) *FileChecker {
	return &FileChecker{path: path}
}

// Check reports whether the readiness file currently exists.
func (c *FileChecker) Check(_ context.Context) Result {
	if _, err := os.Stat(c.path); err != nil {
		if os.IsNotExist(err) {
			return Result{Message: fmt.Sprintf("%s does not exist", c.path)}
		}
		return Result{Message: fmt.Sprintf("stat %s: %v", c.path, err), Err: err}
	}
	return Result{Healthy: true, Message: fmt.Sprintf("%s exists", c.path)}
}

// ResetReadinessFile removes path if present, ignoring a not-exist error.
// Called once when a service transitions into Starting so a stale file
// from a previous run can't be mistaken for fresh readiness.
func ResetReadinessFile(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
