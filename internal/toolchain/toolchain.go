// toolchain.go invokes the platform module's own build tool as an opaque external command.
package toolchain

import (
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes the release build command inside the module directory.
// The toolchain is a black box: the only contract is a zero exit status and,
// on success, an executable artifact at a deterministic path.
type Runner struct {
	// Dir is the working directory for the build (the module workspace).
	Dir string
	// Command is the argv of the build invocation, e.g. ["cargo", "build", "--release"].
	Command []string
	// Stdout and Stderr receive the toolchain's own diagnostics unmodified.
	Stdout io.Writer
	Stderr io.Writer
}

// Build runs the configured command and blocks until it exits. The returned
// error keeps the underlying *exec.ExitError reachable so callers can
// propagate the toolchain's exit status as their own.
func (r *Runner) Build(ctx context.Context) error {
	if len(r.Command) == 0 {
		return errors.New("toolchain: no build command configured")
	}
	if _, err := exec.LookPath(r.Command[0]); err != nil {
		return errors.Wrapf(err, "toolchain %q not found", r.Command[0])
	}
	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s", strings.Join(r.Command, " "))
	}
	return nil
}

// ExitStatus maps err to a process exit code. Build failures carry the
// toolchain's own status through; anything else is a plain failure.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
