// gitinfo.go reads Git metadata to stamp stage runs recorded in the ledger.
package gitinfo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Head returns the commit hash and dirty state of the repository at dir.
func Head(ctx context.Context, dir string) (commit string, dirty bool, err error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", false, err
	}
	commit = strings.TrimSpace(string(output))
	statusCmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	statusCmd.Dir = dir
	statusOut, err := statusCmd.Output()
	if err != nil {
		return commit, false, fmt.Errorf("git status: %w", err)
	}
	dirty = len(strings.TrimSpace(string(statusOut))) > 0
	return commit, dirty, nil
}
