package gitcmd

import (
	"context"
	"errors"

	"github.com/bral/git-triage/internal/types"
)

// DeleteLocalBranch runs 'git branch -D <name>'. Remote-tracking branches
// are never passed here.
func DeleteLocalBranch(ctx context.Context, dir, name string) error {
	if name == "" {
		return types.RepositoryError("delete branch", errors.New("branch name cannot be empty"))
	}
	if _, err := RunGitCommand(ctx, "-C", dir, "branch", "-D", name); err != nil {
		return types.RepositoryError("delete branch "+name, cleanError(err))
	}
	return nil
}
