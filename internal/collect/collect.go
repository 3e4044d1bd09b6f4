// Package collect turns raw branch handles into the ordered triage list.
package collect

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/bral/git-triage/internal/types"
)

// protectedBranches are never offered for triage.
var protectedBranches = []string{
	"main",
	"origin/main",
	"master",
	"origin/master",
	"default",
	"origin/default",
	"origin/HEAD",
}

// ProtectedBranches returns a fresh lookup map of the protected branch names.
func ProtectedBranches() map[string]bool {
	m := make(map[string]bool, len(protectedBranches))
	for _, name := range protectedBranches {
		m[name] = true
	}
	return m
}

// ProtectedBranchNames returns the protected names in sorted order.
func ProtectedBranchNames() []string {
	names := slices.Clone(protectedBranches)
	slices.Sort(names)
	return names
}

// Lister enumerates branch handles from a repository.
type Lister interface {
	Branches(ctx context.Context, localOnly bool) ([]types.BranchRef, error)
}

// Extract builds a Branch from a raw handle.
//
// The commit time keeps the committer's wall clock: the recorded offset is
// added to the epoch seconds and the result carries no zone, so displayed
// times match what the committer saw.
func Extract(ref types.BranchRef) (types.Branch, error) {
	name := ref.Name()
	if !utf8.ValidString(name) {
		return types.Branch{}, fmt.Errorf("%w: %q", types.ErrInvalidEncoding, name)
	}

	commit, err := ref.Commit()
	if err != nil {
		return types.Branch{}, fmt.Errorf("failed to resolve tip commit of %q: %w", name, err)
	}

	author := commit.Author
	if author == "" {
		author = types.NoAuthor
	}
	summary := commit.Summary
	if summary == "" {
		summary = types.NoSummary
	}

	return types.Branch{
		ID:            commit.ID,
		Name:          name,
		CommitAuthor:  author,
		CommitSummary: summary,
		Type:          ref.Type(),
		CommitTime:    LocalCommitTime(commit.Seconds, commit.OffsetMinutes),
		IsHead:        ref.IsHead(),
	}, nil
}

// LocalCommitTime folds offsetMinutes into seconds and returns a zone-less
// (UTC located) timestamp in the committer's frame.
func LocalCommitTime(seconds int64, offsetMinutes int) time.Time {
	return time.Unix(seconds+int64(offsetMinutes)*60, 0).UTC()
}

// Collect enumerates branches, drops protected names and, when filter is
// non-empty, names that do not contain it (case-insensitively). The result
// is stably sorted by commit time, oldest first.
//
// Any extraction failure aborts the whole collection.
func Collect(
	ctx context.Context, lister Lister, protected map[string]bool,
	filter string, localOnly bool,
) ([]types.Branch, error) {
	refs, err := lister.Branches(ctx, localOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	lowerFilter := strings.ToLower(filter)
	branches := make([]types.Branch, 0, len(refs))
	for _, ref := range refs {
		branch, err := Extract(ref)
		if err != nil {
			return nil, err
		}
		if !Included(branch.Name, protected, lowerFilter) {
			continue
		}
		branches = append(branches, branch)
	}

	slices.SortStableFunc(branches, func(a, b types.Branch) int {
		return a.CommitTime.Compare(b.CommitTime)
	})
	return branches, nil
}

// Included reports whether name passes the protected-set and filter checks.
// lowerFilter must already be lower-cased; empty means no filter.
func Included(name string, protected map[string]bool, lowerFilter string) bool {
	if protected[name] {
		return false
	}
	if lowerFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), lowerFilter)
}

// Counts returns the number of local and remote branches in branches.
func Counts(branches []types.Branch) (local, remote int) {
	local = lo.CountBy(branches, func(b types.Branch) bool { return b.Type == types.BranchLocal })
	return local, len(branches) - local
}
