package gitcmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bral/git-triage/internal/types"
)

const (
	// Format: refname<NULL>objectname<NULL>committerdate:raw<NULL>authorname<NULL>HEAD<NULL>subject<NEWLINE>
	// The subject goes last; git joins a multi-line first paragraph into one line.
	branchInfoFormat = "%(refname)%00%(objectname)%00%(committerdate:raw)%00%(authorname)%00%(HEAD)%00%(contents:subject)"
	fieldSeparator   = "\x00"
	fieldCount       = 6

	localPrefix  = "refs/heads/"
	remotePrefix = "refs/remotes/"
)

// Repository is the git CLI backend rooted at a working directory.
type Repository struct {
	dir string
}

// Open checks that dir is inside a git repository.
func Open(ctx context.Context, dir string) (*Repository, error) {
	inRepo, err := IsInGitRepo(ctx, dir)
	if err != nil {
		return nil, types.RepositoryError("open repository", err)
	}
	if !inRepo {
		return nil, types.RepositoryError("open repository", errors.New("not inside a git repository"))
	}
	return &Repository{dir: dir}, nil
}

// Branches lists branch refs with their tip commit metadata.
func (r *Repository) Branches(ctx context.Context, localOnly bool) ([]types.BranchRef, error) {
	return ListBranches(ctx, r.dir, localOnly)
}

// DeleteBranch force-deletes a local branch.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	return DeleteLocalBranch(ctx, r.dir, name)
}

// IsInGitRepo checks if dir is within a git repository (bare or not).
// A git binary that cannot be started is an error, not a "no".
func IsInGitRepo(ctx context.Context, dir string) (bool, error) {
	if _, err := RunGitCommand(ctx, "-C", dir, "rev-parse", "--git-dir"); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, fmt.Errorf("git is not installed: %w", err)
		}
		// rev-parse fails outside a repository; that is an expected answer.
		return false, nil
	}
	return true, nil
}

// ListBranches runs git for-each-ref over refs/heads (and refs/remotes
// unless localOnly). git reports refs sorted by full name, so local
// branches precede remote-tracking ones.
func ListBranches(ctx context.Context, dir string, localOnly bool) ([]types.BranchRef, error) {
	args := []string{"-C", dir, "for-each-ref", "--format=" + branchInfoFormat, localPrefix}
	if !localOnly {
		args = append(args, remotePrefix)
	}

	output, err := RunGitCommand(ctx, args...)
	if err != nil {
		return nil, types.RepositoryError("list branches", cleanError(err))
	}
	if strings.TrimSpace(output) == "" {
		return []types.BranchRef{}, nil
	}

	records := strings.Split(output, "\n")
	refs := make([]types.BranchRef, 0, len(records))
	for _, record := range records {
		if record == "" {
			continue
		}
		ref, err := parseBranchRecord(record)
		if err != nil {
			return nil, types.RepositoryError("list branches", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// branchRecord is one parsed for-each-ref line.
type branchRecord struct {
	name      string
	kind      types.BranchType
	head      bool
	commit    types.Commit
	commitErr error
}

func (b *branchRecord) Name() string           { return b.name }
func (b *branchRecord) Type() types.BranchType { return b.kind }
func (b *branchRecord) IsHead() bool           { return b.head }
func (b *branchRecord) Commit() (types.Commit, error) {
	return b.commit, b.commitErr
}

func parseBranchRecord(record string) (*branchRecord, error) {
	fields := strings.Split(record, fieldSeparator)
	if len(fields) != fieldCount {
		return nil, fmt.Errorf("malformed branch record (expected %d fields, got %d): %q", fieldCount, len(fields), record)
	}
	refName, hash, rawDate, author, headMark, subject :=
		fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	b := &branchRecord{head: headMark == "*"}
	switch {
	case strings.HasPrefix(refName, localPrefix):
		b.name = strings.TrimPrefix(refName, localPrefix)
		b.kind = types.BranchLocal
	case strings.HasPrefix(refName, remotePrefix):
		b.name = strings.TrimPrefix(refName, remotePrefix)
		b.kind = types.BranchRemote
	default:
		return nil, fmt.Errorf("unexpected ref %q", refName)
	}

	// A branch pointing at something other than a commit has no committer date.
	if rawDate == "" {
		b.commitErr = types.RepositoryError("resolve "+b.name, fmt.Errorf("%s does not point to a commit", hash))
		return b, nil
	}
	seconds, offset, err := parseRawDate(rawDate)
	if err != nil {
		b.commitErr = types.RepositoryError("resolve "+b.name, err)
		return b, nil
	}
	b.commit = types.Commit{
		ID:            hash,
		Seconds:       seconds,
		OffsetMinutes: offset,
		Author:        author,
		Summary:       subject,
	}
	return b, nil
}

// parseRawDate parses git's raw date format, "1700000000 +0200".
func parseRawDate(raw string) (seconds int64, offsetMinutes int, err error) {
	secStr, zone, ok := strings.Cut(strings.TrimSpace(raw), " ")
	if !ok || len(zone) != 5 || (zone[0] != '+' && zone[0] != '-') {
		return 0, 0, fmt.Errorf("invalid raw date %q", raw)
	}
	seconds, err = strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid raw date %q: %w", raw, err)
	}
	hours, err := strconv.Atoi(zone[1:3])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid zone in raw date %q: %w", raw, err)
	}
	minutes, err := strconv.Atoi(zone[3:5])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid zone in raw date %q: %w", raw, err)
	}
	offsetMinutes = hours*60 + minutes
	if zone[0] == '-' {
		offsetMinutes = -offsetMinutes
	}
	return seconds, offsetMinutes, nil
}
