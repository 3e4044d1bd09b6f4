// Package repo implements the repository backend on top of go-git.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/bral/git-triage/internal/types"
)

// Repository lists and deletes branches of a go-git repository.
type Repository struct {
	repo *git.Repository
}

// Open opens the repository containing path, walking up to find .git.
// Inside a linked worktree the shared refs of the main repository are used.
func Open(path string) (*Repository, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, types.RepositoryError("open repository", fmt.Errorf("not in a git repository: %w", err))
	}
	return New(r), nil
}

// New wraps an already opened repository.
func New(r *git.Repository) *Repository {
	return &Repository{repo: r}
}

// Branches returns local branches followed by remote-tracking branches,
// each group in ref-name order. Remote-tracking branches are skipped when
// localOnly is set.
func (r *Repository) Branches(ctx context.Context, localOnly bool) ([]types.BranchRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var headName plumbing.ReferenceName
	if head, err := r.repo.Storer.Reference(plumbing.HEAD); err == nil && head.Type() == plumbing.SymbolicReference {
		headName = head.Target()
	}

	iter, err := r.repo.References()
	if err != nil {
		return nil, types.RepositoryError("list references", err)
	}
	defer iter.Close()

	var found []*branchRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		switch {
		case name.IsBranch():
			found = append(found, &branchRef{
				repo: r.repo,
				ref:  ref,
				kind: types.BranchLocal,
				head: name == headName,
			})
		case name.IsRemote() && !localOnly:
			found = append(found, &branchRef{repo: r.repo, ref: ref, kind: types.BranchRemote})
		}
		return nil
	})
	if err != nil {
		return nil, types.RepositoryError("list references", err)
	}

	slices.SortFunc(found, func(a, b *branchRef) int {
		if a.kind != b.kind {
			return int(a.kind) - int(b.kind)
		}
		return strings.Compare(a.ref.Name().String(), b.ref.Name().String())
	})

	refs := make([]types.BranchRef, 0, len(found))
	for _, b := range found {
		refs = append(refs, b)
	}
	return refs, nil
}

// DeleteBranch removes refs/heads/<name>, its reflog and its branch config
// section. A branch checked out in any worktree is refused.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	op := "delete branch " + name
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Storer.Reference(refName); err != nil {
		return types.RepositoryError(op, err)
	}

	checkedOut, err := r.checkedOut()
	if err != nil {
		return types.RepositoryError(op, err)
	}
	if where, ok := checkedOut[refName]; ok {
		return types.RepositoryError(op, fmt.Errorf("branch %q is checked out in %s", name, where))
	}

	if err := r.repo.Storer.RemoveReference(refName); err != nil {
		return types.RepositoryError(op, err)
	}
	if err := r.removeLogs(refName); err != nil {
		return types.RepositoryError(op, err)
	}
	if err := r.repo.DeleteBranch(name); err != nil && !errors.Is(err, git.ErrBranchNotFound) {
		return types.RepositoryError("delete branch config "+name, err)
	}
	return nil
}

// dotGit returns the .git filesystem of an on-disk repository. In-memory
// storage has no worktrees or reflogs, so ok is false there.
func (r *Repository) dotGit() (fs billy.Filesystem, ok bool) {
	st, ok := r.repo.Storer.(*filesystem.Storage)
	if !ok {
		return nil, false
	}
	return st.Filesystem(), true
}

// checkedOut maps each branch that is HEAD of a worktree to a description
// of where it is checked out: this worktree, the main worktree and every
// linked worktree.
func (r *Repository) checkedOut() (map[plumbing.ReferenceName]string, error) {
	out := make(map[plumbing.ReferenceName]string)
	if head, err := r.repo.Storer.Reference(plumbing.HEAD); err == nil && head.Type() == plumbing.SymbolicReference {
		out[head.Target()] = "the current worktree"
	}

	fs, ok := r.dotGit()
	if !ok {
		return out, nil
	}

	// From a linked worktree, the main worktree's HEAD sits in the common dir.
	commonDir, err := util.ReadFile(fs, "commondir")
	switch {
	case err == nil:
		dir := strings.TrimSpace(string(commonDir))
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(fs.Root(), dir)
		}
		if err := readHead(out, osfs.New(dir), "HEAD", filepath.Dir(dir)); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	entries, err := fs.ReadDir("worktrees")
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		where := entry.Name()
		if gitdir, err := util.ReadFile(fs, fs.Join("worktrees", entry.Name(), "gitdir")); err == nil {
			where = filepath.Dir(strings.TrimSpace(string(gitdir)))
		}
		if err := readHead(out, fs, fs.Join("worktrees", entry.Name(), "HEAD"), where); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readHead records the branch a HEAD file points at. Missing files and
// detached heads are ignored.
func readHead(out map[plumbing.ReferenceName]string, fs billy.Basic, path, where string) error {
	content, err := util.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	ref := plumbing.NewReferenceFromStrings(plumbing.HEAD.String(), strings.TrimSpace(string(content)))
	if ref.Type() == plumbing.SymbolicReference && ref.Target().IsBranch() {
		if _, seen := out[ref.Target()]; !seen {
			out[ref.Target()] = where
		}
	}
	return nil
}

// removeLogs deletes the reflog of a removed ref and prunes the directories
// the ref and its log leave empty, so a later branch may reuse the prefix
// as a name.
func (r *Repository) removeLogs(refName plumbing.ReferenceName) error {
	fs, ok := r.dotGit()
	if !ok {
		return nil
	}
	refPath := filepath.FromSlash(refName.String())
	logPath := fs.Join("logs", refPath)
	if err := fs.Remove(logPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	headsDir := filepath.FromSlash(plumbing.NewBranchReferenceName("").String())
	pruneEmptyDirs(fs, filepath.Dir(logPath), fs.Join("logs", headsDir))
	pruneEmptyDirs(fs, filepath.Dir(refPath), filepath.Clean(headsDir))
	return nil
}

// pruneEmptyDirs removes dir and its parents while they are empty, stopping
// before stop.
func pruneEmptyDirs(fs billy.Filesystem, dir, stop string) {
	for strings.HasPrefix(dir, stop+string(filepath.Separator)) {
		entries, err := fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := fs.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

type branchRef struct {
	repo *git.Repository
	ref  *plumbing.Reference
	kind types.BranchType
	head bool
}

func (b *branchRef) Name() string           { return b.ref.Name().Short() }
func (b *branchRef) Type() types.BranchType { return b.kind }
func (b *branchRef) IsHead() bool           { return b.head }

// Commit peels the reference (following symbolic refs such as origin/HEAD)
// to its tip commit.
func (b *branchRef) Commit() (types.Commit, error) {
	resolved, err := storer.ResolveReference(b.repo.Storer, b.ref.Name())
	if err != nil {
		return types.Commit{}, types.RepositoryError("resolve "+b.Name(), err)
	}
	c, err := b.repo.CommitObject(resolved.Hash())
	if err != nil {
		return types.Commit{}, types.RepositoryError("read commit of "+b.Name(), err)
	}
	_, offset := c.Committer.When.Zone()
	return types.Commit{
		ID:            c.Hash.String(),
		Seconds:       c.Committer.When.Unix(),
		OffsetMinutes: offset / 60,
		Author:        c.Author.Name,
		Summary:       Summary(c.Message),
	}, nil
}

// Summary returns the first paragraph of a commit message on one line.
func Summary(message string) string {
	message = strings.ReplaceAll(message, "\r\n", "\n")
	message = strings.TrimLeft(message, " \t\n")
	paragraph, _, _ := strings.Cut(message, "\n\n")
	return strings.TrimSpace(strings.ReplaceAll(paragraph, "\n", " "))
}
