package gitcmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bral/git-triage/internal/types"
)

const (
	hash1 = "1111111111111111111111111111111111111111"
	hash2 = "2222222222222222222222222222222222222222"
	hash3 = "3333333333333333333333333333333333333333"
)

func record(fields ...string) string {
	return strings.Join(fields, fieldSeparator)
}

func forEachRefArgs(localOnly bool) []string {
	args := []string{"-C", "/repo", "for-each-ref", "--format=" + branchInfoFormat, "refs/heads/"}
	if !localOnly {
		args = append(args, "refs/remotes/")
	}
	return args
}

type refView struct {
	Name   string
	Type   types.BranchType
	Head   bool
	Commit types.Commit
}

func view(t *testing.T, refs []types.BranchRef) []refView {
	t.Helper()
	out := make([]refView, 0, len(refs))
	for _, r := range refs {
		c, err := r.Commit()
		if err != nil {
			t.Fatalf("Commit() for %s error = %v", r.Name(), err)
		}
		out = append(out, refView{Name: r.Name(), Type: r.Type(), Head: r.IsHead(), Commit: c})
	}
	return out
}

func TestListBranches(t *testing.T) {
	ctx := context.Background()

	sampleOutput := strings.Join([]string{
		record("refs/heads/feature/a", hash1, "1700000000 +0200", "Alice", "*", "Add feature a"),
		record("refs/heads/main", hash2, "1690000000 -0430", "Bob", " ", "Initial commit"),
		record("refs/remotes/origin/HEAD", hash2, "1690000000 -0430", "Bob", " ", "Initial commit"),
		record("refs/remotes/origin/fix", hash3, "1600000000 +0000", "", " ", ""),
	}, "\n")

	t.Run("Successful Parsing", func(t *testing.T) {
		teardown := setupExpectations(t, []commandExpectation{
			{args: forEachRefArgs(false), output: sampleOutput},
		})
		defer teardown()

		refs, err := ListBranches(ctx, "/repo", false)
		if err != nil {
			t.Fatalf("ListBranches() error = %v", err)
		}
		want := []refView{
			{Name: "feature/a", Type: types.BranchLocal, Head: true, Commit: types.Commit{
				ID: hash1, Seconds: 1700000000, OffsetMinutes: 120, Author: "Alice", Summary: "Add feature a",
			}},
			{Name: "main", Type: types.BranchLocal, Commit: types.Commit{
				ID: hash2, Seconds: 1690000000, OffsetMinutes: -270, Author: "Bob", Summary: "Initial commit",
			}},
			{Name: "origin/HEAD", Type: types.BranchRemote, Commit: types.Commit{
				ID: hash2, Seconds: 1690000000, OffsetMinutes: -270, Author: "Bob", Summary: "Initial commit",
			}},
			{Name: "origin/fix", Type: types.BranchRemote, Commit: types.Commit{
				ID: hash3, Seconds: 1600000000, OffsetMinutes: 0,
			}},
		}
		if diff := cmp.Diff(want, view(t, refs)); diff != "" {
			t.Errorf("ListBranches() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Local Only", func(t *testing.T) {
		teardown := setupExpectations(t, []commandExpectation{
			{args: forEachRefArgs(true), output: record("refs/heads/x", hash1, "1 +0000", "A", " ", "s")},
		})
		defer teardown()

		refs, err := ListBranches(ctx, "/repo", true)
		if err != nil {
			t.Fatalf("ListBranches() error = %v", err)
		}
		if len(refs) != 1 || refs[0].Name() != "x" {
			t.Errorf("unexpected refs %+v", view(t, refs))
		}
	})

	t.Run("Empty Output", func(t *testing.T) {
		teardown := setupExpectations(t, []commandExpectation{
			{args: forEachRefArgs(false), output: ""},
		})
		defer teardown()

		refs, err := ListBranches(ctx, "/repo", false)
		if err != nil {
			t.Fatalf("ListBranches() error = %v", err)
		}
		if refs == nil || len(refs) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", refs)
		}
	})

	t.Run("Git Error", func(t *testing.T) {
		teardown := setupExpectations(t, []commandExpectation{
			{args: forEachRefArgs(false), err: errors.New("simulated git error")},
		})
		defer teardown()

		if _, err := ListBranches(ctx, "/repo", false); !errors.Is(err, types.ErrRepository) {
			t.Fatalf("ListBranches() error = %v, want ErrRepository", err)
		}
	})

	t.Run("Malformed Record Fails", func(t *testing.T) {
		output := record("refs/heads/ok", hash1, "1 +0000", "A", " ", "s") + "\n" + "refs/heads/broken\x00only-two"
		teardown := setupExpectations(t, []commandExpectation{
			{args: forEachRefArgs(false), output: output},
		})
		defer teardown()

		refs, err := ListBranches(ctx, "/repo", false)
		if !errors.Is(err, types.ErrRepository) {
			t.Fatalf("ListBranches() error = %v, want ErrRepository", err)
		}
		if refs != nil {
			t.Errorf("expected no partial result, got %d refs", len(refs))
		}
	})

	t.Run("Non Commit Ref Fails On Resolve", func(t *testing.T) {
		teardown := setupExpectations(t, []commandExpectation{
			{args: forEachRefArgs(false), output: record("refs/heads/tree", hash1, "", "", " ", "")},
		})
		defer teardown()

		refs, err := ListBranches(ctx, "/repo", false)
		if err != nil {
			t.Fatalf("ListBranches() error = %v", err)
		}
		if _, err := refs[0].Commit(); !errors.Is(err, types.ErrRepository) {
			t.Errorf("Commit() error = %v, want ErrRepository", err)
		}
	})
}

func TestParseRawDate(t *testing.T) {
	testCases := []struct {
		raw     string
		seconds int64
		offset  int
		wantErr bool
	}{
		{raw: "1700000000 +0200", seconds: 1700000000, offset: 120},
		{raw: "0 -0000", seconds: 0, offset: 0},
		{raw: "1600000000 -0930", seconds: 1600000000, offset: -570},
		{raw: "1600000000 +0545", seconds: 1600000000, offset: 345},
		{raw: "1600000000", wantErr: true},
		{raw: "abc +0000", wantErr: true},
		{raw: "1 0200", wantErr: true},
		{raw: "1 +02x0", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			seconds, offset, err := parseRawDate(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseRawDate(%q) expected error", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRawDate(%q) error = %v", tc.raw, err)
			}
			if seconds != tc.seconds || offset != tc.offset {
				t.Errorf("parseRawDate(%q) = (%d, %d), want (%d, %d)", tc.raw, seconds, offset, tc.seconds, tc.offset)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Inside Repository", func(t *testing.T) {
		teardown := setupExpectations(t, []commandExpectation{
			{args: []string{"-C", "/repo", "rev-parse", "--git-dir"}, output: ".git"},
		})
		defer teardown()

		r, err := Open(ctx, "/repo")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if r.dir != "/repo" {
			t.Errorf("dir = %q, want /repo", r.dir)
		}
	})

	t.Run("Outside Repository", func(t *testing.T) {
		teardown := setupExpectations(t, []commandExpectation{
			{args: []string{"-C", "/tmp", "rev-parse", "--git-dir"}, err: errors.New("fatal: not a git repository")},
		})
		defer teardown()

		if _, err := Open(ctx, "/tmp"); !errors.Is(err, types.ErrRepository) {
			t.Fatalf("Open() error = %v, want ErrRepository", err)
		}
	})

	t.Run("Git Not Installed", func(t *testing.T) {
		notFound := fmt.Errorf("git command failed: %w", &exec.Error{Name: "git", Err: exec.ErrNotFound})
		teardown := setupExpectations(t, []commandExpectation{
			{args: []string{"-C", "/repo", "rev-parse", "--git-dir"}, err: notFound},
		})
		defer teardown()

		_, err := Open(ctx, "/repo")
		if !errors.Is(err, types.ErrRepository) || !errors.Is(err, exec.ErrNotFound) {
			t.Fatalf("Open() error = %v, want ErrRepository wrapping exec.ErrNotFound", err)
		}
		if strings.Contains(err.Error(), "not inside a git repository") {
			t.Errorf("missing git binary reported as outside a repository: %v", err)
		}
	})
}
