// Package types holds the data model shared by the triage packages.
package types

import (
	"errors"
	"fmt"
	"time"
)

// BranchType distinguishes branches owned by the working repository from
// remote-tracking branches.
type BranchType int

const (
	// BranchLocal is a branch under refs/heads.
	BranchLocal BranchType = iota
	// BranchRemote is a remote-tracking branch under refs/remotes.
	BranchRemote
)

// String returns "local" or "remote".
func (t BranchType) String() string {
	switch t {
	case BranchLocal:
		return "local"
	case BranchRemote:
		return "remote"
	default:
		panic(fmt.Sprintf("unknown branch type %d", int(t)))
	}
}

const (
	// NoAuthor is shown when the tip commit carries no author name.
	NoAuthor = "no author"
	// NoSummary is shown when the tip commit carries no summary line.
	NoSummary = "no summary"
)

// Commit holds the tip commit metadata a repository backend reports.
type Commit struct {
	ID            string // Full hex object id
	Seconds       int64  // Committer time, seconds since epoch
	OffsetMinutes int    // Committer UTC offset
	Author        string // Empty when unknown
	Summary       string // Empty when absent
}

// BranchRef is a raw branch handle produced by a repository backend.
// Commit resolution is deferred so that a broken ref surfaces as an error
// for that branch rather than failing enumeration.
type BranchRef interface {
	Name() string
	Type() BranchType
	IsHead() bool
	Commit() (Commit, error)
}

// Branch is the normalized record presented during triage.
type Branch struct {
	ID            string
	Name          string
	CommitAuthor  string
	CommitSummary string
	Type          BranchType
	// CommitTime is the committer's wall clock, not an instant: the UTC
	// offset has been folded into the value and the location is UTC.
	CommitTime time.Time
	IsHead     bool
}

// ShortID returns the ten hex characters following the first one.
func (b Branch) ShortID() string {
	if len(b.ID) < 11 {
		if len(b.ID) <= 1 {
			return ""
		}
		return b.ID[1:]
	}
	return b.ID[1:11]
}

// Action is the decision taken for a single branch.
type Action int

const (
	// ActionKeep leaves the branch untouched.
	ActionKeep Action = iota
	// ActionDelete removes a local branch.
	ActionDelete
	// ActionQuit stops the triage loop.
	ActionQuit
)

// String returns the lower-case action name.
func (a Action) String() string {
	switch a {
	case ActionKeep:
		return "keep"
	case ActionDelete:
		return "delete"
	case ActionQuit:
		return "quit"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ActionFromKey maps a single keystroke to an action.
func ActionFromKey(c rune) (Action, error) {
	switch c {
	case 'k':
		return ActionKeep, nil
	case 'd':
		return ActionDelete, nil
	case 'q':
		return ActionQuit, nil
	default:
		return 0, &InvalidInputError{Input: c}
	}
}

var (
	// ErrInvalidEncoding is returned when a branch name is not valid UTF-8.
	ErrInvalidEncoding = errors.New("branch name is not valid UTF-8")
	// ErrRepository wraps every failure reported by a repository backend.
	ErrRepository = errors.New("repository error")
	// ErrTerminal wraps terminal read and write failures.
	ErrTerminal = errors.New("terminal error")
)

// InvalidInputError reports an unrecognized keystroke.
type InvalidInputError struct {
	Input rune
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input, don't know '%c'", e.Input)
}

// RepositoryError tags err as a repository failure during op.
func RepositoryError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRepository, op, err)
}

// TerminalError tags err as a terminal failure during op.
func TerminalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTerminal, op, err)
}
