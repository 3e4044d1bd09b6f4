// Package triage walks the user through a keep/delete/quit decision for
// each collected branch.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bral/git-triage/internal/collect"
	"github.com/bral/git-triage/internal/terminal"
	"github.com/bral/git-triage/internal/types"
)

// Deleter removes a local branch reference.
type Deleter interface {
	DeleteBranch(ctx context.Context, name string) error
}

// state is the position of the per-branch decision state machine.
type state int

const (
	// statePrompting renders the branch details.
	statePrompting state = iota
	// stateAwaitInput shows the action prompt and blocks for one byte.
	stateAwaitInput
	// stateResolved holds a final action.
	stateResolved
)

const (
	helpKey     = '?'
	promptText  = "(k/d/q/?) > "
	timeLayout  = "2006-01-02 15:04:05"
	eofNotice   = "No more input, quitting."
	headNotice  = "Ignoring current branch: '%s'"
	emptyNotice = "No branches found. Ignoring: [%s]"
)

var helpLines = []string{
	"select from the following:",
	"\tk - Keep the branch",
	"\td - Delete the branch",
	"\tq - Quit",
	"\t? - Help",
}

var refusalLines = []string{
	"\tI don't want to be responsible for deleting remote branches.",
	"\tgithub.com has a great interface for such endeavours.",
}

// Result tallies what happened during a run.
type Result struct {
	Kept    int
	Deleted int
	Refused int
	Skipped int // current branch
	Quit    bool
}

// Engine drives the triage loop over a Presenter.
type Engine struct {
	term   *terminal.Presenter
	repo   Deleter
	dryRun bool
	logger *slog.Logger
}

// New creates an Engine. With dryRun set, deletions are only announced.
func New(term *terminal.Presenter, repo Deleter, dryRun bool) *Engine {
	return &Engine{
		term:   term,
		repo:   repo,
		dryRun: dryRun,
		logger: slog.Default(),
	}
}

// Run announces the list and triages each branch in order. Quit stops the
// loop and leaves the remaining branches untouched. Every error is fatal.
func (e *Engine) Run(ctx context.Context, branches []types.Branch) (Result, error) {
	var res Result
	if err := e.announce(branches); err != nil {
		return res, err
	}

	for _, branch := range branches {
		if branch.IsHead {
			if err := e.term.SetColor(terminal.ColorYellow); err != nil {
				return res, err
			}
			if err := e.term.WriteLinef(headNotice, branch.Name); err != nil {
				return res, err
			}
			res.Skipped++
			continue
		}

		action, err := e.Decide(branch)
		if err != nil {
			return res, err
		}
		e.logger.Debug("branch resolved",
			slog.String("branch", branch.Name),
			slog.String("action", action.String()))

		switch action {
		case types.ActionQuit:
			res.Quit = true
			return res, e.term.Flush()
		case types.ActionKeep:
			res.Kept++
		case types.ActionDelete:
			deleted, err := e.delete(ctx, branch)
			if err != nil {
				return res, err
			}
			if deleted {
				res.Deleted++
			} else {
				res.Refused++
			}
		}
	}
	return res, e.term.Flush()
}

func (e *Engine) announce(branches []types.Branch) error {
	if err := e.term.SetColor(terminal.ColorYellow); err != nil {
		return err
	}
	if len(branches) == 0 {
		names := strings.Join(collect.ProtectedBranchNames(), ", ")
		return e.term.WriteLinef(emptyNotice, names)
	}
	local, remote := collect.Counts(branches)
	return e.term.WriteLinef("%d Total Branches Found (%d Local and %d Remote)",
		len(branches), local, remote)
}

// Decide renders branch and reads keystrokes until one maps to an action.
// The help key reprints the menu and asks again. End of input resolves to
// Quit so a closed stdin cannot spin the prompt.
func (e *Engine) Decide(branch types.Branch) (types.Action, error) {
	var action types.Action
	st := statePrompting
	for st != stateResolved {
		switch st {
		case statePrompting:
			if err := e.renderBranch(branch); err != nil {
				return 0, err
			}
			st = stateAwaitInput

		case stateAwaitInput:
			if err := e.term.SetColor(terminal.ColorBlue); err != nil {
				return 0, err
			}
			if err := e.term.Write(promptText); err != nil {
				return 0, err
			}
			if err := e.term.Flush(); err != nil {
				return 0, err
			}

			b, ok, err := e.term.ReadByte()
			if err != nil {
				return 0, err
			}
			if !ok {
				if err := e.term.WriteLine(""); err != nil {
					return 0, err
				}
				if err := e.notice(eofNotice); err != nil {
					return 0, err
				}
				action, st = types.ActionQuit, stateResolved
				continue
			}

			c := rune(b)
			if err := e.term.WriteLine(string(c)); err != nil {
				return 0, err
			}
			if err := e.term.Flush(); err != nil {
				return 0, err
			}
			if c == helpKey {
				if err := e.printHelp(); err != nil {
					return 0, err
				}
				continue
			}
			action, err = types.ActionFromKey(c)
			if err != nil {
				return 0, err
			}
			st = stateResolved
		}
	}
	return action, nil
}

func (e *Engine) renderBranch(branch types.Branch) error {
	color := terminal.ColorGreen
	if branch.Type == types.BranchRemote {
		color = terminal.ColorCyan
	}
	if err := e.term.SetColor(color); err != nil {
		return err
	}
	lines := []string{
		"",
		fmt.Sprintf("'%s' (%s)", branch.Type, branch.Name),
		"\tlast commit as " + branch.CommitTime.Format(timeLayout),
		"\tlast commit id: " + branch.ShortID(),
		"\tcommit author: " + branch.CommitAuthor,
		"\tcommit summary: " + branch.CommitSummary,
	}
	for _, line := range lines {
		if err := e.term.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) printHelp() error {
	for _, line := range helpLines {
		if err := e.term.WriteLine(line); err != nil {
			return err
		}
	}
	return e.term.Flush()
}

func (e *Engine) notice(text string) error {
	if err := e.term.SetColor(terminal.ColorYellow); err != nil {
		return err
	}
	return e.term.WriteLine(text)
}

// delete removes a local branch and prints how to restore it. Remote
// branches are refused without touching the repository. The returned bool
// reports whether a local branch was (or in dry-run mode would be) deleted.
func (e *Engine) delete(ctx context.Context, branch types.Branch) (bool, error) {
	switch branch.Type {
	case types.BranchLocal:
		if e.dryRun {
			return true, e.notice(fmt.Sprintf("[dry run] would delete '%s'", branch.Name))
		}
		if err := e.repo.DeleteBranch(ctx, branch.Name); err != nil {
			return false, err
		}
		e.logger.Debug("deleted branch", slog.String("branch", branch.Name), slog.String("id", branch.ID))

		if err := e.term.SetColor(terminal.ColorRed); err != nil {
			return false, err
		}
		if err := e.term.WriteLinef("'%s' was deleted.", branch.Name); err != nil {
			return false, err
		}
		if err := e.term.SetColor(terminal.ColorWhite); err != nil {
			return false, err
		}
		for _, line := range []string{"to undo, run:", "\t" + RestoreCommand(branch), ""} {
			if err := e.term.WriteLine(line); err != nil {
				return false, err
			}
		}
		return true, nil

	case types.BranchRemote:
		if err := e.term.SetColor(terminal.ColorRed); err != nil {
			return false, err
		}
		for _, line := range refusalLines {
			if err := e.term.WriteLine(line); err != nil {
				return false, err
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown branch type %d", int(branch.Type))
	}
}

// RestoreCommand is the command that recreates branch at its old tip.
func RestoreCommand(branch types.Branch) string {
	return fmt.Sprintf("git branch %s %s", branch.Name, branch.ID)
}
