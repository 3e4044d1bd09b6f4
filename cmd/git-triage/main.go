package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bral/git-triage/internal/collect"
	"github.com/bral/git-triage/internal/config"
	"github.com/bral/git-triage/internal/gitcmd"
	"github.com/bral/git-triage/internal/repo"
	"github.com/bral/git-triage/internal/terminal"
	"github.com/bral/git-triage/internal/triage"
)

const version = "0.1.0"

// Global config used by the command logic.
var appConfig config.Config

// repository is what the triage loop needs from a backend.
type repository interface {
	collect.Lister
	triage.Deleter
}

var rootCmd = &cobra.Command{
	Use:     "git-triage",
	Version: version,
	Short:   "git-triage walks through your branches one at a time so you can keep or delete them",
	Long: `git-triage lists the local and remote branches of the repository in the
current directory, oldest commit first, and asks for each one whether to
keep it, delete it or stop. Well-known trunk branches and the current
branch are never offered for deletion, and remote branches are only shown.
Every deletion prints the command that restores the branch.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogging(debug)

		configPath, _ := cmd.Flags().GetString("config")
		slog.Debug("loading configuration", slog.String("path", configPath))
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := applyFlagOverrides(cmd, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		appConfig = cfg
		slog.Debug("configuration ready",
			slog.String("backend", cfg.Backend),
			slog.String("filter", cfg.Filter),
			slog.Bool("local_only", cfg.LocalOnly),
			slog.Bool("dry_run", cfg.DryRun))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), appConfig)
	},
}

// setupLogging installs the default logger on stderr. Lines are CRLF
// terminated so they stay readable while stdin is in raw mode.
func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(terminal.CRLFWriter{W: os.Stderr}, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("filter") {
		if cfg.Filter, err = flags.GetString("filter"); err != nil {
			return err
		}
	}
	if flags.Changed("local-only") {
		if cfg.LocalOnly, err = flags.GetBool("local-only"); err != nil {
			return err
		}
	}
	if flags.Changed("backend") {
		if cfg.Backend, err = flags.GetString("backend"); err != nil {
			return err
		}
	}
	if flags.Changed("color") {
		if cfg.Color, err = flags.GetString("color"); err != nil {
			return err
		}
	}
	if flags.Changed("dry-run") {
		if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
			return err
		}
	}
	return nil
}

func openRepository(ctx context.Context, backend string) (repository, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	switch backend {
	case config.BackendGit:
		return gitcmd.Open(ctx, dir)
	case config.BackendGoGit:
		return repo.Open(dir)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	mode, err := terminal.ParseColorMode(cfg.Color)
	if err != nil {
		return err
	}

	r, err := openRepository(ctx, cfg.Backend)
	if err != nil {
		return err
	}

	protected := collect.ProtectedBranches()
	branches, err := collect.Collect(ctx, r, protected, cfg.Filter, cfg.LocalOnly)
	if err != nil {
		return err
	}
	slog.Debug("collected branches", slog.Int("count", len(branches)))

	presenter := terminal.NewPresenter(os.Stdin, os.Stdout, mode)
	var res triage.Result
	err = terminal.WithRawMode(os.Stdin, func() (err error) {
		defer func() {
			if resetErr := presenter.ResetColor(); err == nil {
				err = resetErr
			}
			if flushErr := presenter.Flush(); err == nil {
				err = flushErr
			}
		}()
		res, err = triage.New(presenter, r, cfg.DryRun).Run(ctx, branches)
		return err
	})
	slog.Debug("triage finished",
		slog.Int("kept", res.Kept),
		slog.Int("deleted", res.Deleted),
		slog.Int("refused", res.Refused),
		slog.Int("skipped", res.Skipped),
		slog.Bool("quit", res.Quit))
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	addFlags(rootCmd)
}

func addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug logging on stderr.")
	flags.Bool("dry-run", false, "Walk through the branches but do not delete anything.")
	flags.StringP("config", "c", "", "Path to a TOML configuration file (none is read by default).")
	flags.StringP("filter", "f", "", "Only show branches whose name contains this text (case-insensitive).")
	flags.BoolP("local-only", "l", false, "Skip remote-tracking branches.")
	flags.String("backend", config.BackendGoGit, "Repository backend: go-git or git.")
	flags.String("color", string(terminal.ColorAuto), "Colorize output: auto, always or never.")
}
