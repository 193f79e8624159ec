package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/vimcat/internal/install"
	"github.com/kingrea/vimcat/internal/logbook"
	"github.com/kingrea/vimcat/internal/provision"
	"github.com/kingrea/vimcat/internal/runner"
	"github.com/kingrea/vimcat/internal/tui"
)

type installFlags struct {
	plain           bool
	continueOnError bool
	delay           time.Duration
	catalog         string
	only            []string
}

func installCmd(g *globalFlags) *cobra.Command {
	var f installFlags
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Run the provisioning steps in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd, g, f)
		},
	}
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Print one line per step instead of the interactive view")
	cmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false, "Keep going after a failed step")
	cmd.Flags().DurationVar(&f.delay, "delay", runner.DefaultInterStepDelay, "Pause between steps")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "Path to a custom step catalog")
	cmd.Flags().StringArrayVar(&f.only, "only", nil, "Run only the named step (repeatable)")
	return cmd
}

func runInstall(cmd *cobra.Command, g *globalFlags, f installFlags) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, err := g.openLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	if f.catalog != "" {
		abs, err := filepath.Abs(f.catalog)
		if err != nil {
			return err
		}
		cfg.Settings.Catalog = abs
	}
	opts := install.OptionsFromConfig(cfg)
	if cmd.Flags().Changed("continue-on-error") {
		opts.ContinueOnError = f.continueOnError
	}
	if cmd.Flags().Changed("delay") {
		if f.delay < 0 {
			return fmt.Errorf("--delay must not be negative")
		}
		opts.InterStepDelay = f.delay
	}
	opts.Only = f.only

	book, err := logbook.New(install.JournalPath(cfg))
	if err != nil {
		return err
	}
	svc, err := install.FromConfig(cfg, opts, provision.Shell{},
		install.WithLogbook(book),
		install.WithObserver(logger),
	)
	if err != nil {
		return err
	}
	logger.Info("install requested", "steps", len(svc.Steps()), "plain", f.plain, "continue_on_error", opts.ContinueOnError)

	interactive := !f.plain && tui.Interactive()
	tui.ConfigureColor(interactive)
	if interactive {
		return runInteractive(svc, book)
	}
	return runPlain(cmd, svc)
}

func runInteractive(svc *install.Service, book *logbook.Logbook) error {
	app := tui.NewApp(svc, tui.WithLogbook(book), tui.WithAutoStart())
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	app.Wait()
	if !app.Finished() {
		return nil
	}
	fmt.Println(tui.RenderSummary(app.Result(), len(svc.Steps()), app.Err()))
	return exitStatus(app.Result(), app.Err())
}

func runPlain(cmd *cobra.Command, svc *install.Service) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	obs := tui.NewPlainObserver(out, len(svc.Steps()))
	result, err := svc.Run(ctx, runner.NewProgress(), obs)
	fmt.Fprintln(out, tui.RenderSummary(result, len(svc.Steps()), err))
	return exitStatus(result, err)
}

func exitStatus(result runner.Result, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil || result.Outcome() != runner.OutcomeCompleted {
		return errRunFailed
	}
	return nil
}
