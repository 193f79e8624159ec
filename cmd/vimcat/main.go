// cmd/vimcat/main.go
//
// Entry point for the vimcat CLI. Running `vimcat` with no subcommand opens
// the interactive installer; `install --plain` runs the same steps with
// line-based output for scripts and CI.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/vimcat/internal/config"
	"github.com/kingrea/vimcat/internal/logging"
)

// errRunFailed signals a run that aborted or recorded failures. The summary
// has already been shown, so main only sets the exit code.
var errRunFailed = errors.New("run failed")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	debug bool
	home  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	install := installCmd(flags)

	root := &cobra.Command{
		Use:           "vimcat",
		Short:         "Provision a development workstation step by step",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          install.RunE,
	}
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flags.home, "home", "", "Home directory to provision (defaults to $HOME)")
	root.Flags().AddFlagSet(install.Flags())

	root.AddCommand(install)
	root.AddCommand(stepsCmd(flags))
	root.AddCommand(statusCmd(flags))
	return root
}

// loadConfig prepares the vimcat directory and reads config.yaml.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	home := strings.TrimSpace(g.home)
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
	}
	cfg, err := config.NewConfig(home)
	if err != nil {
		return nil, err
	}
	if err := config.InitDir(cfg.Dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLogger opens logs/vimcat.log and makes it the slog default.
func (g *globalFlags) openLogger(cfg *config.Config) (*logging.Logger, error) {
	level := cfg.LogLevel()
	if g.debug {
		level = logging.LevelDebug
	}
	logger, err := logging.New(cfg.LogsDir(), level)
	if err != nil {
		return nil, err
	}
	logger.Install()
	return logger, nil
}
