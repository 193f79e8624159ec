package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/vimcat/internal/report"
)

func statusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			rec, err := report.NewRepository(cfg.StateDir()).Load()
			out := cmd.OutOrStdout()
			if errors.Is(err, report.ErrNotFound) {
				fmt.Fprintln(out, "No run recorded yet. Run `vimcat install` first.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatRecord(rec))
			return nil
		},
	}
}

func formatRecord(rec report.Record) string {
	s := fmt.Sprintf("run:       %s\noutcome:   %s\nstarted:   %s\nduration:  %s\ncompleted: %d of %d\n",
		rec.RunID,
		rec.Outcome,
		rec.StartedAt.Local().Format(time.DateTime),
		rec.Duration().Round(time.Second),
		len(rec.Completed),
		len(rec.Steps),
	)
	if rec.Error != "" {
		s += fmt.Sprintf("stopped:   %s\n", rec.Error)
	}
	for _, f := range rec.Failures {
		s += fmt.Sprintf("failed:    step %d · %s: %s\n", f.Index, f.Step, f.Error)
	}
	for _, name := range rec.Skipped() {
		s += fmt.Sprintf("not run:   %s\n", name)
	}
	return s
}
