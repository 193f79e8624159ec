package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/vimcat/internal/catalog"
)

func stepsCmd(g *globalFlags) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List the catalog steps in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.CatalogPath()
			}
			def, err := catalog.Load(path)
			if err != nil {
				return err
			}
			skipped := map[string]bool{}
			for _, name := range cfg.Skip() {
				skipped[name] = true
			}
			out := cmd.OutOrStdout()
			for i, s := range def.Steps {
				line := fmt.Sprintf("%2d  %s", i+1, s.Name)
				if s.Description != "" {
					line += "  · " + s.Description
				}
				if skipped[s.Name] {
					line += "  (skipped)"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "catalog", "", "Path to a custom step catalog")
	return cmd
}
