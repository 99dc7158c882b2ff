package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schoolrail/schoolrail-cli/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline end to end",
	Long:  "Scrapes both source pages, geocodes, applies the reference join, filters stations by proximity, and renders the artifacts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Pipeline.Run(ctx)
		if run != nil {
			printRunSummary(run)
			fmt.Fprint(os.Stdout, env.Pipeline.Diagnostics().Summary())
		}
		return err
	},
}

func printRunSummary(run *model.Run) {
	fmt.Fprintf(os.Stdout, "run %s: %s (stage %s)\n", run.ID, run.Status, run.Stage)
	if run.Summary == nil {
		return
	}
	s := run.Summary
	fmt.Fprintf(os.Stdout, "  schools: %d  stations: %d  geocoded: %d\n", s.Schools, s.Stations, s.Geocoded)
	fmt.Fprintf(os.Stdout, "  stations within %.1f km of a school: %d\n", s.RadiusKm, s.StationsKept)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
