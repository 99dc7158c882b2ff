package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/report"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored point counts and run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		snap, err := report.NewCollector(st).Collect(ctx, statusLimit)
		if err != nil {
			return err
		}
		formatSnapshot(os.Stdout, snap)

		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return eris.Wrap(err, "status: list runs")
		}
		if len(runs) > 0 {
			fmt.Fprintln(os.Stdout)
			formatRunsList(os.Stdout, runs)
		}
		return nil
	},
}

func formatSnapshot(out io.Writer, snap *report.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Schools:\t%d (%d geocoded)\n", snap.SchoolsTotal, snap.SchoolsGeocoded)
	_, _ = fmt.Fprintf(w, "Stations:\t%d (%d geocoded)\n", snap.StationsTotal, snap.StationsGeocoded)
	_, _ = fmt.Fprintf(w, "Runs:\t%d total, %d complete, %d failed\n", snap.RunsTotal, snap.RunsComplete, snap.RunsFailed)
	_ = w.Flush()
}

// formatRunsList writes a tabular run history to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTAGE\tKEPT\tMISSES\tCREATED\tDURATION")

	for _, r := range runs {
		kept, misses := "-", "-"
		if r.Summary != nil {
			kept = fmt.Sprintf("%d", r.Summary.StationsKept)
			misses = fmt.Sprintf("%d", r.Summary.GeocodeMisses)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.Stage,
			kept,
			misses,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String(),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 50, "max number of runs to display")
	rootCmd.AddCommand(statusCmd)
}
