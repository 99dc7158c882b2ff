package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/schoolrail/schoolrail-cli/internal/model"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <schools|stations>",
	Short: "Scrape a source page and store its points",
	Long:  "Fetches the configured page, extracts the largest table, and stores the rows as points without coordinates.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		category, err := model.ParseCategory(args[0])
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var points []model.GeoPoint
		switch category {
		case model.CategorySchool:
			points, err = env.Pipeline.ScrapeSchools(ctx)
		case model.CategoryStation:
			points, err = env.Pipeline.ScrapeStations(ctx)
		}
		if err != nil {
			return err
		}

		if err := env.Store.SavePoints(ctx, points); err != nil {
			return eris.Wrap(err, "scrape: save points")
		}

		fmt.Fprintf(os.Stdout, "scraped %d %s points\n", len(points), category)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
