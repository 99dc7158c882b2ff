package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/schoolrail/schoolrail-cli/internal/store"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode stored points that lack coordinates",
	Long:  "Runs the provider cascade over every stored point without coordinates and reports the labels no provider matched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		points, err := env.Store.ListPoints(ctx, store.PointFilter{})
		if err != nil {
			return eris.Wrap(err, "geocode: list points")
		}
		if len(points) == 0 {
			fmt.Fprintln(os.Stderr, "No points stored. Run scrape first.")
			return nil
		}

		points, err = env.Pipeline.GeocodePoints(ctx, points)
		if err != nil {
			return err
		}
		if err := env.Store.SavePoints(ctx, points); err != nil {
			return eris.Wrap(err, "geocode: save points")
		}

		var geocoded int
		for _, p := range points {
			if p.HasCoords {
				geocoded++
			}
		}
		fmt.Fprintf(os.Stdout, "geocoded %d of %d points\n", geocoded, len(points))

		if misses := env.Pipeline.Diagnostics().GeocodeMisses(); len(misses) > 0 {
			fmt.Fprintf(os.Stdout, "unmatched labels (%d):\n", len(misses))
			for _, label := range misses {
				fmt.Fprintf(os.Stdout, "  - %s\n", label)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
