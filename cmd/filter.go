package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/store"
)

var filterRadiusKm float64

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List stations within the radius of any school",
	Long:  "Runs the proximity filter over stored points and prints the stations kept, plus the points excluded for missing coordinates.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if filterRadiusKm > 0 {
			cfg.Filter.RadiusKm = filterRadiusKm
		}

		schools, err := env.Store.ListPoints(ctx, store.PointFilter{Category: model.CategorySchool})
		if err != nil {
			return eris.Wrap(err, "filter: list schools")
		}
		stations, err := env.Store.ListPoints(ctx, store.PointFilter{Category: model.CategoryStation})
		if err != nil {
			return eris.Wrap(err, "filter: list stations")
		}

		kept, err := env.Pipeline.FilterStations(schools, stations)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%d of %d stations within %.1f km of a school\n",
			len(kept), len(stations), cfg.Filter.RadiusKm)
		for _, s := range kept {
			fmt.Fprintf(os.Stdout, "  - %s\n", s.Popup())
		}

		fmt.Fprint(os.Stdout, env.Pipeline.Diagnostics().Summary())
		return nil
	},
}

func init() {
	filterCmd.Flags().Float64Var(&filterRadiusKm, "radius-km", 0, "proximity radius in km (default from config)")
	rootCmd.AddCommand(filterCmd)
}
