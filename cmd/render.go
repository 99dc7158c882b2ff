package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/schoolrail/schoolrail-cli/internal/geo"
	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/store"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the map and GeoJSON from stored points",
	Long:  "Filters stored stations by proximity and writes map.html and points.geojson to the output directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		schools, err := env.Store.ListPoints(ctx, store.PointFilter{Category: model.CategorySchool})
		if err != nil {
			return eris.Wrap(err, "render: list schools")
		}
		stations, err := env.Store.ListPoints(ctx, store.PointFilter{Category: model.CategoryStation})
		if err != nil {
			return eris.Wrap(err, "render: list stations")
		}

		kept, err := env.Pipeline.FilterStations(schools, stations)
		if err != nil {
			return err
		}

		locatedSchools, _ := geo.SplitUngeocoded(schools)
		points := append(append([]model.GeoPoint{}, locatedSchools...), kept...)
		if err := env.Pipeline.RenderArtifacts(points); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "rendered %d points to %s\n", len(points), cfg.Render.OutputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
