package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/geoassist/internal/model"
)

var placeFlags struct {
	lat, lon float64
	zoom     int
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [place]",
	Short: "Resolve a typed place or a coordinate to a labelled location",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := placeQuery(cmd, args)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		place, err := env.Resolver.Resolve(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), place)
	},
}

// placeQuery builds a query from positional text or from --lat/--lon. Both
// coordinates must be given together.
func placeQuery(cmd *cobra.Command, args []string) (model.PlaceQuery, error) {
	q := model.PlaceQuery{
		Text: strings.TrimSpace(strings.Join(args, " ")),
		Zoom: placeFlags.zoom,
	}
	latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
	switch {
	case latSet && lonSet:
		lat, lon := placeFlags.lat, placeFlags.lon
		q.Lat, q.Lon = &lat, &lon
	case latSet || lonSet:
		return q, &model.InvalidInputError{Field: "coordinates", Reason: "--lat and --lon must be given together"}
	case q.Text == "":
		return q, &model.InvalidInputError{Field: "query", Reason: "pass a place name or --lat/--lon"}
	}
	return q, nil
}

func addPlaceFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&placeFlags.lat, "lat", 0, "latitude of a map point")
	cmd.Flags().Float64Var(&placeFlags.lon, "lon", 0, "longitude of a map point")
	cmd.Flags().IntVar(&placeFlags.zoom, "zoom", 0, "map zoom (1-18) used as the precision hint")
}

func init() {
	addPlaceFlags(resolveCmd)
	rootCmd.AddCommand(resolveCmd)
}
