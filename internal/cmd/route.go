package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Compute a driving route between two points",
	RunE:  runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().String("from", "", "Start point as lat,lon (e.g. \"12.97,77.59\")")
	routeCmd.Flags().String("to", "", "End point as lat,lon")
	routeCmd.Flags().Bool("geojson", false, "Print the route geometry as GeoJSON")

	for _, bf := range []struct{ key, flag string }{
		{"route.from", "from"},
		{"route.to", "to"},
		{"route.geojson", "geojson"},
	} {
		if err := viper.BindPFlag(bf.key, routeCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runRoute(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	start, err := parseLatLon(viper.GetString("route.from"))
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	end, err := parseLatLon(viper.GetString("route.to"))
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	res, err := newOSRMClient().ComputeRoute(ctx, &start, &end)
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("no route between %s and %s", start, end)
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("route.geojson") {
		data, err := geojson.Marshal(geojson.FromRoute(res, geojson.Style{Color: render.ColorRoute, Weight: 4}))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	_, err = fmt.Fprintf(out, "%.2f km, %.0f min\n", res.DistanceKm, res.DurationMin)
	return err
}
