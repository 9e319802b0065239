package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var areasCmd = &cobra.Command{
	Use:   "areas [parent-rel]",
	Short: "List the states of the country, or the districts of a state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAreas,
}

var placesCmd = &cobra.Command{
	Use:   "places <area-rel>",
	Short: "List the settlements inside an area",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaces,
}

var boundaryCmd = &cobra.Command{
	Use:   "boundary <area-rel>",
	Short: "Print the boundary of an area as GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoundary,
}

func init() {
	rootCmd.AddCommand(areasCmd, placesCmd, boundaryCmd)

	rootCmd.PersistentFlags().Duration("request-timeout", 2*time.Minute, "Overall timeout for one CLI query")
	if err := viper.BindPFlag("request_timeout", rootCmd.PersistentFlags().Lookup("request-timeout")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}

	placesCmd.Flags().String("level", string(selection.LevelCity), "Settlement level: city (cities and towns) or village")
	if err := viper.BindPFlag("places.level", placesCmd.Flags().Lookup("level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func queryContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, viper.GetDuration("request_timeout"))
}

func runAreas(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	client := newOverpassClient()

	var (
		areas []types.AdminArea
		err   error
	)
	if len(args) == 0 {
		areas, err = client.ListTopLevelAreas(ctx, viper.GetString("country"))
	} else {
		var parent int64
		parent, err = parseRelID(args[0])
		if err != nil {
			return err
		}
		areas, err = client.ListSubAreas(ctx, parent)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REL\tNAME\tBOUNDS")
	for _, a := range areas {
		bounds := "-"
		if a.Bounds != nil {
			bounds = a.Bounds.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.ID, a.Name, bounds)
	}
	return tw.Flush()
}

func runPlaces(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	parent, err := parseRelID(args[0])
	if err != nil {
		return err
	}
	info, err := selection.LookupLevel(selection.Level(viper.GetString("places.level")))
	if err != nil {
		return err
	}
	if !info.IsPointLevel() {
		return fmt.Errorf("level %q has no settlements; use city or village", info.Key)
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	places, err := newOverpassClient().ListSettlements(ctx, parent, info.Kinds)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tLAT\tLON")
	for _, p := range places {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.5f\t%.5f\n", p.ID, p.Kind, p.Name, p.Lat, p.Lon)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d settlements\n", len(places))
	return nil
}

func runBoundary(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	rel, err := parseRelID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	b, err := newOverpassClient().FetchBoundary(ctx, rel)
	if err != nil {
		return err
	}
	if !b.HasGeometry() {
		logger.Warn("area has no outer ring", "rel", rel)
	}

	data, err := geojson.Marshal(geojson.FromBoundary(b, geojson.Style{
		Color:       render.BoundaryColor(selection.LevelState),
		Weight:      2,
		FillOpacity: 0.08,
	}))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func parseRelID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid relation id %q: must be a positive integer", s)
	}
	return id, nil
}

// parseLatLon parses "lat,lon".
func parseLatLon(s string) (types.LatLon, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return types.LatLon{}, fmt.Errorf("invalid point %q: expected lat,lon", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return types.LatLon{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return types.LatLon{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}

	p := types.LatLon{Lat: lat, Lon: lon}
	if !p.Valid() {
		return types.LatLon{}, fmt.Errorf("point %q out of range", s)
	}
	return p, nil
}
