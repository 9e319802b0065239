package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/MeKo-Tech/geoexplorer/internal/search"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for a place by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("limit", search.DefaultLimit, "Maximum number of candidates")
	if err := viper.BindPFlag("search.limit", searchCmd.Flags().Lookup("limit")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	q := strings.Join(args, " ")
	if len([]rune(strings.TrimSpace(q))) < search.MinQueryLength {
		return fmt.Errorf("query must be at least %d characters", search.MinQueryLength)
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	places, err := newNominatimClient().Search(ctx, q, viper.GetInt("search.limit"))
	if err != nil {
		return err
	}
	if len(places) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LAT\tLON\tNAME")
	for _, p := range places {
		fmt.Fprintf(tw, "%.5f\t%.5f\t%s\n", p.Lat, p.Lon, p.DisplayName)
	}
	return tw.Flush()
}
