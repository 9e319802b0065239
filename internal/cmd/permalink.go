package cmd

import (
	"fmt"
	"net/url"

	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var permalinkCmd = &cobra.Command{
	Use:   "permalink <url>",
	Short: "Rewrite the selection parameters of a page URL",
	Long: `Permalink decodes the selection already carried by a page URL, applies
the given flags and prints the URL with the selection re-encoded. Unrelated
query parameters and the fragment are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runPermalink,
}

func init() {
	rootCmd.AddCommand(permalinkCmd)

	permalinkCmd.Flags().String("level", "", "Level: state, district, city or village")
	permalinkCmd.Flags().Int64("state", -1, "State relation id (0 clears)")
	permalinkCmd.Flags().Int64("district", -1, "District relation id (0 clears)")
	permalinkCmd.Flags().String("basemap", "", "Basemap id")

	for _, bf := range []struct{ key, flag string }{
		{"permalink.level", "level"},
		{"permalink.state", "state"},
		{"permalink.district", "district"},
		{"permalink.basemap", "basemap"},
	} {
		if err := viper.BindPFlag(bf.key, permalinkCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runPermalink(cmd *cobra.Command, args []string) error {
	out, err := permalink(args[0],
		selection.Level(viper.GetString("permalink.level")),
		viper.GetInt64("permalink.state"),
		viper.GetInt64("permalink.district"),
		viper.GetString("permalink.basemap"),
	)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// permalink applies the changes to the selection decoded from rawURL. A
// negative id or empty string leaves that part unchanged.
func permalink(rawURL string, level selection.Level, state, district int64, basemap string) (string, error) {
	s, err := selectionFromURL(rawURL)
	if err != nil {
		return "", err
	}

	if state >= 0 {
		s = s.SelectState(state)
	}
	if district >= 0 {
		if s, err = s.SelectDistrict(district); err != nil {
			return "", err
		}
	}
	if level != "" {
		if s, err = s.SetLevel(level); err != nil {
			return "", err
		}
	}
	if basemap != "" {
		if s, err = s.SetBasemap(basemap); err != nil {
			return "", err
		}
	}

	return selection.Merge(rawURL, s)
}

func selectionFromURL(rawURL string) (selection.State, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return selection.State{}, fmt.Errorf("parsing url: %w", err)
	}
	return selection.Decode(u.Query()), nil
}
