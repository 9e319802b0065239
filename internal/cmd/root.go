package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "geoexplorer",
	Short: "Explore administrative areas, settlements and routes on a map",
	Long: `GeoExplorer serves an interactive map of a country's administrative areas.

Pick a state and district to see its boundary and the cities, towns and
villages inside it, switch basemaps, search for places and route between two
points. Area data comes from Overpass, routes from OSRM, search from Nominatim.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	pf.String("country", "IN", "ISO 3166-1 alpha-2 code of the country to explore")
	pf.String("overpass-endpoint", "https://overpass-api.de/api/interpreter", "Overpass interpreter URL")
	pf.Duration("overpass-timeout", 0, "HTTP timeout for Overpass requests (0 = client default)")
	pf.Float64("overpass-rps", 1, "Max Overpass requests per second (negative disables limiting)")
	pf.Int("overpass-parallel", 2, "Max concurrent Overpass requests")
	pf.String("osrm-endpoint", "https://router.project-osrm.org/route/v1/driving/", "OSRM route service URL")
	pf.Duration("osrm-timeout", 0, "HTTP timeout for OSRM requests (0 = client default)")
	pf.String("nominatim-endpoint", "https://nominatim.openstreetmap.org", "Nominatim base URL")
	pf.String("user-agent", "geoexplorer/1.0", "User-Agent sent to upstream services")
	pf.Bool("verbose", false, "Enable verbose logging")
	pf.String("log-format", "text", "Log format (text, json)")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, pf.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("country", "country")
	mustBind("overpass.endpoint", "overpass-endpoint")
	mustBind("overpass.timeout", "overpass-timeout")
	mustBind("overpass.rps", "overpass-rps")
	mustBind("overpass.parallel", "overpass-parallel")
	mustBind("osrm.endpoint", "osrm-endpoint")
	mustBind("osrm.timeout", "osrm-timeout")
	mustBind("nominatim.endpoint", "nominatim-endpoint")
	mustBind("user-agent", "user-agent")
	mustBind("verbose", "verbose")
	mustBind("log-format", "log-format")
}

func initConfig() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load(".env")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("GEOEXPLORER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	initLogging()
}
