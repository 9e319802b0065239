package cmd

import (
	"strings"

	"github.com/MeKo-Tech/geoexplorer/internal/datasource"
	"github.com/MeKo-Tech/geoexplorer/internal/routing"
	"github.com/MeKo-Tech/geoexplorer/internal/search"
	"github.com/spf13/viper"
)

func newOverpassClient() *datasource.OverpassClient {
	return datasource.NewOverpassClient(datasource.Config{
		Logger:            logger,
		Endpoint:          viper.GetString("overpass.endpoint"),
		UserAgent:         viper.GetString("user-agent"),
		Timeout:           viper.GetDuration("overpass.timeout"),
		RequestsPerSecond: viper.GetFloat64("overpass.rps"),
		MaxParallel:       viper.GetInt("overpass.parallel"),
	})
}

func newOSRMClient() *routing.OSRMClient {
	return routing.NewOSRMClient(routing.Config{
		Logger:    logger,
		Endpoint:  viper.GetString("osrm.endpoint"),
		UserAgent: viper.GetString("user-agent"),
		Timeout:   viper.GetDuration("osrm.timeout"),
	})
}

func newNominatimClient() *search.NominatimClient {
	return search.NewNominatimClient(search.Config{
		Logger:       logger,
		Endpoint:     viper.GetString("nominatim.endpoint"),
		UserAgent:    viper.GetString("user-agent"),
		CountryCodes: strings.ToLower(viper.GetString("country")),
	})
}
