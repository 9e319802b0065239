package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/MeKo-Tech/geoexplorer/internal/upstream"
)

const (
	// DefaultEndpoint is the public Nominatim instance.
	DefaultEndpoint = "https://nominatim.openstreetmap.org"

	// MinQueryLength is the number of runes a query needs before it is sent.
	MinQueryLength = 3

	// DefaultLimit caps the candidate list when the caller passes 0.
	DefaultLimit = 8

	serviceName = "nominatim"
)

// Place is one search candidate.
type Place struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// LatLon returns the position of the place.
func (p Place) LatLon() types.LatLon {
	return types.LatLon{Lat: p.Lat, Lon: p.Lon}
}

// Config configures a NominatimClient.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Endpoint   string
	UserAgent  string
	// CountryCodes restricts results, comma separated ISO codes (optional)
	CountryCodes string
	// Timeout is the HTTP timeout when HTTPClient is nil (default: 15s)
	Timeout time.Duration
	// RequestsPerSecond limits request rate (default: 1, usage policy)
	RequestsPerSecond float64
}

// NominatimClient runs free-text place searches.
type NominatimClient struct {
	http         *upstream.Client
	logger       *slog.Logger
	endpoint     string
	countryCodes string
}

// NewNominatimClient creates a new search client.
func NewNominatimClient(cfg Config) *NominatimClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &NominatimClient{
		http: upstream.NewClient(serviceName, upstream.Config{
			HTTPClient:        cfg.HTTPClient,
			Logger:            cfg.Logger,
			UserAgent:         cfg.UserAgent,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             1,
		}),
		logger:       cfg.Logger.With("component", "nominatim_client"),
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		countryCodes: strings.ToLower(cfg.CountryCodes),
	}
}

type searchItem struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search returns up to limit places matching q. Queries shorter than
// MinQueryLength runes return no candidates and issue no request.
func (c *NominatimClient) Search(ctx context.Context, q string, limit int) ([]Place, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []Place{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	req, err := http.NewRequest(http.MethodGet, c.endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept-Language", "en")

	var items []searchItem
	err = c.http.Do(ctx, "search", req, func(body []byte) error {
		return json.Unmarshal(body, &items)
	})
	if err != nil {
		return nil, fmt.Errorf("nominatim search failed: %w", err)
	}

	places := make([]Place, 0, len(items))
	for _, it := range items {
		lat, errLat := strconv.ParseFloat(it.Lat, 64)
		lon, errLon := strconv.ParseFloat(it.Lon, 64)
		if errLat != nil || errLon != nil {
			c.logger.Debug("skipping candidate without coordinates", "name", it.DisplayName)
			continue
		}
		p := Place{DisplayName: it.DisplayName, Lat: lat, Lon: lon}
		if !p.LatLon().Valid() {
			continue
		}
		places = append(places, p)
	}
	return places, nil
}
