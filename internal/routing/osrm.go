package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/MeKo-Tech/geoexplorer/internal/upstream"
	"github.com/paulmach/orb/geojson"
)

// DefaultEndpoint is the public OSRM demo server, driving profile.
const DefaultEndpoint = "https://router.project-osrm.org/route/v1/driving/"

const serviceName = "osrm"

// Config configures an OSRMClient.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Endpoint is the route service base including profile and trailing slash
	Endpoint  string
	UserAgent string
	// Timeout is the HTTP timeout when HTTPClient is nil (default: 30s)
	Timeout time.Duration
}

// OSRMClient computes driving routes between two points.
type OSRMClient struct {
	http     *upstream.Client
	logger   *slog.Logger
	endpoint string
}

// NewOSRMClient creates a new route client.
func NewOSRMClient(cfg Config) *OSRMClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &OSRMClient{
		http: upstream.NewClient(serviceName, upstream.Config{
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.Timeout,
		}),
		logger:   cfg.Logger.With("component", "osrm_client"),
		endpoint: cfg.Endpoint,
	}
}

type routeResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []routeItem `json:"routes"`
}

type routeItem struct {
	Geometry json.RawMessage `json:"geometry"`
	Distance float64         `json:"distance"` // metres
	Duration float64         `json:"duration"` // seconds
}

// unroutable reports the OSRM codes for a pair that has no route.
func unroutable(code string) bool {
	return code == "NoRoute" || code == "NoSegment"
}

// ComputeRoute returns the first route between start and end.
//
// A nil point means there is nothing to route yet and yields (nil, nil)
// without a request. So does an unroutable pair, whether OSRM answers it
// with an empty route list or with 400 and a NoRoute or NoSegment code.
func (c *OSRMClient) ComputeRoute(ctx context.Context, start, end *types.LatLon) (*types.RouteResult, error) {
	if start == nil || end == nil {
		return nil, nil
	}
	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("invalid route points %s -> %s", start, end)
	}

	req, err := http.NewRequest(http.MethodGet, c.routeURL(*start, *end), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var parsed routeResponse
	err = c.http.DoStatus(ctx, "route", req,
		func(status int) bool { return status == http.StatusBadRequest },
		func(status int, body []byte) error {
			derr := json.Unmarshal(body, &parsed)
			if status == http.StatusOK {
				return derr
			}
			if derr != nil || !unroutable(parsed.Code) {
				return upstream.Unavailable(serviceName, "route", status,
					fmt.Errorf("code %q: %s", parsed.Code, parsed.Message))
			}
			parsed.Routes = nil
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("osrm route failed: %w", err)
	}

	if len(parsed.Routes) == 0 {
		c.logger.Debug("no route found", "code", parsed.Code, "start", start.String(), "end", end.String())
		return nil, nil
	}

	first := parsed.Routes[0]
	g, err := geojson.UnmarshalGeometry(first.Geometry)
	if err != nil {
		return nil, fmt.Errorf("osrm route failed: %w",
			upstream.Malformed(serviceName, "route", fmt.Errorf("decoding geometry: %w", err)))
	}
	if g == nil || g.Geometry() == nil {
		return nil, fmt.Errorf("osrm route failed: %w",
			upstream.Malformed(serviceName, "route", errors.New("route without geometry")))
	}

	return &types.RouteResult{
		Geometry:    g.Geometry(),
		DistanceKm:  metresToKm(first.Distance),
		DurationMin: secondsToMinutes(first.Duration),
	}, nil
}

func (c *OSRMClient) routeURL(start, end types.LatLon) string {
	coords := formatCoord(start) + ";" + formatCoord(end)
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	return c.endpoint + coords + "?" + q.Encode()
}

// formatCoord writes lon,lat in the order OSRM expects.
func formatCoord(p types.LatLon) string {
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

// metresToKm converts to kilometres rounded to two decimals.
func metresToKm(m float64) float64 {
	return math.Round(m/1000*100) / 100
}

// secondsToMinutes converts to whole minutes.
func secondsToMinutes(s float64) float64 {
	return math.Round(s / 60)
}
