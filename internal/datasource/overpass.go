package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/MeKo-Tech/geoexplorer/internal/upstream"
)

const (
	// DefaultEndpoint is the public Overpass interpreter.
	DefaultEndpoint = "https://overpass-api.de/api/interpreter"

	// AdminLevelState and AdminLevelDistrict are the OSM admin_level values
	// of the two drill-down tiers below the country (admin_level 2).
	AdminLevelState    = 4
	AdminLevelDistrict = 6

	// areaIDOffset maps a relation id onto the id of its derived Overpass area.
	areaIDOffset int64 = 3_600_000_000

	serviceName = "overpass"
)

// RegionID returns the Overpass area id enclosing the given relation.
// Every query scoped to a relation must go through this transform.
func RegionID(relID int64) int64 {
	return areaIDOffset + relID
}

// Config configures an OverpassClient.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Endpoint   string
	UserAgent  string
	// Timeout is the HTTP timeout when HTTPClient is nil (default: 90s)
	Timeout time.Duration
	// QueryTimeout is the server-side [timeout:N] setting in seconds (default: 60)
	QueryTimeout int
	// RequestsPerSecond limits request rate (default: 1, API etiquette)
	RequestsPerSecond float64
	// MaxParallel caps concurrent interpreter requests (default: 2)
	MaxParallel int
}

// OverpassClient answers the admin-boundary, sub-area and place queries
// the explorer needs. All methods are read-only and safe for concurrent use.
type OverpassClient struct {
	http         *upstream.Client
	api          overpass.Client
	logger       *slog.Logger
	queryTimeout int
}

// NewOverpassClient creates a new Overpass client
func NewOverpassClient(cfg Config) *OverpassClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 60
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 2
	}

	c := &OverpassClient{
		http: upstream.NewClient(serviceName, upstream.Config{
			HTTPClient:        cfg.HTTPClient,
			Logger:            cfg.Logger,
			UserAgent:         cfg.UserAgent,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             2,
		}),
		logger:       cfg.Logger.With("component", "overpass_client"),
		queryTimeout: cfg.QueryTimeout,
	}
	// Retries stay off: a failed query is reported, never repeated.
	c.api = overpass.NewWithRetry(cfg.Endpoint, cfg.MaxParallel, upstreamDoer{c.http}, overpass.RetryConfig{})
	return c
}

// ListTopLevelAreas returns the states (admin_level 4) of a country, sorted by name.
func (c *OverpassClient) ListTopLevelAreas(ctx context.Context, countryCode string) ([]types.AdminArea, error) {
	cc, err := normalizeCountryCode(countryCode)
	if err != nil {
		return nil, err
	}

	resp, err := c.interpret(ctx, "list_states", c.buildTopLevelAreasQuery(cc))
	if err != nil {
		return nil, err
	}
	return extractAreas(resp, "state"), nil
}

// ListSubAreas returns the districts (admin_level 6) inside a state, sorted by name.
func (c *OverpassClient) ListSubAreas(ctx context.Context, parentID int64) ([]types.AdminArea, error) {
	if parentID <= 0 {
		return nil, fmt.Errorf("invalid parent relation id %d", parentID)
	}

	resp, err := c.interpret(ctx, "list_districts", c.buildSubAreasQuery(parentID))
	if err != nil {
		return nil, err
	}
	return extractAreas(resp, "district"), nil
}

// ListSettlements returns the places of the given kinds inside an area.
// Rows without usable coordinates are dropped.
func (c *OverpassClient) ListSettlements(ctx context.Context, parentID int64, kinds []types.SettlementKind) ([]types.Settlement, error) {
	if parentID <= 0 {
		return nil, fmt.Errorf("invalid parent relation id %d", parentID)
	}

	kinds = normalizeKinds(kinds)
	if len(kinds) == 0 {
		return []types.Settlement{}, nil
	}

	resp, err := c.interpret(ctx, "list_settlements", c.buildSettlementsQuery(parentID, kinds))
	if err != nil {
		return nil, err
	}
	return extractSettlements(resp), nil
}

// FetchBoundary returns the outline of one relation. A relation without
// outer-way geometry yields a Boundary with nil Geometry, which is not an error.
func (c *OverpassClient) FetchBoundary(ctx context.Context, areaID int64) (types.Boundary, error) {
	if areaID <= 0 {
		return types.Boundary{}, fmt.Errorf("invalid relation id %d", areaID)
	}

	resp, err := c.interpret(ctx, "fetch_boundary", c.buildBoundaryQuery(areaID))
	if err != nil {
		return types.Boundary{}, err
	}
	return extractBoundary(resp, areaID), nil
}

// exchange carries one query through the go-overpass client: the op name
// goes in, the raw elements come back out.
type exchange struct {
	raw *response
	op  string
}

type exchangeKey struct{}

// upstreamDoer sends the requests built by go-overpass through the upstream
// client, so they share its rate limit, user agent, metrics and error kinds.
// The body is checked for an elements array before the library sees it.
type upstreamDoer struct {
	http *upstream.Client
}

func (d upstreamDoer) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	ex, _ := ctx.Value(exchangeKey{}).(*exchange)
	if ex == nil {
		ex = &exchange{op: "query"}
	}

	var body []byte
	err := d.http.Do(ctx, ex.op, req, func(b []byte) error {
		raw, err := decodeResponse(b)
		if err != nil {
			return err
		}
		ex.raw, body = raw, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func (c *OverpassClient) interpret(ctx context.Context, op, query string) (*response, error) {
	ex := &exchange{op: op}
	result, err := c.api.QueryContext(context.WithValue(ctx, exchangeKey{}, ex), query)
	if err != nil {
		var uerr *upstream.Error
		if !errors.As(err, &uerr) && ex.raw != nil {
			err = upstream.Malformed(serviceName, op, err)
		}
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	resp := ex.raw
	if resp == nil {
		resp = &response{relationBounds: map[int64]types.BoundingBox{}}
	}
	resp.result = &result
	c.logger.Debug("overpass query decoded", "op", op, "elements", result.Count)
	return resp, nil
}

func (c *OverpassClient) buildTopLevelAreasQuery(countryCode string) string {
	return fmt.Sprintf(`
[out:json][timeout:%d];
area["ISO3166-1"="%s"]["admin_level"="2"]->.country;
rel(area.country)["boundary"="administrative"]["admin_level"="%d"];
out ids tags bb;`, c.queryTimeout, countryCode, AdminLevelState)
}

func (c *OverpassClient) buildSubAreasQuery(parentID int64) string {
	return fmt.Sprintf(`
[out:json][timeout:%d];
area(%d)->.sel;
rel(area.sel)["boundary"="administrative"]["admin_level"="%d"];
out ids tags bb;`, c.queryTimeout, RegionID(parentID), AdminLevelDistrict)
}

// buildSettlementsQuery unions one node filter per place kind. "out center"
// is kept so that way/relation places would still carry a position.
func (c *OverpassClient) buildSettlementsQuery(parentID int64, kinds []types.SettlementKind) string {
	var filters strings.Builder
	for _, k := range kinds {
		fmt.Fprintf(&filters, "  node(area.a)[\"place\"=\"%s\"];\n", k)
	}
	return fmt.Sprintf(`
[out:json][timeout:%d];
area(%d)->.a;
(
%s);
out tags center;`, c.queryTimeout, RegionID(parentID), filters.String())
}

// buildBoundaryQuery prints the relation with its bbox, then recurses down
// to the member ways so they arrive with full geometry.
func (c *OverpassClient) buildBoundaryQuery(relID int64) string {
	return fmt.Sprintf(`
[out:json][timeout:%d];
rel(%d);
out tags bb;
(._;>;);
out body geom;`, c.queryTimeout, relID)
}

// normalizeCountryCode accepts ISO 3166-1 alpha-2 codes in any case.
// Anything else is rejected so it never reaches the query text.
func normalizeCountryCode(cc string) (string, error) {
	cc = strings.ToUpper(strings.TrimSpace(cc))
	if len(cc) != 2 || cc[0] < 'A' || cc[0] > 'Z' || cc[1] < 'A' || cc[1] > 'Z' {
		return "", fmt.Errorf("invalid country code %q", cc)
	}
	return cc, nil
}

// normalizeKinds drops unknown kinds and duplicates, keeping a stable order.
func normalizeKinds(kinds []types.SettlementKind) []types.SettlementKind {
	out := make([]types.SettlementKind, 0, len(kinds))
	for _, k := range kinds {
		if k.Valid() && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
