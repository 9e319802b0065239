package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MeKo-Tech/geoexplorer/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNominatim struct {
	body    string
	status  int
	calls   atomic.Int32
	lastReq atomic.Pointer[http.Request]
}

func (f *fakeNominatim) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastReq.Store(r.Clone(context.Background()))
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = io.WriteString(w, f.body)
}

func newClient(t *testing.T, f *fakeNominatim) *NominatimClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewNominatimClient(Config{Endpoint: srv.URL + "/", RequestsPerSecond: -1, CountryCodes: "IN"})
}

func TestSearch(t *testing.T) {
	f := &fakeNominatim{body: `[
		{"display_name":"Pune, Maharashtra, India","lat":"18.5213738","lon":"73.8545071"},
		{"display_name":"Broken","lat":"","lon":"73.1"},
		{"display_name":"Punalur, Kerala, India","lat":"9.0177","lon":"76.9264"}
	]`}
	c := newClient(t, f)

	places, err := c.Search(context.Background(), "  Pune ", 5)
	require.NoError(t, err)

	require.Len(t, places, 2)
	assert.Equal(t, "Pune, Maharashtra, India", places[0].DisplayName)
	assert.InDelta(t, 18.5213738, places[0].Lat, 1e-9)
	assert.InDelta(t, 73.8545071, places[0].LatLon().Lon, 1e-9)
	assert.Equal(t, "Punalur, Kerala, India", places[1].DisplayName)

	req := f.lastReq.Load()
	require.NotNil(t, req)
	assert.Equal(t, "/search", req.URL.Path)
	assert.Equal(t, "Pune", req.URL.Query().Get("q"))
	assert.Equal(t, "5", req.URL.Query().Get("limit"))
	assert.Equal(t, "in", req.URL.Query().Get("countrycodes"))
	assert.Equal(t, "en", req.Header.Get("Accept-Language"))
	assert.NotEmpty(t, req.Header.Get("User-Agent"))
}

func TestSearchShortQuerySkipsRequest(t *testing.T) {
	f := &fakeNominatim{body: `[]`}
	c := newClient(t, f)

	for _, q := range []string{"", "  ", "ab", "पु"} {
		places, err := c.Search(context.Background(), q, 0)
		require.NoError(t, err)
		assert.Empty(t, places)
	}
	assert.Zero(t, f.calls.Load())

	// three runes is enough even when they are multi-byte
	_, err := c.Search(context.Background(), "पुण", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, "8", f.lastReq.Load().URL.Query().Get("limit"))
}

func TestSearchErrors(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		c := newClient(t, &fakeNominatim{status: http.StatusTooManyRequests})
		_, err := c.Search(context.Background(), "Mumbai", 1)
		assert.True(t, errors.Is(err, upstream.ErrUpstreamUnavailable))
	})
	t.Run("malformed", func(t *testing.T) {
		c := newClient(t, &fakeNominatim{body: `{"error":"x"}`})
		_, err := c.Search(context.Background(), "Mumbai", 1)
		assert.True(t, errors.Is(err, upstream.ErrMalformedResponse))
	})
}
