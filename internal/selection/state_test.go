package selection

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStateClearsDistrict(t *testing.T) {
	s := Default().SelectState(10)
	s, err := s.SelectDistrict(20)
	require.NoError(t, err)
	require.Equal(t, int64(20), s.DistrictID)

	next := s.SelectState(11)
	assert.Equal(t, int64(11), next.StateID)
	assert.Zero(t, next.DistrictID)

	// original value untouched
	assert.Equal(t, int64(20), s.DistrictID)

	cleared := s.SelectState(0)
	assert.Zero(t, cleared.StateID)
	assert.Zero(t, cleared.DistrictID)
}

func TestSelectDistrictRequiresState(t *testing.T) {
	s := Default()
	got, err := s.SelectDistrict(20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSelection))
	assert.Equal(t, s, got)

	s = s.SelectState(10)
	got, err = s.SelectDistrict(0)
	require.NoError(t, err)
	assert.Zero(t, got.DistrictID)
	assert.Equal(t, int64(10), got.StateID)
}

func TestSetLevel(t *testing.T) {
	s := Default().SelectState(10)

	got, err := s.SetLevel(LevelVillage)
	require.NoError(t, err)
	assert.Equal(t, LevelVillage, got.Level)
	assert.Equal(t, int64(10), got.StateID, "level change keeps area ids")

	got, err = s.SetLevel("hamlet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLevel))
	assert.Equal(t, s, got)
}

func TestSetBasemap(t *testing.T) {
	s := Default()
	assert.Equal(t, "CartoDark", s.Basemap)

	got, err := s.SetBasemap("OpenTopo")
	require.NoError(t, err)
	assert.Equal(t, 17, got.BasemapInfo().MaxZoom)

	got, err = s.SetBasemap("Bing")
	assert.True(t, errors.Is(err, ErrUnknownBasemap))
	assert.Equal(t, s, got)
}

func TestScope(t *testing.T) {
	s := Default()
	assert.Zero(t, s.Scope())

	s = s.SelectState(10)
	assert.Equal(t, int64(10), s.Scope())

	s, _ = s.SelectDistrict(20)
	assert.Equal(t, int64(20), s.Scope())
}

func TestLevelMetadata(t *testing.T) {
	tests := []struct {
		level      Level
		label      string
		adminLevel int
		kinds      []types.SettlementKind
	}{
		{LevelState, "State", 4, nil},
		{LevelDistrict, "District", 6, nil},
		{LevelCity, "Cities & Towns", 0, []types.SettlementKind{types.KindCity, types.KindTown}},
		{LevelVillage, "Villages", 0, []types.SettlementKind{types.KindVillage}},
	}
	for _, tc := range tests {
		t.Run(string(tc.level), func(t *testing.T) {
			li, err := LookupLevel(tc.level)
			require.NoError(t, err)
			assert.Equal(t, tc.label, li.Label)
			assert.Equal(t, tc.adminLevel, li.AdminLevel)
			assert.Equal(t, tc.kinds, li.Kinds)
			assert.Equal(t, tc.kinds != nil, li.IsPointLevel())
		})
	}
	assert.Len(t, Levels(), 4)
	assert.Len(t, Basemaps(), 4)
}
