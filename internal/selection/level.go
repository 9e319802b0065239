package selection

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/geoexplorer/internal/types"
)

// Level is the granularity the explorer currently shows.
type Level string

const (
	LevelState    Level = "state"
	LevelDistrict Level = "district"
	LevelCity     Level = "city"
	LevelVillage  Level = "village"
)

// DefaultLevel is used when none (or an unknown one) is given.
const DefaultLevel = LevelState

// ErrUnknownLevel is returned when a level name is not registered.
var ErrUnknownLevel = errors.New("unknown level")

// LevelInfo describes what a level shows.
type LevelInfo struct {
	Key   Level
	Label string
	// AdminLevel is set for the area tiers (4, 6), zero otherwise
	AdminLevel int
	// Kinds is set for the settlement tiers
	Kinds []types.SettlementKind
}

// IsPointLevel reports whether the level shows settlements rather than areas.
func (li LevelInfo) IsPointLevel() bool {
	return len(li.Kinds) > 0
}

var levels = []LevelInfo{
	{Key: LevelState, Label: "State", AdminLevel: 4},
	{Key: LevelDistrict, Label: "District", AdminLevel: 6},
	{Key: LevelCity, Label: "Cities & Towns", Kinds: []types.SettlementKind{types.KindCity, types.KindTown}},
	{Key: LevelVillage, Label: "Villages", Kinds: []types.SettlementKind{types.KindVillage}},
}

// Levels returns all levels in display order.
func Levels() []LevelInfo {
	out := make([]LevelInfo, len(levels))
	copy(out, levels)
	return out
}

// LookupLevel returns the metadata for a level.
func LookupLevel(l Level) (LevelInfo, error) {
	for _, li := range levels {
		if li.Key == l {
			return li, nil
		}
	}
	return LevelInfo{}, fmt.Errorf("%w: %q", ErrUnknownLevel, string(l))
}

// Valid reports whether l is registered.
func (l Level) Valid() bool {
	_, err := LookupLevel(l)
	return err == nil
}

// Info returns the level metadata, or the zero value for unknown levels.
func (l Level) Info() LevelInfo {
	li, _ := LookupLevel(l)
	return li
}
