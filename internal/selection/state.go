// Package selection holds the explorer's view selection: the active level,
// the chosen state and district, and the basemap. State values are
// immutable; every transition returns a new value.
package selection

import (
	"errors"
	"fmt"
)

// ErrInvalidSelection is returned when a district is chosen without a state.
var ErrInvalidSelection = errors.New("invalid selection")

// State is one selection snapshot. Ids are OSM relation ids; 0 means unset.
type State struct {
	Level      Level  `json:"level"`
	Basemap    string `json:"basemap"`
	StateID    int64  `json:"state_rel,omitempty"`
	DistrictID int64  `json:"district_rel,omitempty"`
}

// Default returns the initial selection.
func Default() State {
	return State{Level: DefaultLevel, Basemap: DefaultBasemap}
}

// SelectState chooses a state and clears the district. id 0 clears both.
func (s State) SelectState(id int64) State {
	if id < 0 {
		id = 0
	}
	s.StateID = id
	s.DistrictID = 0
	return s
}

// SelectDistrict chooses a district inside the current state. id 0 clears
// the district.
func (s State) SelectDistrict(id int64) (State, error) {
	if id <= 0 {
		s.DistrictID = 0
		return s, nil
	}
	if s.StateID == 0 {
		return s, fmt.Errorf("%w: district %d without a state", ErrInvalidSelection, id)
	}
	s.DistrictID = id
	return s, nil
}

// SetLevel switches granularity. Area ids are kept.
func (s State) SetLevel(l Level) (State, error) {
	if _, err := LookupLevel(l); err != nil {
		return s, err
	}
	s.Level = l
	return s, nil
}

// SetBasemap switches the background.
func (s State) SetBasemap(id string) (State, error) {
	if _, err := LookupBasemap(id); err != nil {
		return s, err
	}
	s.Basemap = id
	return s, nil
}

// Scope returns the area settlement queries are limited to: the district
// when one is chosen, else the state, else 0.
func (s State) Scope() int64 {
	if s.DistrictID != 0 {
		return s.DistrictID
	}
	return s.StateID
}

// BasemapInfo returns the registry entry of the active basemap, falling
// back to the default.
func (s State) BasemapInfo() Basemap {
	if b, err := LookupBasemap(s.Basemap); err == nil {
		return b
	}
	b, _ := LookupBasemap(DefaultBasemap)
	return b
}
