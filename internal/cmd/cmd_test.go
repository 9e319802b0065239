package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
)

func TestParseLatLon(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.LatLon
		wantErr bool
	}{
		{
			name:  "valid point",
			input: "12.97,77.59",
			want:  types.LatLon{Lat: 12.97, Lon: 77.59},
		},
		{
			name:  "valid point with spaces",
			input: " 12.97 , 77.59 ",
			want:  types.LatLon{Lat: 12.97, Lon: 77.59},
		},
		{
			name:  "negative coordinates",
			input: "-33.86,151.21",
			want:  types.LatLon{Lat: -33.86, Lon: 151.21},
		},
		{
			name:    "single value",
			input:   "12.97",
			wantErr: true,
		},
		{
			name:    "three values",
			input:   "12.97,77.59,3",
			wantErr: true,
		},
		{
			name:    "invalid number",
			input:   "abc,77.59",
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			input:   "91,77.59",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLatLon(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseLatLon(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseLatLon(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.want {
				t.Errorf("parseLatLon(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRelID(t *testing.T) {
	for _, ok := range []string{"1950884", " 42 "} {
		if _, err := parseRelID(ok); err != nil {
			t.Errorf("parseRelID(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "0", "-5", "12x"} {
		if _, err := parseRelID(bad); err == nil {
			t.Errorf("parseRelID(%q) expected error, got nil", bad)
		}
	}
}

func TestPermalink(t *testing.T) {
	const page = "https://example.org/map?utm=x&stateRel=42&districtRel=4201&level=district#top"

	tests := []struct {
		name     string
		level    selection.Level
		state    int64
		district int64
		basemap  string
		want     selection.State
		wantErr  bool
	}{
		{
			name:     "unchanged",
			state:    -1,
			district: -1,
			want:     selection.State{Level: selection.LevelDistrict, Basemap: selection.DefaultBasemap, StateID: 42, DistrictID: 4201},
		},
		{
			name:     "new state clears district",
			state:    7,
			district: -1,
			want:     selection.State{Level: selection.LevelDistrict, Basemap: selection.DefaultBasemap, StateID: 7},
		},
		{
			name:     "level and basemap",
			level:    selection.LevelVillage,
			state:    -1,
			district: -1,
			basemap:  "OSM",
			want:     selection.State{Level: selection.LevelVillage, Basemap: "OSM", StateID: 42, DistrictID: 4201},
		},
		{
			name:     "district without state",
			state:    0,
			district: 9,
			wantErr:  true,
		},
		{
			name:     "unknown basemap",
			state:    -1,
			district: -1,
			basemap:  "Stamen",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := permalink(page, tt.level, tt.state, tt.district, tt.basemap)
			if tt.wantErr {
				if err == nil {
					t.Errorf("permalink expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("permalink unexpected error: %v", err)
			}
			if !strings.Contains(got, "utm=x") || !strings.HasSuffix(got, "#top") {
				t.Errorf("permalink(%q) = %q, lost unrelated parts", page, got)
			}
			s, err := selectionFromURL(got)
			if err != nil {
				t.Fatalf("selectionFromURL(%q): %v", got, err)
			}
			if s != tt.want {
				t.Errorf("permalink selection = %+v, want %+v", s, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", false).Debug("hidden")
	newLogger(&buf, "json", false).Info("shown", "state_rel", 42)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record logged without verbose: %s", out)
	}
	if !strings.Contains(out, `"state_rel":42`) {
		t.Errorf("expected JSON record, got %s", out)
	}

	buf.Reset()
	newLogger(&buf, "text", true).Debug("visible")
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("expected text debug record, got %s", buf.String())
	}
}
