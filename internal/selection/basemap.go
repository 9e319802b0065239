package selection

import (
	"errors"
	"fmt"
)

// Basemap is one background tile source.
type Basemap struct {
	ID          string `json:"id"`
	URLTemplate string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

// DefaultBasemap is used when none (or an unknown one) is given.
const DefaultBasemap = "CartoDark"

// ErrUnknownBasemap is returned for ids outside the registry.
var ErrUnknownBasemap = errors.New("unknown basemap")

var basemaps = []Basemap{
	{
		ID:          "OSM",
		URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap",
		MaxZoom:     19,
	},
	{
		ID:          "CartoLight",
		URLTemplate: "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: "© OpenStreetMap & CARTO",
		MaxZoom:     20,
	},
	{
		ID:          "CartoDark",
		URLTemplate: "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: "© OpenStreetMap & CARTO",
		MaxZoom:     20,
	},
	{
		ID:          "OpenTopo",
		URLTemplate: "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap & SRTM | OpenTopoMap",
		MaxZoom:     17,
	},
}

// Basemaps returns the registry in display order.
func Basemaps() []Basemap {
	out := make([]Basemap, len(basemaps))
	copy(out, basemaps)
	return out
}

// LookupBasemap returns the registry entry for id.
func LookupBasemap(id string) (Basemap, error) {
	for _, b := range basemaps {
		if b.ID == id {
			return b, nil
		}
	}
	return Basemap{}, fmt.Errorf("%w: %q", ErrUnknownBasemap, id)
}
