// Package model defines the core data types shared across the pipeline.
package model

import (
	"fmt"
	"strings"
)

// Category classifies a mapped point.
type Category string

const (
	CategorySchool  Category = "school"
	CategoryStation Category = "station"
)

// ParseCategory converts a user-supplied string into a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "school", "schools":
		return CategorySchool, nil
	case "station", "stations":
		return CategoryStation, nil
	default:
		return "", fmt.Errorf("unknown category %q (want school or station)", s)
	}
}

// GeoPoint is a labelled location on the map. Coordinates are only meaningful
// when HasCoords is true; a point that failed geocoding keeps HasCoords false
// and is excluded from distance filtering but retained for diagnostics.
type GeoPoint struct {
	Label     string            `json:"label"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	HasCoords bool              `json:"has_coords"`
	Category  Category          `json:"category"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Identity returns the stable identity used for deduplication and store keys.
// Source pages carry no stable IDs, so identity is category plus label.
func (p GeoPoint) Identity() string {
	return string(p.Category) + "|" + strings.ToLower(strings.TrimSpace(p.Label))
}

// SetCoords assigns validated coordinates to the point.
func (p *GeoPoint) SetCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", lon)
	}
	p.Latitude = lat
	p.Longitude = lon
	p.HasCoords = true
	return nil
}

// Attr returns the named attribute or "".
func (p GeoPoint) Attr(key string) string {
	if p.Attrs == nil {
		return ""
	}
	return p.Attrs[key]
}

// Popup builds the free-text popup description for the rendering sink.
func (p GeoPoint) Popup() string {
	var b strings.Builder
	b.WriteString(p.Label)
	if rank := p.Attr("rank"); rank != "" {
		b.WriteString(" (rank " + rank + ")")
	}
	if lines := p.Attr("lines"); lines != "" {
		b.WriteString(" - " + lines)
	}
	return b.String()
}
