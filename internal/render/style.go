// Package render emits the interactive map artifact and a GeoJSON export of
// the point set.
package render

import (
	"fmt"
	"html/template"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/normalize"
)

// Style maps categories and rank bands to marker appearance. Loaded from a
// YAML file so icon tweaks don't need a rebuild.
type Style struct {
	SchoolIcon   string            `yaml:"school_icon"`
	StationIcon  string            `yaml:"station_icon"`
	StationColor string            `yaml:"station_color"`
	BandColors   map[string]string `yaml:"band_colors"`
	DefaultColor string            `yaml:"default_color"`
	BandSize     int               `yaml:"band_size"`
}

// DefaultStyle returns the built-in style.
func DefaultStyle() Style {
	return Style{
		SchoolIcon:   "graduation-cap",
		StationIcon:  "train",
		StationColor: "#2b6cb0",
		BandColors: map[string]string{
			"10": "#c53030",
			"20": "#dd6b20",
			"30": "#d69e2e",
			"40": "#38a169",
			"50": "#319795",
		},
		DefaultColor: "#718096",
		BandSize:     10,
	}
}

// LoadStyle reads a style YAML file, filling unset fields from the default.
func LoadStyle(path string) (Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Style{}, eris.Wrapf(err, "render: read style %s", path)
	}

	s := DefaultStyle()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Style{}, eris.Wrapf(err, "render: parse style %s", path)
	}
	if s.BandSize <= 0 {
		s.BandSize = DefaultStyle().BandSize
	}
	if len(s.BandColors) == 0 {
		s.BandColors = DefaultStyle().BandColors
	}
	return s, nil
}

// IconFor returns the icon name for a point's category.
func (s Style) IconFor(p model.GeoPoint) string {
	if p.Category == model.CategoryStation {
		return s.StationIcon
	}
	return s.SchoolIcon
}

// ColorFor returns the marker color: stations get a fixed color, schools are
// colored by rank band.
func (s Style) ColorFor(p model.GeoPoint) string {
	if p.Category == model.CategoryStation {
		return s.StationColor
	}
	rank, err := strconv.Atoi(p.Attr("rank"))
	if err != nil {
		return s.DefaultColor
	}
	if c, ok := s.BandColors[normalize.BandLabel(rank, s.BandSize)]; ok {
		return c
	}
	return s.DefaultColor
}

// Legend renders the HTML legend fragment for the map.
func (s Style) Legend() template.HTML {
	bands := make([]string, 0, len(s.BandColors))
	for band := range s.BandColors {
		bands = append(bands, band)
	}
	sort.Slice(bands, func(i, j int) bool {
		a, _ := strconv.Atoi(bands[i])
		b, _ := strconv.Atoi(bands[j])
		return a < b
	})

	html := `<div class="legend"><strong>Schools by rank</strong>`
	prev := 0
	for _, band := range bands {
		upper, _ := strconv.Atoi(band)
		html += fmt.Sprintf(
			`<div><span class="swatch" style="background:%s"></span>%d&ndash;%d</div>`,
			template.HTMLEscapeString(s.BandColors[band]), prev+1, upper,
		)
		prev = upper
	}
	html += fmt.Sprintf(
		`<div><span class="swatch" style="background:%s"></span>Train station</div></div>`,
		template.HTMLEscapeString(s.StationColor),
	)
	return template.HTML(html)
}
