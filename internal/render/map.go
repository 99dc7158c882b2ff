package render

import (
	"encoding/json"
	"html/template"
	"io"

	"github.com/rotisserie/eris"

	"github.com/schoolrail/schoolrail-cli/internal/model"
)

// marker is the per-point payload injected into the map page.
type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
	Popup string  `json:"popup"`
	Color string  `json:"color"`
	Icon  string  `json:"icon"`
}

// mapData is the template context for the map page.
type mapData struct {
	Title     string
	CenterLat float64
	CenterLon float64
	Markers   template.JS
	Legend    template.JS
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .legend { background: white; padding: 8px 10px; line-height: 1.5; border-radius: 4px; box-shadow: 0 0 8px rgba(0,0,0,0.2); }
  .legend .swatch { display: inline-block; width: 12px; height: 12px; margin-right: 6px; border-radius: 50%; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 11);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var markers = {{.Markers}};
markers.forEach(function (m) {
  L.circleMarker([m.lat, m.lon], {
    radius: m.icon === 'train' ? 5 : 7,
    color: m.color,
    fillColor: m.color,
    fillOpacity: 0.85
  }).bindPopup(m.popup).addTo(map);
});

var legend = L.control({position: 'bottomright'});
legend.onAdd = function () {
  var div = L.DomUtil.create('div');
  div.innerHTML = {{.Legend}};
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))

// RenderMap writes the interactive Leaflet map for the given points. Points
// without coordinates are skipped.
func RenderMap(w io.Writer, title string, points []model.GeoPoint, style Style) error {
	var markers []marker
	var sumLat, sumLon float64
	for _, p := range points {
		if !p.HasCoords {
			continue
		}
		markers = append(markers, marker{
			Lat:   p.Latitude,
			Lon:   p.Longitude,
			Label: p.Label,
			Popup: p.Popup(),
			Color: style.ColorFor(p),
			Icon:  style.IconFor(p),
		})
		sumLat += p.Latitude
		sumLon += p.Longitude
	}
	if len(markers) == 0 {
		return eris.New("render: no geocoded points to draw")
	}

	markersJSON, err := json.Marshal(markers)
	if err != nil {
		return eris.Wrap(err, "render: marshal markers")
	}

	legendJSON, err := json.Marshal(string(style.Legend()))
	if err != nil {
		return eris.Wrap(err, "render: marshal legend")
	}

	data := mapData{
		Title:     title,
		CenterLat: sumLat / float64(len(markers)),
		CenterLon: sumLon / float64(len(markers)),
		Markers:   template.JS(markersJSON), //nolint:gosec // marshalled above
		Legend:    template.JS(legendJSON), //nolint:gosec // marshalled above
	}
	return eris.Wrap(mapTemplate.Execute(w, data), "render: execute template")
}
