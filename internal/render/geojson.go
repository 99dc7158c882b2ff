package render

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/schoolrail/schoolrail-cli/internal/model"
)

// ToFeatureCollection converts points into a GeoJSON FeatureCollection.
// Points without coordinates are skipped; GeoJSON has no meaningful place
// for them and they are reported through diagnostics instead.
func ToFeatureCollection(points []model.GeoPoint) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, p := range points {
		if !p.HasCoords {
			continue
		}
		props := map[string]any{
			"label":    p.Label,
			"category": string(p.Category),
			"popup":    p.Popup(),
		}
		for k, v := range p.Attrs {
			props[k] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
			Properties: props,
		})
	}
	return fc
}

// FromFeatureCollection converts a GeoJSON FeatureCollection back into
// points, the inverse of ToFeatureCollection.
func FromFeatureCollection(fc *geojson.FeatureCollection) ([]model.GeoPoint, error) {
	points := make([]model.GeoPoint, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("render: feature geometry is %T, want point", f.Geometry)
		}

		p := model.GeoPoint{}
		for k, v := range f.Properties {
			s, ok := v.(string)
			if !ok {
				continue
			}
			switch k {
			case "label":
				p.Label = s
			case "category":
				p.Category = model.Category(s)
			case "popup":
				// derived field, not stored
			default:
				if p.Attrs == nil {
					p.Attrs = map[string]string{}
				}
				p.Attrs[k] = s
			}
		}

		coords := pt.Coords()
		if err := p.SetCoords(coords[1], coords[0]); err != nil {
			return nil, eris.Wrapf(err, "render: feature %q", p.Label)
		}
		points = append(points, p)
	}
	return points, nil
}

// WriteGeoJSON writes the points as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, points []model.GeoPoint) error {
	data, err := json.MarshalIndent(ToFeatureCollection(points), "", "  ")
	if err != nil {
		return eris.Wrap(err, "render: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "render: write geojson")
	}
	return nil
}

// ReadGeoJSON reads points back from a GeoJSON FeatureCollection.
func ReadGeoJSON(r io.Reader) ([]model.GeoPoint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "render: read geojson")
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "render: parse geojson")
	}
	return FromFeatureCollection(&fc)
}
