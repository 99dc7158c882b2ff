package refdata

import (
	"go.uber.org/zap"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/normalize"
)

// Mismatch is a point whose normalized name found no reference record. These
// go to a manual-review list; the source data historically has a handful of
// spelling variants that need hand correction.
type Mismatch struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// Join overwrites point coordinates with authoritative reference
// coordinates, matching on normalized name. Points without a match keep
// whatever coordinates they already had and are returned as mismatches
// rather than dropped.
func Join(points []model.GeoPoint, records []Record) ([]model.GeoPoint, []Mismatch) {
	byKey := make(map[string]Record, len(records))
	for _, rec := range records {
		byKey[normalize.JoinKey(rec.Name)] = rec
	}

	out := make([]model.GeoPoint, len(points))
	var mismatches []Mismatch

	for i, p := range points {
		out[i] = p
		key := normalize.JoinKey(p.Label)
		rec, ok := byKey[key]
		if !ok {
			mismatches = append(mismatches, Mismatch{Label: p.Label, Key: key})
			continue
		}
		if err := out[i].SetCoords(rec.Latitude, rec.Longitude); err != nil {
			zap.L().Warn("reference record has invalid coordinates",
				zap.String("name", rec.Name),
				zap.Error(err),
			)
			mismatches = append(mismatches, Mismatch{Label: p.Label, Key: key})
		}
	}

	return out, mismatches
}
