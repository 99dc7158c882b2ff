package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/schoolrail/schoolrail-cli/internal/htmltable"
	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/normalize"
)

// footnoteRe matches bracketed citation markers ("[3]", "[a]") that the
// station page carries in cell text.
var footnoteRe = regexp.MustCompile(`\[[^\]]*\]`)

// ScrapeSchools fetches the ranked-schools page and converts its largest
// table into school points with rank attributes.
func (p *Pipeline) ScrapeSchools(ctx context.Context) ([]model.GeoPoint, error) {
	page, err := p.fetcher.FetchPage(ctx, p.cfg.Scrape.SchoolsURL)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch schools page")
	}
	table, err := htmltable.SelectLargest(page)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: select schools table")
	}
	schools, err := schoolsFromTable(table, p.cfg.Scrape.MaxSchools)
	if err != nil {
		return nil, err
	}
	zap.L().Info("pipeline: scraped schools",
		zap.Int("rows", table.RowCount()),
		zap.Int("schools", len(schools)),
	)
	return schools, nil
}

// ScrapeStations fetches the station-list page and converts its largest
// table into station points.
func (p *Pipeline) ScrapeStations(ctx context.Context) ([]model.GeoPoint, error) {
	page, err := p.fetcher.FetchPage(ctx, p.cfg.Scrape.StationsURL)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch stations page")
	}
	table, err := htmltable.SelectLargest(page)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: select stations table")
	}
	stations, err := stationsFromTable(table)
	if err != nil {
		return nil, err
	}
	zap.L().Info("pipeline: scraped stations",
		zap.Int("rows", table.RowCount()),
		zap.Int("stations", len(stations)),
	)
	return stations, nil
}

// schoolsFromTable maps table rows onto school points. Columns are located
// by header text; when the header gives no hint the first column is assumed
// to be the rank and the second the school name. Rows without a parseable
// rank get sequential ranks in row order.
func schoolsFromTable(t htmltable.Table, maxSchools int) ([]model.GeoPoint, error) {
	rows := t.Padded()
	if len(rows) == 0 {
		return nil, eris.New("pipeline: schools table is empty")
	}

	nameCol := findHeaderColumn(rows[0], "school")
	rankCol := findHeaderColumn(rows[0], "rank")
	dataStart := 1
	if nameCol < 0 && rankCol < 0 {
		// No recognizable header row; treat every row as data.
		dataStart = 0
	}
	if nameCol < 0 {
		nameCol = 1
		if t.ColCount() < 2 {
			nameCol = 0
		}
	}
	if rankCol < 0 {
		rankCol = 0
	}

	var schools []model.GeoPoint
	for _, row := range rows[dataStart:] {
		raw := strings.TrimSpace(row[nameCol])
		if raw == "" {
			continue
		}
		label := normalize.CleanLabel(raw)
		if label == "" {
			continue
		}

		rank, err := strconv.Atoi(strings.TrimSpace(row[rankCol]))
		if err != nil || rank < 1 {
			rank = len(schools) + 1
		}

		attrs := map[string]string{"rank": strconv.Itoa(rank)}
		if _, locality, found := strings.Cut(raw, ","); found {
			attrs["locality"] = strings.TrimSpace(locality)
		}

		schools = append(schools, model.GeoPoint{
			Label:    label,
			Category: model.CategorySchool,
			Attrs:    attrs,
		})
		if maxSchools > 0 && len(schools) >= maxSchools {
			break
		}
	}
	if len(schools) == 0 {
		return nil, eris.New("pipeline: schools table has no usable rows")
	}
	return schools, nil
}

// stationsFromTable maps table rows onto station points, stripping citation
// markers from cell text. The lines column is optional.
func stationsFromTable(t htmltable.Table) ([]model.GeoPoint, error) {
	rows := t.Padded()
	if len(rows) == 0 {
		return nil, eris.New("pipeline: stations table is empty")
	}

	nameCol := findHeaderColumn(rows[0], "station")
	linesCol := findHeaderColumn(rows[0], "line")
	dataStart := 1
	if nameCol < 0 {
		nameCol = 0
		if linesCol < 0 {
			dataStart = 0
		}
	}

	var stations []model.GeoPoint
	for _, row := range rows[dataStart:] {
		label := strings.TrimSpace(footnoteRe.ReplaceAllString(row[nameCol], ""))
		if label == "" {
			continue
		}

		var attrs map[string]string
		if linesCol >= 0 {
			if lines := strings.TrimSpace(footnoteRe.ReplaceAllString(row[linesCol], "")); lines != "" {
				attrs = map[string]string{"lines": lines}
			}
		}

		stations = append(stations, model.GeoPoint{
			Label:    label,
			Category: model.CategoryStation,
			Attrs:    attrs,
		})
	}
	if len(stations) == 0 {
		return nil, eris.New("pipeline: stations table has no usable rows")
	}
	return stations, nil
}

// findHeaderColumn returns the index of the first header cell containing the
// keyword, or -1.
func findHeaderColumn(header []string, keyword string) int {
	for i, cell := range header {
		if strings.Contains(strings.ToLower(cell), keyword) {
			return i
		}
	}
	return -1
}
