// Package refdata loads authoritative coordinate datasets and joins them
// onto scraped points by normalized name. Generic geocoding puts some school
// markers on the wrong block; the department's published dataset is the
// correction source.
package refdata

import (
	"context"
	"os"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/schoolrail/schoolrail-cli/internal/fetcher"
)

// Record is one authoritative coordinate row: a name plus x/y (lon/lat).
type Record struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Source loads reference records from some tabular format.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// CSVSource reads records from a CSV file with a header row.
type CSVSource struct {
	Path      string
	NameField string // default "name"
	XField    string // default "x" (longitude)
	YField    string // default "y" (latitude)
}

// Load implements Source.
func (s CSVSource) Load(_ context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: open %s", s.Path)
	}
	defer f.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read %s", s.Path)
	}

	nameIdx, err := findColumn(header, orDefault(s.NameField, "name"))
	if err != nil {
		return nil, err
	}
	xIdx, err := findColumn(header, orDefault(s.XField, "x"))
	if err != nil {
		return nil, err
	}
	yIdx, err := findColumn(header, orDefault(s.YField, "y"))
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec, err := rowToRecord(row, nameIdx, xIdx, yIdx)
		if err != nil {
			return nil, eris.Wrapf(err, "refdata: row %d", i+2)
		}
		records = append(records, rec)
	}
	return records, nil
}

// XLSXSource reads records from an XLSX sheet with a header row.
type XLSXSource struct {
	Path      string
	Sheet     string // default: first sheet
	NameField string
	XField    string
	YField    string
}

// Load implements Source.
func (s XLSXSource) Load(_ context.Context) ([]Record, error) {
	rows, err := fetcher.ReadXLSX(s.Path, fetcher.XLSXOptions{SheetName: s.Sheet})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("refdata: %s is empty", s.Path)
	}

	header := rows[0]
	nameIdx, err := findColumn(header, orDefault(s.NameField, "name"))
	if err != nil {
		return nil, err
	}
	xIdx, err := findColumn(header, orDefault(s.XField, "x"))
	if err != nil {
		return nil, err
	}
	yIdx, err := findColumn(header, orDefault(s.YField, "y"))
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := rowToRecord(row, nameIdx, xIdx, yIdx)
		if err != nil {
			return nil, eris.Wrapf(err, "refdata: row %d", i+2)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ShapefileSource reads point records from a shapefile, taking the name from
// the given attribute field.
type ShapefileSource struct {
	Path      string
	NameField string // default "NAME"
}

// Load implements Source.
func (s ShapefileSource) Load(_ context.Context) ([]Record, error) {
	reader, err := shp.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: open shapefile %s", s.Path)
	}
	defer reader.Close() //nolint:errcheck

	nameField := orDefault(s.NameField, "NAME")
	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, nameField) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("refdata: shapefile has no %q field", nameField)
	}

	var records []Record
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			continue
		}
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			continue
		}
		records = append(records, Record{
			Name:      name,
			Latitude:  point.Y,
			Longitude: point.X,
		})
	}
	return records, nil
}

// Open returns the Source matching the file extension.
func Open(path string) (Source, error) {
	switch strings.TrimPrefix(strings.ToLower(pathExt(path)), ".") {
	case "csv":
		return CSVSource{Path: path}, nil
	case "xlsx":
		return XLSXSource{Path: path}, nil
	case "shp":
		return ShapefileSource{Path: path}, nil
	default:
		return nil, eris.Errorf("refdata: unsupported reference file %s (want .csv, .xlsx or .shp)", path)
	}
}

func pathExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

func findColumn(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return 0, eris.Errorf("refdata: column %q not found in header %v", name, header)
}

func rowToRecord(row []string, nameIdx, xIdx, yIdx int) (Record, error) {
	max := nameIdx
	if xIdx > max {
		max = xIdx
	}
	if yIdx > max {
		max = yIdx
	}
	if len(row) <= max {
		return Record{}, eris.Errorf("short row (%d cells)", len(row))
	}

	lon, err := strconv.ParseFloat(row[xIdx], 64)
	if err != nil {
		return Record{}, eris.Wrapf(err, "parse x %q", row[xIdx])
	}
	lat, err := strconv.ParseFloat(row[yIdx], 64)
	if err != nil {
		return Record{}, eris.Wrapf(err, "parse y %q", row[yIdx])
	}
	return Record{Name: row[nameIdx], Latitude: lat, Longitude: lon}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
