package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	HasHeader  bool // if true, the first row is returned separately
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSV reads the whole CSV document and returns (header, rows). The
// reference datasets this pipeline consumes are small enough that streaming
// buys nothing. Ragged rows are allowed.
func ReadCSV(r io.Reader, opts CSVOptions) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	var header []string
	var rows [][]string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}

		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}

		if first && opts.HasHeader {
			header = record
			first = false
			continue
		}
		first = false
		rows = append(rows, record)
	}

	return header, rows, nil
}
