package normalizer

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVReader streams dataset rows as Records. Malformed rows are skipped and
// counted instead of aborting the read.
type CSVReader struct {
	reader  *csv.Reader
	header  []string
	source  string
	skipped int
}

// NewCSVReader wraps r, consuming the header row immediately.
func NewCSVReader(r io.Reader, source string) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row length validated against the header below

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	return &CSVReader{reader: cr, header: header, source: source}, nil
}

// Next returns the next well-formed record or io.EOF when the input ends.
func (r *CSVReader) Next() (Record, error) {
	for {
		row, err := r.reader.Read()
		if err == io.EOF {
			return Record{}, io.EOF
		}
		if err != nil {
			r.skipped++
			continue
		}
		if len(row) != len(r.header) {
			r.skipped++
			continue
		}

		fields := make(map[string]string, len(r.header))
		for i, name := range r.header {
			fields[name] = row[i]
		}
		return Record{Source: r.source, Fields: fields}, nil
	}
}

// Skipped reports how many malformed rows were dropped so far.
func (r *CSVReader) Skipped() int {
	return r.skipped
}
