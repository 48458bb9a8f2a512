package facts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Format is an output table format.
type Format string

const (
	// FormatCSV writes plain CSV.
	FormatCSV Format = "csv"

	// FormatCSVGzip writes gzip-compressed CSV.
	FormatCSVGzip Format = "csv.gz"
)

// ParseFormat validates a format name. Empty selects FormatCSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatCSVGzip:
		return FormatCSVGzip, nil
	default:
		return "", fmt.Errorf("unsupported table format %q (want %s or %s)", s, FormatCSV, FormatCSVGzip)
	}
}

// Ext is the file extension of the format, without the leading dot.
func (f Format) Ext() string {
	return string(f)
}

// Write encodes t to w in format f.
//
// The first four rows are headers holding taxonomy, tag, unit and field of
// each column; the first cell of every row labels it. Data rows follow, one
// per event ordinal. Absent cells are written empty.
func Write(w io.Writer, t *Table, f Format) error {
	switch f {
	case FormatCSV, "":
		return writeCSV(w, t)
	case FormatCSVGzip:
		zw := gzip.NewWriter(w)
		if err := writeCSV(zw, t); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	default:
		return fmt.Errorf("unsupported table format %q", f)
	}
}

func writeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	record := make([]string, len(t.Columns)+1)

	headers := []struct {
		label string
		value func(Key) string
	}{
		{"taxonomy", func(k Key) string { return k.Taxonomy }},
		{"tag", func(k Key) string { return k.Tag }},
		{"unit", func(k Key) string { return k.Unit }},
		{"field", func(k Key) string { return k.Field }},
	}
	for _, h := range headers {
		record[0] = h.label
		for i, c := range t.Columns {
			record[i+1] = h.value(c.Key)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	for row := 0; row < t.Rows(); row++ {
		record[0] = strconv.Itoa(row)
		for i, c := range t.Columns {
			record[i+1] = c.Cell(row).Value
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
