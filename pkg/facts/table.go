package facts

import (
	"bytes"
	"encoding/json"
	"sort"
)

// CoreFields every event must carry. Only OptionalFields may be absent.
var CoreFields = []string{"start", "end", "val", "accn", "fy", "fp", "form", "filed", "frame"}

// OptionalFields depend on whether a fact is instantaneous or frame-tagged.
var OptionalFields = map[string]bool{"start": true, "frame": true}

// Key addresses one column.
type Key struct {
	Taxonomy string
	Tag      string
	Unit     string
	Field    string
}

// Less orders keys by taxonomy, tag, unit, then field.
func (k Key) Less(o Key) bool {
	if k.Taxonomy != o.Taxonomy {
		return k.Taxonomy < o.Taxonomy
	}
	if k.Tag != o.Tag {
		return k.Tag < o.Tag
	}
	if k.Unit != o.Unit {
		return k.Unit < o.Unit
	}
	return k.Field < o.Field
}

// Cell is one table value. Absent marks a value the event did not carry.
type Cell struct {
	Value  string
	Absent bool
}

// Column is one keyed column. Cells[i] belongs to event i of its unit.
type Column struct {
	Key   Key
	Cells []Cell
}

// Table is the normalized form of a facts document.
type Table struct {
	EntityName string
	CIK        string
	Columns    []Column // sorted by Key
	rows       int
}

// Rows returns the number of rows: the longest event list of any unit.
func (t *Table) Rows() int {
	return t.rows
}

// Cell returns row i of column c, or an absent cell past its end.
func (c Column) Cell(i int) Cell {
	if i < len(c.Cells) {
		return c.Cells[i]
	}
	return Cell{Absent: true}
}

// Select returns the columns of one (taxonomy, tag, unit) triple.
func (t *Table) Select(taxonomy, tag, unit string) []Column {
	lo := sort.Search(len(t.Columns), func(i int) bool {
		return !t.Columns[i].Key.Less(Key{Taxonomy: taxonomy, Tag: tag, Unit: unit})
	})
	var out []Column
	for i := lo; i < len(t.Columns); i++ {
		k := t.Columns[i].Key
		if k.Taxonomy != taxonomy || k.Tag != tag || k.Unit != unit {
			break
		}
		out = append(out, t.Columns[i])
	}
	return out
}

// Normalize flattens doc into a table. Events missing start or frame get an
// absent cell; an event missing any other core field fails with a
// *SchemaError.
func Normalize(doc *Document) (*Table, error) {
	t := &Table{EntityName: doc.EntityName, CIK: doc.PaddedCIK()}

	for taxonomy, tags := range doc.Facts {
		for tag, concept := range tags {
			for unit, events := range concept.Units {
				cols, err := unitColumns(taxonomy, tag, unit, events)
				if err != nil {
					return nil, err
				}
				t.Columns = append(t.Columns, cols...)
				if len(events) > t.rows {
					t.rows = len(events)
				}
			}
		}
	}

	sort.Slice(t.Columns, func(i, j int) bool {
		return t.Columns[i].Key.Less(t.Columns[j].Key)
	})
	return t, nil
}

// unitColumns builds one column per field for the events of one unit.
func unitColumns(taxonomy, tag, unit string, events []Event) ([]Column, error) {
	fields := make(map[string]bool, len(CoreFields))
	for _, f := range CoreFields {
		fields[f] = true
	}

	for i, ev := range events {
		var missing []string
		for _, f := range CoreFields {
			if _, ok := ev[f]; !ok && !OptionalFields[f] {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return nil, &SchemaError{Taxonomy: taxonomy, Tag: tag, Unit: unit, Event: i, Missing: missing}
		}
		for f := range ev {
			fields[f] = true
		}
	}

	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	cols := make([]Column, 0, len(names))
	for _, f := range names {
		cells := make([]Cell, len(events))
		for i, ev := range events {
			cells[i] = cellOf(ev[f])
		}
		cols = append(cols, Column{
			Key:   Key{Taxonomy: taxonomy, Tag: tag, Unit: unit, Field: f},
			Cells: cells,
		})
	}
	return cols, nil
}

// cellOf renders a raw JSON value. Strings are unquoted, other values keep
// their literal text, and missing or null values are absent.
func cellOf(raw json.RawMessage) Cell {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Cell{Absent: true}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return Cell{Value: s}
		}
	}
	return Cell{Value: string(raw)}
}
