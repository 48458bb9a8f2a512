// Package facts reshapes a company facts document (taxonomy → tag → unit →
// events) into a flat table whose columns are keyed by
// (taxonomy, tag, unit, field) and whose rows are event ordinals.
package facts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
)

// Document is one company's facts document.
type Document struct {
	CIK        CIK                           `json:"cik"`
	EntityName string                        `json:"entityName"`
	Facts      map[string]map[string]Concept `json:"facts"`
}

// Concept is one tag of a taxonomy.
type Concept struct {
	Label       string             `json:"label"`
	Description string             `json:"description"`
	Units       map[string][]Event `json:"units"`
}

// Event is one disclosure, kept raw so missing fields can be told apart
// from zero values.
type Event map[string]json.RawMessage

// CIK is a company identifier as found in facts documents, where it appears
// either as a JSON number or as a zero-padded string.
type CIK string

// UnmarshalJSON accepts both encodings.
func (c *CIK) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = CIK(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("cik: %w", err)
	}
	*c = CIK(n.String())
	return nil
}

// Decode reads a facts document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode facts document: %w", err)
	}
	return &doc, nil
}

// PaddedCIK returns the document CIK zero-padded to 10 digits, or "" when
// the document carries none.
func (d *Document) PaddedCIK() string {
	cik := string(d.CIK)
	if !filing.IsNumeric(cik) || len(cik) > filing.CIKLength {
		return ""
	}
	return filing.PadCIK(cik)
}
