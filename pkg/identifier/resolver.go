// Package identifier resolves caller-supplied company references (ticker
// symbols or CIKs) to canonical 10-digit CIKs. It is the single point where
// company input is validated before any request is built from it.
package identifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
)

// Getter fetches and decodes a JSON document.
type Getter interface {
	GetJSON(ctx context.Context, url, host string, v any) error
}

// Entry is one directory row.
type Entry struct {
	CIK    string
	Symbol string
	Name   string
}

// Resolver maps symbols, CIKs and names onto each other. It is read-only
// after construction and safe for concurrent use.
type Resolver struct {
	symbolToCIK map[string]string
	cikToSymbol map[string]string
	cikToName   map[string]string
}

// directory is the shape of company_tickers_exchange.json.
type directory struct {
	Fields []string            `json:"fields"`
	Data   [][]json.RawMessage `json:"data"`
}

// Load fetches the company directory with one request and builds a resolver.
func Load(ctx context.Context, getter Getter, e endpoint.Endpoints) (*Resolver, error) {
	e = e.WithDefaults()

	var dir directory
	if err := getter.GetJSON(ctx, e.Directory(), endpoint.HostWWW, &dir); err != nil {
		return nil, fmt.Errorf("load company directory: %w", err)
	}

	entries, err := dir.entries()
	if err != nil {
		return nil, err
	}

	r := New(entries)
	logger := logging.NewLogger("identifier")
	logger.Debug().
		Int("companies", len(r.cikToSymbol)).
		Int("symbols", len(r.symbolToCIK)).
		Msg("Company directory loaded")
	return r, nil
}

func (d directory) entries() ([]Entry, error) {
	index := make(map[string]int, len(d.Fields))
	for i, f := range d.Fields {
		index[f] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{"cik", "ticker", "name"} {
		i, ok := index[name]
		if !ok {
			return nil, &filing.ValidationError{Field: "directory", Value: name, Reason: "field missing from response"}
		}
		cols = append(cols, i)
	}

	entries := make([]Entry, 0, len(d.Data))
	for n, row := range d.Data {
		cells := make([]string, len(cols))
		for j, col := range cols {
			if col >= len(row) {
				return nil, &filing.ValidationError{
					Field:  "directory",
					Value:  fmt.Sprint(n),
					Reason: fmt.Sprintf("row has %d cells, want more than %d", len(row), col),
				}
			}
			cells[j] = cellString(row[col])
		}
		entries = append(entries, Entry{CIK: cells[0], Symbol: cells[1], Name: cells[2]})
	}
	return entries, nil
}

// cellString renders a JSON string or number cell as text.
func cellString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

// New builds a resolver from directory entries. CIKs are zero-padded and
// symbols upper-cased. When a company lists several symbols, the first one
// becomes its display symbol.
func New(entries []Entry) *Resolver {
	r := &Resolver{
		symbolToCIK: make(map[string]string, len(entries)),
		cikToSymbol: make(map[string]string, len(entries)),
		cikToName:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		cik := filing.PadCIK(strings.TrimSpace(e.CIK))
		if !filing.IsNumeric(cik) || len(cik) != filing.CIKLength {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(e.Symbol))

		if symbol != "" {
			r.symbolToCIK[symbol] = cik
		}
		if _, ok := r.cikToSymbol[cik]; !ok && symbol != "" {
			r.cikToSymbol[cik] = symbol
		}
		if _, ok := r.cikToName[cik]; !ok {
			r.cikToName[cik] = strings.TrimSpace(e.Name)
		}
	}
	return r
}

// Resolve normalizes a symbol or CIK to a canonical CIK. Numeric input of at
// most 10 digits is treated as a CIK and must be known; anything else is
// looked up as a symbol, case-insensitively.
func (r *Resolver) Resolve(symbolOrCIK string) (string, error) {
	input := strings.ToUpper(strings.TrimSpace(symbolOrCIK))
	if input == "" {
		return "", &filing.ValidationError{Field: "company", Reason: "symbol or CIK must not be blank"}
	}

	if filing.IsNumeric(input) {
		if len(input) > filing.CIKLength {
			return "", &filing.ValidationError{
				Field:  "cik",
				Value:  input,
				Reason: fmt.Sprintf("must be at most %d digits", filing.CIKLength),
			}
		}
		cik := filing.PadCIK(input)
		if _, ok := r.cikToName[cik]; !ok {
			return "", &filing.ValidationError{Field: "cik", Value: input, Reason: "not present in the company directory"}
		}
		return cik, nil
	}

	cik, ok := r.symbolToCIK[input]
	if !ok {
		return "", &filing.ValidationError{Field: "symbol", Value: input, Reason: "cannot be mapped to a CIK"}
	}
	return cik, nil
}

// Symbol returns the display symbol of a CIK.
func (r *Resolver) Symbol(cik string) (string, bool) {
	s, ok := r.cikToSymbol[cik]
	return s, ok
}

// Name returns the company name of a CIK.
func (r *Resolver) Name(cik string) (string, bool) {
	n, ok := r.cikToName[cik]
	return n, ok
}

// Len returns the number of known companies.
func (r *Resolver) Len() int {
	return len(r.cikToName)
}
