package facts

import (
	"fmt"
	"strings"
)

// SchemaError reports an event missing a required column. It means the
// upstream format changed in a way the normalizer does not understand, so
// callers treat it as fatal for the whole run.
type SchemaError struct {
	Taxonomy string
	Tag      string
	Unit     string
	Event    int
	Missing  []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s/%s/%s event %d is missing %s",
		e.Taxonomy, e.Tag, e.Unit, e.Event, strings.Join(e.Missing, ", "))
}
