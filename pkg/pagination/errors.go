package pagination

import (
	"fmt"
	"sort"
	"strings"
)

// IntegrityError reports a page whose shape violates the parallel-array
// invariant. It is fatal for the company being walked.
type IntegrityError struct {
	URL     string
	Reason  string
	Lengths map[string]int
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if len(e.Lengths) == 0 {
		return fmt.Sprintf("integrity error in %s: %s", e.URL, e.Reason)
	}
	names := make([]string, 0, len(e.Lengths))
	for name := range e.Lengths {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, e.Lengths[name]))
	}
	return fmt.Sprintf("integrity error in %s: %s (%s)", e.URL, e.Reason, strings.Join(parts, " "))
}
