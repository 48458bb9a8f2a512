// Command edgar downloads filings, company facts and bulk archives from
// SEC EDGAR.
package main

import (
	"os"

	"github.com/Sternrassler/sec-edgar-client/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
