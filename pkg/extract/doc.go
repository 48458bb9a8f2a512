// Package extract turns a bulk company facts archive into one normalized
// table per company.
//
// Members are processed in parallel by a bounded worker pool. Each member
// has its own decoder and its own output file, so workers share nothing but
// the read-only identifier directory and the run counters. A malformed
// member is counted and skipped; a schema violation means the archive format
// changed and cancels the whole run.
//
// Outputs are written to a temporary file and renamed into place, which
// makes a re-run over the same archive skip every company completed before.
package extract
