// Package ingest holds what the import paths share.
package ingest

import "errors"

// ErrInvalidInput marks an import rejected because its payload could not be
// parsed, as opposed to a failure storing it.
var ErrInvalidInput = errors.New("invalid import data")

// Result holds the outcome of an import.
type Result struct {
	Source           string `json:"source"`
	SessionsReceived int    `json:"sessions_received"`
	SessionsInserted int    `json:"sessions_inserted"`
	SessionsSkipped  int    `json:"sessions_skipped"`
	SetsReceived     int    `json:"sets_received"`
	SetsInserted     int    `json:"sets_inserted"`
	ProgramsReceived int    `json:"programs_received,omitempty"`
	DryRun           bool   `json:"dry_run,omitempty"`
	Message          string `json:"message,omitempty"`
}
