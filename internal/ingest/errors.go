package ingest

import "errors"

var (
	// ErrNotFound reports that the ingestion directory does not exist.
	// Fatal to the run.
	ErrNotFound = errors.New("path not found")

	// ErrInvalidInput reports malformed configuration, a path that is not
	// a directory or a bad chunk size and overlap combination. Fatal,
	// never retried.
	ErrInvalidInput = errors.New("invalid input")
)
