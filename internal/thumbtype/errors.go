package thumbtype

import "errors"

// Sentinel errors shared across the pipeline. Decode failures are classified
// into exactly one of these so callers can branch with errors.Is.
var (
	// ErrUnsupportedFormat is returned when no decoder handles the file type.
	ErrUnsupportedFormat = errors.New("flux: unsupported format")

	// ErrCorruptFile is returned when a decoder fails mid-parse.
	ErrCorruptFile = errors.New("flux: corrupt file")

	// ErrIO is returned for read failures, permission errors, vanished files,
	// and files that changed while a decode was in flight.
	ErrIO = errors.New("flux: io error")

	// ErrCancelled is returned when a request was cancelled before a result
	// was produced. It is a terminal outcome, not a user-visible failure.
	ErrCancelled = errors.New("flux: cancelled")

	// ErrClosed is returned when submitting to a closed pipeline.
	ErrClosed = errors.New("flux: pipeline closed")
)
