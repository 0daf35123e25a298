package flux

import (
	"github.com/killown/flux/internal/thumbtype"
)

// Re-export types from internal/thumbtype for the public API.
type (
	// Artifact is a generated thumbnail.
	Artifact = thumbtype.Artifact

	// Fingerprint identifies a specific version of a file's content.
	Fingerprint = thumbtype.Fingerprint

	// Key identifies a thumbnail: one file version at one target size.
	Key = thumbtype.Key

	// Priority orders queued thumbnail requests.
	Priority = thumbtype.Priority
)

// Request priorities, highest first in the queue.
const (
	PriorityVisible    = thumbtype.PriorityVisible
	PriorityNormal     = thumbtype.PriorityNormal
	PriorityBackground = thumbtype.PriorityBackground
)

// KeyFor derives the cache key for a fingerprint at the given target size.
func KeyFor(fp Fingerprint, targetPx int) Key {
	return thumbtype.KeyFor(fp, targetPx)
}

// Sentinel errors re-exported from internal/thumbtype.
var (
	// ErrUnsupportedFormat is returned when no decoder handles the file type.
	ErrUnsupportedFormat = thumbtype.ErrUnsupportedFormat

	// ErrCorruptFile is returned when a decoder fails mid-parse.
	ErrCorruptFile = thumbtype.ErrCorruptFile

	// ErrIO is returned for read failures and files that changed mid-decode.
	ErrIO = thumbtype.ErrIO

	// ErrCancelled is the terminal outcome of a cancelled request.
	ErrCancelled = thumbtype.ErrCancelled

	// ErrClosed is returned when submitting to a closed pipeline.
	ErrClosed = thumbtype.ErrClosed
)
