// Package cache provides keyed storage for generated thumbnails.
//
// Keys encode the source file's fingerprint (path, size, mtime) and the
// target pixel size, so a stale thumbnail is simply never looked up again:
// a changed file produces a different key and the old entry ages out.
//
// Implementations bound their own capacity. Storage-layer failures degrade
// to cache misses; they are never surfaced to thumbnail requesters.
package cache

import (
	"github.com/killown/flux/internal/thumbtype"
)

// Cache stores thumbnail artifacts by key.
//
// Implementations must be safe for concurrent use. Get must never block on
// eviction or persistence work beyond a short critical section.
type Cache interface {
	// Get retrieves the artifact for key.
	// Returns nil, false if the key is not cached.
	Get(key thumbtype.Key) (*thumbtype.Artifact, bool)

	// Put records or replaces the artifact for key, evicting older entries
	// if the cache is over budget. Callers must not assume the entry has
	// reached durable storage when Put returns.
	Put(key thumbtype.Key, art *thumbtype.Artifact) error

	// Invalidate removes the entry for key, if present.
	Invalidate(key thumbtype.Key) error
}
