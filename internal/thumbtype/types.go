// Package thumbtype holds the shared types of the thumbnail pipeline:
// file fingerprints, cache keys, and generated artifacts. The public API
// re-exports these from the root flux package.
package thumbtype

import (
	"fmt"
	"image"
	"time"

	"github.com/opencontainers/go-digest"
)

// Fingerprint identifies a specific version of a file's content.
//
// Path, size, and modification time together act as a cheap content-freshness
// check: if any of them changed, cached thumbnails for the file are stale.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Matches reports whether two fingerprints refer to the same file version.
func (f Fingerprint) Matches(o Fingerprint) bool {
	return f.Path == o.Path && f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}

// Key identifies a thumbnail: one file version at one target size.
//
// Keys are digest strings of the form "sha256:<hex>", derived
// deterministically from the fingerprint and target size. Two requests with
// equal keys describe the same unit of work.
type Key string

// KeyFor derives the cache key for a fingerprint at the given target size.
func KeyFor(fp Fingerprint, targetPx int) Key {
	d := digest.Canonical.Digester()
	fmt.Fprintf(d.Hash(), "%s\x00%d\x00%d\x00%d", fp.Path, fp.Size, fp.ModTime.UnixNano(), targetPx)
	return Key(d.Digest())
}

// String returns the full digest form of the key.
func (k Key) String() string { return string(k) }

// Encoded returns the hex portion of the key, used for on-disk layout.
func (k Key) Encoded() string {
	return string(digest.Digest(k).Encoded())
}

// Priority orders queued thumbnail requests. Higher values dequeue first.
type Priority int

const (
	// PriorityBackground is for speculative work such as directory prefetch.
	PriorityBackground Priority = iota
	// PriorityNormal is for files near the viewport.
	PriorityNormal
	// PriorityVisible is for files currently visible in the viewport.
	PriorityVisible
)

// Artifact is a generated thumbnail.
//
// The pixel buffer is owned by the cache once committed; consumers must treat
// it as read-only.
type Artifact struct {
	// Image is the scaled thumbnail raster.
	Image *image.NRGBA

	// SourceFormat names the decoded source format ("png", "jpeg", ...).
	SourceFormat string

	// Fingerprint is the file identity the thumbnail was generated from.
	Fingerprint Fingerprint

	// TargetPx is the bounding box edge the thumbnail was scaled to fit.
	TargetPx int

	// GeneratedAt records when the decode completed.
	GeneratedAt time.Time
}

// SizeBytes returns the approximate memory footprint of the artifact,
// used for cache budget accounting.
func (a *Artifact) SizeBytes() int64 {
	if a == nil || a.Image == nil {
		return 0
	}
	const entryOverhead = 256
	return int64(len(a.Image.Pix)) + entryOverhead
}

// Bounds returns the pixel bounds of the thumbnail raster.
func (a *Artifact) Bounds() image.Rectangle {
	if a == nil || a.Image == nil {
		return image.Rectangle{}
	}
	return a.Image.Bounds()
}
