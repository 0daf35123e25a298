package cache

import (
	"errors"

	"github.com/killown/flux/internal/thumbtype"
)

// Layered composes a fast primary cache over a larger secondary one,
// typically memory over disk. Hits in the secondary are promoted to the
// primary. Writes go to both layers.
type Layered struct {
	primary   Cache
	secondary Cache
}

// NewLayered creates a two-layer cache. Both layers are required.
func NewLayered(primary, secondary Cache) (*Layered, error) {
	if primary == nil || secondary == nil {
		return nil, errors.New("cache: layered cache requires two layers")
	}
	return &Layered{primary: primary, secondary: secondary}, nil
}

// Get checks the primary layer, then the secondary, promoting hits.
func (c *Layered) Get(key thumbtype.Key) (*thumbtype.Artifact, bool) {
	if art, ok := c.primary.Get(key); ok {
		return art, true
	}
	art, ok := c.secondary.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.primary.Put(key, art) //nolint:errcheck // promotion is best-effort
	return art, true
}

// Put writes to both layers. The secondary write is best-effort: its error is
// returned for logging but the entry is still served from the primary.
func (c *Layered) Put(key thumbtype.Key, art *thumbtype.Artifact) error {
	primaryErr := c.primary.Put(key, art)
	secondaryErr := c.secondary.Put(key, art)
	return errors.Join(primaryErr, secondaryErr)
}

// Invalidate removes the entry from both layers.
func (c *Layered) Invalidate(key thumbtype.Key) error {
	return errors.Join(c.primary.Invalidate(key), c.secondary.Invalidate(key))
}
