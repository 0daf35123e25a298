// Package testutil provides test doubles for the thumbnail pipeline:
// instrumented decoders, a mock cache, and image fixture helpers.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/killown/flux/internal/thumbtype"
)

// MockCache is a concurrency-safe map-backed cache with call counters and
// no eviction.
type MockCache struct {
	mu   sync.RWMutex
	data map[thumbtype.Key]*thumbtype.Artifact

	gets atomic.Int64
	hits atomic.Int64
	puts atomic.Int64
}

// NewMockCache constructs an empty in-memory cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[thumbtype.Key]*thumbtype.Artifact)}
}

// Get retrieves the artifact for key.
func (c *MockCache) Get(key thumbtype.Key) (*thumbtype.Artifact, bool) {
	c.gets.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	art, ok := c.data[key]
	if ok {
		c.hits.Add(1)
	}
	return art, ok
}

// Put stores the artifact for key.
func (c *MockCache) Put(key thumbtype.Key, art *thumbtype.Artifact) error {
	c.puts.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = art
	return nil
}

// Invalidate removes the entry for key.
func (c *MockCache) Invalidate(key thumbtype.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Gets returns the number of Get calls.
func (c *MockCache) Gets() int64 { return c.gets.Load() }

// Hits returns the number of Get calls that found an entry.
func (c *MockCache) Hits() int64 { return c.hits.Load() }

// Puts returns the number of Put calls.
func (c *MockCache) Puts() int64 { return c.puts.Load() }

// Len returns the number of stored entries.
func (c *MockCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// FakeDecoder is an instrumented Decoder for scheduler tests.
//
// It records total and peak concurrent decode counts, optionally blocks
// until released, and observes context cancellation while blocked.
type FakeDecoder struct {
	// Delay is slept (cancellably) on each decode when > 0 and Gate is nil.
	Delay time.Duration

	// Gate, when non-nil, blocks each decode until Release is called or the
	// context is cancelled.
	Gate chan struct{}

	// Err, when non-nil, is returned by every decode.
	Err error

	// FailPaths maps specific paths to decode errors, overriding Err.
	FailPaths map[string]error

	calls     atomic.Int64
	active    atomic.Int64
	maxActive atomic.Int64
	cancels   atomic.Int64

	mu    sync.Mutex
	order []string
}

// Decode returns a tiny artifact for path, honoring Gate, Delay, and Err.
func (d *FakeDecoder) Decode(ctx context.Context, path string, targetPx int) (*thumbtype.Artifact, error) {
	d.calls.Add(1)
	d.mu.Lock()
	d.order = append(d.order, path)
	d.mu.Unlock()
	active := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		prev := d.maxActive.Load()
		if active <= prev || d.maxActive.CompareAndSwap(prev, active) {
			break
		}
	}

	if d.Gate != nil {
		select {
		case <-d.Gate:
		case <-ctx.Done():
			d.cancels.Add(1)
			return nil, fmt.Errorf("%w: %v", thumbtype.ErrCancelled, ctx.Err())
		}
	} else if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			d.cancels.Add(1)
			return nil, fmt.Errorf("%w: %v", thumbtype.ErrCancelled, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		d.cancels.Add(1)
		return nil, fmt.Errorf("%w: %v", thumbtype.ErrCancelled, err)
	}
	if err, ok := d.FailPaths[path]; ok {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return Artifact(path, targetPx), nil
}

// Order returns the paths in the order decodes started.
func (d *FakeDecoder) Order() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

// Active returns the number of decodes currently running.
func (d *FakeDecoder) Active() int64 { return d.active.Load() }

// Release unblocks n gated decodes.
func (d *FakeDecoder) Release(n int) {
	for i := 0; i < n; i++ {
		d.Gate <- struct{}{}
	}
}

// Calls returns the total number of Decode calls.
func (d *FakeDecoder) Calls() int64 { return d.calls.Load() }

// MaxActive returns the peak number of concurrent Decode calls.
func (d *FakeDecoder) MaxActive() int64 { return d.maxActive.Load() }

// Cancels returns the number of decodes that observed cancellation.
func (d *FakeDecoder) Cancels() int64 { return d.cancels.Load() }

// Artifact builds a small artifact for tests.
func Artifact(path string, targetPx int) *thumbtype.Artifact {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	return &thumbtype.Artifact{
		Image:        img,
		SourceFormat: "png",
		Fingerprint:  thumbtype.Fingerprint{Path: path},
		TargetPx:     targetPx,
		GeneratedAt:  time.Now(),
	}
}

// SolidNRGBA returns a solid-colored raster.
func SolidNRGBA(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// PNGBytes encodes a solid-colored PNG.
func PNGBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, SolidNRGBA(width, height, color.NRGBA{R: 0x7f, G: 0x3f, B: 0x1f, A: 0xff})); err != nil {
		t.Fatalf("encoding png fixture: %v", err)
	}
	return buf.Bytes()
}

// JPEGBytes encodes a solid-colored JPEG.
func JPEGBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, SolidNRGBA(width, height, color.NRGBA{R: 0x10, G: 0x80, B: 0xc0, A: 0xff}), nil); err != nil {
		t.Fatalf("encoding jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes a fixture file through fsys.
func WriteFile(t *testing.T, fsys afero.Fs, path string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
}
