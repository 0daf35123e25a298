package decode

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/killown/flux/internal/thumbtype"
)

// Extensions routed to each decoder by default. The file manager guesses
// content types from filenames, so the dispatcher does the same.
var (
	imageExts = []string{"png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"}
	videoExts = []string{"mp4", "mkv", "webm", "avi", "mov", "m4v"}
)

// ByExt routes decode calls to a decoder based on file extension.
// Unknown extensions report ErrUnsupportedFormat.
type ByExt struct {
	decoders map[string]Decoder
}

// ByExtOption configures a ByExt dispatcher.
type ByExtOption func(*byExtConfig)

type byExtConfig struct {
	image Decoder
	video Decoder
	extra map[string]Decoder
}

// ByExtWithImage replaces the default image decoder. Nil disables image
// thumbnails.
func ByExtWithImage(d Decoder) ByExtOption {
	return func(cfg *byExtConfig) {
		cfg.image = d
	}
}

// ByExtWithVideo replaces the default video decoder. Nil disables video
// thumbnails.
func ByExtWithVideo(d Decoder) ByExtOption {
	return func(cfg *byExtConfig) {
		cfg.video = d
	}
}

// ByExtWith routes an additional extension (without dot) to a decoder.
func ByExtWith(ext string, d Decoder) ByExtOption {
	return func(cfg *byExtConfig) {
		cfg.extra[normalizeExt(ext)] = d
	}
}

// NewByExt creates a dispatcher with image and video decoders registered for
// the common raster and video extensions.
func NewByExt(opts ...ByExtOption) *ByExt {
	cfg := &byExtConfig{
		image: NewImage(),
		video: NewVideo(),
		extra: make(map[string]Decoder),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	d := &ByExt{decoders: make(map[string]Decoder)}
	if cfg.image != nil {
		for _, ext := range imageExts {
			d.decoders[ext] = cfg.image
		}
	}
	if cfg.video != nil {
		for _, ext := range videoExts {
			d.decoders[ext] = cfg.video
		}
	}
	for ext, dec := range cfg.extra {
		if dec == nil {
			delete(d.decoders, ext)
			continue
		}
		d.decoders[ext] = dec
	}
	return d
}

// Supports reports whether a decoder is registered for the path's extension.
func (d *ByExt) Supports(path string) bool {
	_, ok := d.decoders[extOf(path)]
	return ok
}

// Decode dispatches to the decoder registered for the path's extension.
func (d *ByExt) Decode(ctx context.Context, path string, targetPx int) (*thumbtype.Artifact, error) {
	ext := extOf(path)
	dec, ok := d.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %q", thumbtype.ErrUnsupportedFormat, ext)
	}
	return dec.Decode(ctx, path, targetPx)
}

func extOf(path string) string {
	return normalizeExt(filepath.Ext(path))
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
