package decode

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	// Raster formats the pipeline decodes out of the box.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spf13/afero"
	xdraw "golang.org/x/image/draw"

	"github.com/killown/flux/internal/thumbtype"
)

// defaultMaxPixels bounds decoded source dimensions (width * height).
// A 64-megapixel image expands to 256MB of NRGBA; anything past that is
// rejected rather than decoded into memory.
const defaultMaxPixels = 64 << 20

// Image decodes raster files into thumbnails.
type Image struct {
	fs        afero.Fs
	scaler    xdraw.Scaler
	maxPixels int64
}

// ImageOption configures an Image decoder.
type ImageOption func(*Image)

// WithFS sets the filesystem used for reads. Defaults to the OS filesystem.
func WithFS(fsys afero.Fs) ImageOption {
	return func(d *Image) {
		d.fs = fsys
	}
}

// WithScaler sets the resampling kernel. Defaults to Catmull-Rom.
func WithScaler(s xdraw.Scaler) ImageOption {
	return func(d *Image) {
		d.scaler = s
	}
}

// WithMaxPixels limits source dimensions (width * height) accepted for
// decoding. Values <= 0 disable the limit.
func WithMaxPixels(n int64) ImageOption {
	return func(d *Image) {
		d.maxPixels = n
	}
}

// NewImage creates a raster image decoder.
func NewImage(opts ...ImageOption) *Image {
	d := &Image{
		fs:        afero.NewOsFs(),
		scaler:    xdraw.CatmullRom,
		maxPixels: defaultMaxPixels,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads, decodes, and scales the image at path.
func (d *Image) Decode(ctx context.Context, path string, targetPx int) (*thumbtype.Artifact, error) {
	if targetPx <= 0 {
		return nil, fmt.Errorf("decode: target size must be > 0, got %d", targetPx)
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, err)
	}

	fp, err := thumbtype.Stat(d.fs, path)
	if err != nil {
		return nil, err
	}

	f, err := d.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", thumbtype.ErrIO, path, err)
	}
	defer f.Close()

	// Sniff dimensions first so oversized images are rejected before the
	// full pixel buffer is allocated.
	cfg, _, err := image.DecodeConfig(&ctxReader{ctx: ctx, r: f})
	if err != nil {
		return nil, classify(ctx, err)
	}
	if d.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > d.maxPixels {
		return nil, fmt.Errorf("%w: image %dx%d exceeds pixel limit", thumbtype.ErrUnsupportedFormat, cfg.Width, cfg.Height)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek %s: %v", thumbtype.ErrIO, path, err)
	}

	src, format, err := image.Decode(&ctxReader{ctx: ctx, r: f})
	if err != nil {
		return nil, classify(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, err)
	}

	return &thumbtype.Artifact{
		Image:        scaleToFit(src, targetPx, d.scaler),
		SourceFormat: format,
		Fingerprint:  fp,
		TargetPx:     targetPx,
		GeneratedAt:  time.Now(),
	}, nil
}
