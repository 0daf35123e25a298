// Package decode turns files into thumbnail artifacts.
//
// The Image decoder handles raster formats via the stdlib and x/image
// decoders; the Video decoder extracts a frame through ffmpeg. ByExt routes
// between them by file extension, mirroring how the file manager guesses
// content types from filenames.
//
// All decoders support cooperative cancellation: the context is checked at
// I/O boundaries and between pipeline stages, so an abandoned decode releases
// its worker slot promptly.
package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"

	xdraw "golang.org/x/image/draw"

	"github.com/killown/flux/internal/thumbtype"
)

// Decoder produces a thumbnail artifact from a file.
type Decoder interface {
	// Decode reads the file at path and returns a thumbnail scaled to fit
	// within a targetPx bounding box. Failures are classified as one of
	// thumbtype.ErrUnsupportedFormat, ErrCorruptFile, ErrIO, or ErrCancelled.
	Decode(ctx context.Context, path string, targetPx int) (*thumbtype.Artifact, error)
}

// classify maps a raw decode failure onto the pipeline error taxonomy.
func classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", thumbtype.ErrCancelled, err)
	case errors.Is(err, image.ErrFormat):
		return fmt.Errorf("%w: %v", thumbtype.ErrUnsupportedFormat, err)
	case isIOErr(err):
		return fmt.Errorf("%w: %v", thumbtype.ErrIO, err)
	default:
		// The decoder recognized the format but failed mid-parse.
		return fmt.Errorf("%w: %v", thumbtype.ErrCorruptFile, err)
	}
}

func isIOErr(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}

// ctxReader aborts reads once the context is done, so cancellation surfaces
// inside the image decoders at the next I/O boundary.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// fitWithin returns dimensions scaled to fit a target bounding box while
// preserving aspect ratio. Images already within the box are not upscaled.
func fitWithin(width, height, targetPx int) (int, int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	if width <= targetPx && height <= targetPx {
		return width, height
	}
	if width >= height {
		return targetPx, max(1, height*targetPx/width)
	}
	return max(1, width*targetPx/height), targetPx
}

// scaleToFit renders src into an NRGBA raster fitting the target box.
func scaleToFit(src image.Image, targetPx int, scaler xdraw.Scaler) *image.NRGBA {
	bounds := src.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), targetPx)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	return dst
}
