package decode

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killown/flux/internal/testutil"
	"github.com/killown/flux/internal/thumbtype"
)

func TestImageDecodeDownscales(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "wide.png", testutil.PNGBytes(t, 100, 50))
	dec := NewImage(WithFS(fsys))

	art, err := dec.Decode(context.Background(), "wide.png", 32)
	require.NoError(t, err)

	bounds := art.Bounds()
	assert.Equal(t, 32, bounds.Dx())
	assert.Equal(t, 16, bounds.Dy(), "aspect ratio must be preserved")
	assert.Equal(t, "png", art.SourceFormat)
	assert.Equal(t, 32, art.TargetPx)
	assert.Equal(t, "wide.png", art.Fingerprint.Path)
}

func TestImageDecodeTallImage(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "tall.png", testutil.PNGBytes(t, 40, 200))
	dec := NewImage(WithFS(fsys))

	art, err := dec.Decode(context.Background(), "tall.png", 50)
	require.NoError(t, err)

	bounds := art.Bounds()
	assert.Equal(t, 10, bounds.Dx())
	assert.Equal(t, 50, bounds.Dy())
}

func TestImageDecodeDoesNotUpscale(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "small.png", testutil.PNGBytes(t, 16, 8))
	dec := NewImage(WithFS(fsys))

	art, err := dec.Decode(context.Background(), "small.png", 256)
	require.NoError(t, err)

	bounds := art.Bounds()
	assert.Equal(t, 16, bounds.Dx(), "images within the box keep their size")
	assert.Equal(t, 8, bounds.Dy())
}

func TestImageDecodeJPEG(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "photo.jpg", testutil.JPEGBytes(t, 64, 64))
	dec := NewImage(WithFS(fsys))

	art, err := dec.Decode(context.Background(), "photo.jpg", 32)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", art.SourceFormat)
}

func TestImageDecodeMissingFile(t *testing.T) {
	t.Parallel()

	dec := NewImage(WithFS(afero.NewMemMapFs()))

	_, err := dec.Decode(context.Background(), "nope.png", 64)
	require.ErrorIs(t, err, thumbtype.ErrIO)
}

func TestImageDecodeUnrecognizedContent(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "fake.png", []byte("this is a text file"))
	dec := NewImage(WithFS(fsys))

	_, err := dec.Decode(context.Background(), "fake.png", 64)
	require.ErrorIs(t, err, thumbtype.ErrUnsupportedFormat)
}

func TestImageDecodeTruncatedFile(t *testing.T) {
	t.Parallel()

	full := testutil.PNGBytes(t, 64, 64)
	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "cut.png", full[:len(full)/2])
	dec := NewImage(WithFS(fsys))

	_, err := dec.Decode(context.Background(), "cut.png", 64)
	require.ErrorIs(t, err, thumbtype.ErrCorruptFile)
}

func TestImageDecodeCancelledContext(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "img.png", testutil.PNGBytes(t, 64, 64))
	dec := NewImage(WithFS(fsys))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dec.Decode(ctx, "img.png", 64)
	require.ErrorIs(t, err, thumbtype.ErrCancelled)
}

func TestImageDecodePixelLimit(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "big.png", testutil.PNGBytes(t, 100, 100))
	dec := NewImage(WithFS(fsys), WithMaxPixels(50*50))

	_, err := dec.Decode(context.Background(), "big.png", 64)
	require.ErrorIs(t, err, thumbtype.ErrUnsupportedFormat)
}

func TestImageDecodeInvalidTarget(t *testing.T) {
	t.Parallel()

	dec := NewImage(WithFS(afero.NewMemMapFs()))
	_, err := dec.Decode(context.Background(), "x.png", 0)
	require.Error(t, err)
}

func TestFitWithin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		w, h, target int
		wantW, wantH int
	}{
		{"landscape", 400, 200, 100, 100, 50},
		{"portrait", 200, 400, 100, 50, 100},
		{"square", 300, 300, 100, 100, 100},
		{"fits already", 80, 60, 100, 80, 60},
		{"extreme ratio floors at one", 10000, 10, 100, 100, 1},
		{"degenerate", 0, 0, 100, 1, 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w, h := fitWithin(tc.w, tc.h, tc.target)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}
