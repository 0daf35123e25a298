package decode

import (
	"context"
	"os/exec"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killown/flux/internal/testutil"
	"github.com/killown/flux/internal/thumbtype"
)

func TestVideoDecodeMissingBinary(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "movie.mp4", []byte("not really a video"))
	dec := NewVideo(VideoWithFS(fsys), VideoWithFFmpeg("definitely-not-ffmpeg-4f2a"))

	_, err := dec.Decode(context.Background(), "movie.mp4", 256)
	require.ErrorIs(t, err, thumbtype.ErrUnsupportedFormat)
}

func TestVideoDecodeMissingFile(t *testing.T) {
	t.Parallel()

	dec := NewVideo(VideoWithFS(afero.NewMemMapFs()))

	_, err := dec.Decode(context.Background(), "absent.mp4", 256)
	require.ErrorIs(t, err, thumbtype.ErrIO)
}

func TestVideoDecodeInvalidTarget(t *testing.T) {
	t.Parallel()

	dec := NewVideo(VideoWithFS(afero.NewMemMapFs()))
	_, err := dec.Decode(context.Background(), "clip.mp4", -1)
	require.Error(t, err)
}

func TestVideoDecodeNoFrameOutput(t *testing.T) {
	t.Parallel()

	// "true" exits successfully without writing a frame, exercising the
	// empty-output path without requiring ffmpeg.
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("no 'true' binary in PATH")
	}

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "movie.mp4", []byte("payload"))
	dec := NewVideo(VideoWithFS(fsys), VideoWithFFmpeg("true"))

	_, err := dec.Decode(context.Background(), "movie.mp4", 256)
	require.ErrorIs(t, err, thumbtype.ErrCorruptFile)
}

func TestVideoDecodeCancelledContext(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("no 'true' binary in PATH")
	}

	fsys := afero.NewMemMapFs()
	testutil.WriteFile(t, fsys, "movie.mp4", []byte("payload"))
	dec := NewVideo(VideoWithFS(fsys), VideoWithFFmpeg("true"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dec.Decode(ctx, "movie.mp4", 256)
	require.ErrorIs(t, err, thumbtype.ErrCancelled)
}

func TestVideoDecodeCorruptInput(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	fsys := afero.NewOsFs()
	dir := t.TempDir()
	path := dir + "/broken.mp4"
	testutil.WriteFile(t, fsys, path, []byte("garbage that ffmpeg cannot demux"))
	dec := NewVideo()

	_, err := dec.Decode(context.Background(), path, 256)
	require.ErrorIs(t, err, thumbtype.ErrCorruptFile)
}

func TestVideoMaxProcsFloor(t *testing.T) {
	t.Parallel()

	dec := NewVideo(VideoWithMaxProcs(0))
	assert.NotNil(t, dec.procs, "a zero proc budget falls back to one")
}
