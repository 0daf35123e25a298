package decode

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"

	"github.com/killown/flux/internal/thumbtype"
)

const (
	// defaultFrameAt is how far into the video the preview frame is taken,
	// skipping black lead-in frames.
	defaultFrameAt = time.Second

	// defaultMaxProcs bounds concurrent ffmpeg processes. Frame extraction
	// is much heavier than an image decode, so the budget is separate from
	// the pipeline's decode limit.
	defaultMaxProcs = 2
)

// Video extracts a preview frame from video files using ffmpeg.
//
// When ffmpeg is not installed the decoder reports ErrUnsupportedFormat, and
// video files simply render without thumbnails.
type Video struct {
	fs      afero.Fs
	ffmpeg  string
	frameAt time.Duration
	scaler  xdraw.Scaler
	procs   *semaphore.Weighted

	lookupOnce sync.Once
	resolved   string
	lookupErr  error
}

// VideoOption configures a Video decoder.
type VideoOption func(*Video)

// VideoWithFS sets the filesystem used for fingerprinting. ffmpeg itself
// always reads through the OS, so non-OS filesystems are only useful in tests.
func VideoWithFS(fsys afero.Fs) VideoOption {
	return func(d *Video) {
		d.fs = fsys
	}
}

// VideoWithFFmpeg sets the ffmpeg binary name or path. Defaults to "ffmpeg".
func VideoWithFFmpeg(path string) VideoOption {
	return func(d *Video) {
		d.ffmpeg = path
	}
}

// VideoWithFrameAt sets the timestamp of the extracted frame.
func VideoWithFrameAt(at time.Duration) VideoOption {
	return func(d *Video) {
		d.frameAt = at
	}
}

// VideoWithMaxProcs bounds concurrent ffmpeg processes.
func VideoWithMaxProcs(n int) VideoOption {
	return func(d *Video) {
		if n < 1 {
			n = 1
		}
		d.procs = semaphore.NewWeighted(int64(n))
	}
}

// NewVideo creates a video frame decoder.
func NewVideo(opts ...VideoOption) *Video {
	d := &Video{
		fs:      afero.NewOsFs(),
		ffmpeg:  "ffmpeg",
		frameAt: defaultFrameAt,
		scaler:  xdraw.CatmullRom,
		procs:   semaphore.NewWeighted(defaultMaxProcs),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode extracts and scales a preview frame from the video at path.
func (d *Video) Decode(ctx context.Context, path string, targetPx int) (*thumbtype.Artifact, error) {
	if targetPx <= 0 {
		return nil, fmt.Errorf("decode: target size must be > 0, got %d", targetPx)
	}

	fp, err := thumbtype.Stat(d.fs, path)
	if err != nil {
		return nil, err
	}

	ffmpeg, err := d.resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not available: %v", thumbtype.ErrUnsupportedFormat, err)
	}

	if err := d.procs.Acquire(ctx, 1); err != nil {
		return nil, classify(ctx, err)
	}
	defer d.procs.Release(1)

	var out, errOut bytes.Buffer
	//nolint:gosec // path comes from the view controller, ffmpeg path from config
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", d.frameAt.Seconds()),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, classify(ctx, err)
		}
		msg := strings.TrimSpace(errOut.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: ffmpeg: %s", thumbtype.ErrCorruptFile, msg)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no frame", thumbtype.ErrCorruptFile)
	}

	frame, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding extracted frame: %v", thumbtype.ErrCorruptFile, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, err)
	}

	return &thumbtype.Artifact{
		Image:        scaleToFit(frame, targetPx, d.scaler),
		SourceFormat: "video",
		Fingerprint:  fp,
		TargetPx:     targetPx,
		GeneratedAt:  time.Now(),
	}, nil
}

func (d *Video) resolve() (string, error) {
	d.lookupOnce.Do(func() {
		d.resolved, d.lookupErr = exec.LookPath(d.ffmpeg)
	})
	return d.resolved, d.lookupErr
}
