package flux

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/killown/flux/cache"
	"github.com/killown/flux/decode"
)

// Pipeline defaults. The decode bound and thumbnail size match the file
// manager's behavior; the icon size control clamps to [32, 256], so target
// sizes validate against the same range.
const (
	defaultMaxDecodes  = 4
	defaultThumbnailPx = 256
	defaultCacheBytes  = 64 << 20
	minThumbnailPx     = 32
	maxThumbnailPx     = 1024
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxConcurrentDecodes bounds the number of decodes running in parallel.
// Defaults to 4.
func WithMaxConcurrentDecodes(n int) Option {
	return func(p *Pipeline) {
		p.maxDecodes = n
	}
}

// WithThumbnailSize sets the default bounding box edge for generated
// thumbnails, in pixels. Defaults to 256.
func WithThumbnailSize(px int) Option {
	return func(p *Pipeline) {
		p.targetPx = px
	}
}

// WithCache sets the thumbnail cache. Defaults to a 64MB in-memory LRU.
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// WithDecoder sets the decoder. Defaults to the extension dispatcher with
// image and video decoders registered.
func WithDecoder(d Decoder) Option {
	return func(p *Pipeline) {
		p.dec = d
	}
}

// WithFS sets the filesystem used for fingerprinting. Defaults to the OS
// filesystem. The decoder reads through its own filesystem; configure both
// when injecting a fake.
func WithFS(fsys afero.Fs) Option {
	return func(p *Pipeline) {
		p.fsys = fsys
	}
}

// WithDecodeTimeout bounds the wall-clock time of a single decode. Zero, the
// default, imposes no timeout: a pathological file may hold a worker slot
// until cancelled.
func WithDecodeTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.decodeTimeout = d
	}
}

// WithLogger sets the logger for pipeline events. If not set, logging is
// disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// applyDefaults fills in the collaborators not set by options.
func (p *Pipeline) applyDefaults() {
	if p.cache == nil {
		p.cache = cache.NewMemory(defaultCacheBytes)
	}
	if p.fsys == nil {
		p.fsys = afero.NewOsFs()
	}
	if p.dec == nil {
		p.dec = decode.NewByExt(decode.ByExtWithImage(decode.NewImage(decode.WithFS(p.fsys))))
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// submitConfig carries per-submission settings.
type submitConfig struct {
	priority Priority
	targetPx int
}

// SubmitOption configures a single Submit call.
type SubmitOption func(*submitConfig)

// SubmitWithPriority sets the request's queue priority.
// Defaults to PriorityNormal.
func SubmitWithPriority(pr Priority) SubmitOption {
	return func(cfg *submitConfig) {
		cfg.priority = pr
	}
}

// SubmitWithSize overrides the pipeline's default thumbnail size for this
// request.
func SubmitWithSize(px int) SubmitOption {
	return func(cfg *submitConfig) {
		cfg.targetPx = px
	}
}
