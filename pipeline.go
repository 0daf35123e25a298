package flux

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/killown/flux/cache"
	"github.com/killown/flux/internal/thumbtype"
)

// Decoder produces a thumbnail artifact from a file. The decode package
// provides implementations; the pipeline only needs this one method.
type Decoder interface {
	Decode(ctx context.Context, path string, targetPx int) (*Artifact, error)
}

// Pipeline is the throttled thumbnail scheduler.
//
// Submissions are de-duplicated by key: concurrent requests for the same file
// version and size share a single decode, and its one result fans out to
// every attached handle. At most the configured number of decodes run
// concurrently; further work queues by priority, then recency. Submission and
// cancellation never block on decode work.
//
// A failed decode fails only the requesters attached to its key. The pipeline
// does not retry; a re-render naturally re-submits.
type Pipeline struct {
	cache         cache.Cache
	dec           Decoder
	fsys          afero.Fs
	maxDecodes    int
	targetPx      int
	decodeTimeout time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	flights map[Key]*flight
	queue   flightQueue
	active  int
	seq     uint64
	closed  bool
	wg      sync.WaitGroup
}

// flight is one in-flight unit of decode work, shared by every handle
// registered for its key.
type flight struct {
	key      Key
	path     string
	targetPx int
	fp       Fingerprint
	priority Priority
	seq      uint64 // recency of the newest attached request
	index    int    // heap index; -1 while not queued

	handles []*Handle
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a thumbnail pipeline.
//
// Defaults: 4 concurrent decodes, 256px thumbnails, a 64MB in-memory cache,
// the extension-dispatching decoder, and no decode timeout.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		maxDecodes: defaultMaxDecodes,
		targetPx:   defaultThumbnailPx,
		flights:    make(map[Key]*flight),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxDecodes < 1 {
		return nil, errors.New("flux: max concurrent decodes must be >= 1")
	}
	if p.targetPx < minThumbnailPx || p.targetPx > maxThumbnailPx {
		return nil, fmt.Errorf("flux: thumbnail size must be within [%d, %d]", minThumbnailPx, maxThumbnailPx)
	}
	if p.decodeTimeout < 0 {
		return nil, errors.New("flux: decode timeout must be >= 0")
	}
	p.applyDefaults()
	return p, nil
}

// Submit registers interest in a thumbnail for path.
//
// Submit never blocks on decode work. The returned handle always receives
// exactly one terminal result: immediately for cache hits and files that
// cannot be fingerprinted, otherwise when the shared decode finishes.
// Submit fails only when the pipeline is closed or an option is invalid.
func (p *Pipeline) Submit(path string, opts ...SubmitOption) (*Handle, error) {
	cfg := submitConfig{priority: PriorityNormal, targetPx: p.targetPx}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.targetPx <= 0 {
		return nil, fmt.Errorf("flux: submit target size must be > 0, got %d", cfg.targetPx)
	}
	if p.isClosed() {
		return nil, ErrClosed
	}

	h := &Handle{p: p, path: path, ch: make(chan Result, 1)}

	fp, err := thumbtype.Stat(p.fsys, path)
	if err != nil {
		h.deliver(Result{Err: err})
		return h, nil
	}
	key := KeyFor(fp, cfg.targetPx)
	h.key = key

	if art, ok := p.cache.Get(key); ok {
		p.logger.Debug("cache hit", "path", path, "key", key)
		h.deliver(Result{Artifact: art})
		return h, nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.seq++
	if f, ok := p.flights[key]; ok && f.ctx.Err() == nil {
		// Same key already in flight: attach instead of decoding twice.
		f.handles = append(f.handles, h)
		h.flight = f
		f.seq = p.seq
		if cfg.priority > f.priority {
			f.priority = cfg.priority
		}
		if f.index >= 0 {
			heap.Fix(&p.queue, f.index)
		}
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		f := &flight{
			key:      key,
			path:     path,
			targetPx: cfg.targetPx,
			fp:       fp,
			priority: cfg.priority,
			seq:      p.seq,
			index:    -1,
			handles:  []*Handle{h},
			ctx:      ctx,
			cancel:   cancel,
		}
		h.flight = f
		p.flights[key] = f
		heap.Push(&p.queue, f)
		p.maybeStartLocked()
	}
	p.mu.Unlock()
	return h, nil
}

// Flush cancels all queued and in-flight requests, typically on directory
// change. Every outstanding handle receives ErrCancelled. The pipeline
// accepts new submissions immediately.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	var orphaned []*Handle
	for key, f := range p.flights {
		f.cancel()
		orphaned = append(orphaned, f.handles...)
		f.handles = nil
		if f.index >= 0 {
			// Queued flights leave the table now; active ones stay until
			// their worker observes cancellation and finishes.
			f.index = -1
			delete(p.flights, key)
		}
	}
	clear(p.queue)
	p.queue = p.queue[:0]
	p.mu.Unlock()

	for _, h := range orphaned {
		h.deliver(Result{Err: ErrCancelled})
	}
	p.logger.Debug("pipeline flushed", "cancelled", len(orphaned))
}

// Close flushes the pipeline and waits for in-flight decodes to wind down.
// Subsequent submissions fail with ErrClosed. Close is idempotent.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.Flush()
	p.wg.Wait()
	return nil
}

func (p *Pipeline) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// maybeStartLocked starts queued flights while worker slots are free.
// Callers must hold p.mu.
func (p *Pipeline) maybeStartLocked() {
	for p.active < p.maxDecodes && p.queue.Len() > 0 {
		f := heap.Pop(&p.queue).(*flight)
		if len(f.handles) == 0 {
			// Cancelled while queued.
			delete(p.flights, f.key)
			continue
		}
		p.active++
		p.wg.Add(1)
		go p.runFlight(f)
	}
}

// runFlight executes one decode. No pipeline lock is held while decoding.
func (p *Pipeline) runFlight(f *flight) {
	defer p.wg.Done()

	ctx := f.ctx
	if p.decodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.decodeTimeout)
		defer cancel()
	}

	p.logger.Debug("decode start", "path", f.path, "px", f.targetPx)
	art, err := p.dec.Decode(ctx, f.path, f.targetPx)
	if err == nil {
		// Never serve a thumbnail for content that changed under us.
		if cur, statErr := thumbtype.Stat(p.fsys, f.path); statErr != nil || !cur.Matches(f.fp) {
			art = nil
			err = fmt.Errorf("%w: %s changed during decode", ErrIO, f.path)
		}
	}
	if errors.Is(err, ErrCancelled) && f.ctx.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: decode timed out after %s", ErrIO, p.decodeTimeout)
	}
	if err == nil {
		if cacheErr := p.cache.Put(f.key, art); cacheErr != nil {
			p.logger.Debug("cache put failed", "key", f.key, "error", cacheErr)
		}
	}

	p.finish(f, Result{Artifact: art, Err: err})
}

// finish retires a flight, frees its worker slot, and fans the result out.
func (p *Pipeline) finish(f *flight, res Result) {
	p.mu.Lock()
	if cur, ok := p.flights[f.key]; ok && cur == f {
		delete(p.flights, f.key)
	}
	handles := f.handles
	f.handles = nil
	p.active--
	p.maybeStartLocked()
	p.mu.Unlock()

	for _, h := range handles {
		h.deliver(res)
	}
	if res.Err != nil {
		p.logger.Debug("decode failed", "path", f.path, "error", res.Err)
	} else {
		p.logger.Debug("decode done", "path", f.path, "key", f.key)
	}
}

// cancelHandle implements Handle.Cancel.
func (p *Pipeline) cancelHandle(h *Handle) {
	p.mu.Lock()
	f := h.flight
	if f != nil && p.flights[h.key] == f {
		for i, other := range f.handles {
			if other == h {
				f.handles = append(f.handles[:i], f.handles[i+1:]...)
				break
			}
		}
		if len(f.handles) == 0 {
			// Last interested requester is gone: stop the decode.
			f.cancel()
			if f.index >= 0 {
				heap.Remove(&p.queue, f.index)
				delete(p.flights, f.key)
			}
		}
	}
	p.mu.Unlock()

	h.deliver(Result{Err: ErrCancelled})
}
