// Command thumbgen generates thumbnails for a directory through the flux
// pipeline. It is a development tool for exercising the scheduler, cache,
// and decoders outside the file manager UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/killown/flux"
	"github.com/killown/flux/cache"
	"github.com/killown/flux/cache/disk"
)

type config struct {
	dir        string
	size       int
	workers    int
	cacheDir   string
	cacheBytes int64
	memBytes   int64
	timeout    time.Duration
	verbose    bool
}

func main() {
	cfg := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("thumbgen: %v", err)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.dir, "dir", ".", "directory to thumbnail")
	flag.IntVar(&cfg.size, "size", 256, "thumbnail bounding box in pixels")
	flag.IntVar(&cfg.workers, "workers", 4, "max concurrent decodes")
	flag.StringVar(&cfg.cacheDir, "cache-dir", defaultCacheDir(), "disk cache directory (empty to disable)")
	flag.Int64Var(&cfg.cacheBytes, "cache-bytes", 512<<20, "disk cache byte budget (0 = unlimited)")
	flag.Int64Var(&cfg.memBytes, "mem-bytes", 64<<20, "memory cache byte budget (0 = unlimited)")
	flag.DurationVar(&cfg.timeout, "timeout", 0, "per-decode timeout (0 = none)")
	flag.BoolVar(&cfg.verbose, "v", false, "enable debug logging")
	flag.Parse()
	return cfg
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "flux", "thumbnails")
}

func run(ctx context.Context, cfg config) error {
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := buildCache(cfg)
	if err != nil {
		return err
	}

	p, err := flux.New(
		flux.WithMaxConcurrentDecodes(cfg.workers),
		flux.WithThumbnailSize(cfg.size),
		flux.WithCache(store),
		flux.WithDecodeTimeout(cfg.timeout),
		flux.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer p.Close()

	infos, err := afero.ReadDir(afero.NewOsFs(), cfg.dir)
	if err != nil {
		return err
	}

	var done, failed, unsupported atomic.Int64
	start := time.Now()
	handles := make([]*flux.Handle, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		h, err := p.Submit(filepath.Join(cfg.dir, info.Name()))
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	for _, h := range handles {
		select {
		case res := <-h.Done():
			switch {
			case res.Err == nil:
				done.Add(1)
				bounds := res.Artifact.Bounds()
				logger.Debug("thumbnail ready", "path", h.Path(), "size", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()))
			case errors.Is(res.Err, flux.ErrUnsupportedFormat):
				unsupported.Add(1)
			default:
				failed.Add(1)
				logger.Warn("thumbnail failed", "path", h.Path(), "error", res.Err)
			}
		case <-ctx.Done():
			p.Flush()
			return ctx.Err()
		}
	}

	logger.Info("thumbnail generation complete",
		"files", len(handles),
		"generated", done.Load(),
		"unsupported", unsupported.Load(),
		"failed", failed.Load(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func buildCache(cfg config) (cache.Cache, error) {
	mem := cache.NewMemory(cfg.memBytes)
	if cfg.cacheDir == "" {
		return mem, nil
	}
	dsk, err := disk.New(cfg.cacheDir, disk.WithMaxBytes(cfg.cacheBytes))
	if err != nil {
		return nil, fmt.Errorf("opening disk cache: %w", err)
	}
	return cache.NewLayered(mem, dsk)
}
