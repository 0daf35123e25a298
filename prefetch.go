package flux

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// PrefetchDir warms the thumbnail cache for every visible file in dir.
//
// Files are submitted at background priority so interactive requests keep
// jumping the queue. Per-file decode failures do not abort the warm; they
// surface naturally when the directory is rendered. PrefetchDir returns once
// every submission has a terminal result, or with the context's error after
// cancelling the remainder.
func (p *Pipeline) PrefetchDir(ctx context.Context, dir string, opts ...SubmitOption) error {
	infos, err := afero.ReadDir(p.fsys, dir)
	if err != nil {
		return fmt.Errorf("%w: read dir %s: %v", ErrIO, dir, err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		submitOpts := append([]SubmitOption{SubmitWithPriority(PriorityBackground)}, opts...)
		h, err := p.Submit(filepath.Join(dir, info.Name()), submitOpts...)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			select {
			case <-h.Done():
				return nil
			case <-ctx.Done():
				h.Cancel()
				return ctx.Err()
			}
		})
	}
	return eg.Wait()
}
