// Package flux implements the asynchronous thumbnail pipeline of the flux
// file manager.
//
// The pipeline accepts thumbnail requests for files as they become visible,
// de-duplicates requests for the same file version and size, bounds the
// number of concurrent decodes, and delivers results asynchronously in
// completion order. Results are cached in a byte-budgeted LRU cache,
// optionally layered over a persistent disk store.
//
// # Quick Start
//
// Create a pipeline and request thumbnails:
//
//	p, err := flux.New(
//	    flux.WithMaxConcurrentDecodes(8),
//	    flux.WithThumbnailSize(256),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	h, err := p.Submit("photos/cat.jpg", flux.SubmitWithPriority(flux.PriorityVisible))
//	if err != nil {
//	    return err
//	}
//	res := <-h.Done()
//	if res.Err != nil {
//	    // no thumbnail; render a generic icon
//	}
//
// Requests for files that scroll out of view are dropped with Handle.Cancel;
// a directory change flushes everything at once:
//
//	h.Cancel()  // detach one request
//	p.Flush()   // directory changed: cancel all queued and in-flight work
//
// # Caching
//
// By default thumbnails are cached in memory. Use a layered cache to persist
// them across runs:
//
//	mem := cache.NewMemory(64 << 20)
//	dsk, err := disk.New(filepath.Join(cacheHome, "flux", "thumbnails"),
//	    disk.WithMaxBytes(512 << 20),
//	)
//	layered, err := cache.NewLayered(mem, dsk)
//	p, err := flux.New(flux.WithCache(layered))
//
// Cache keys include the file's size and modification time, so an edited
// file is never served a stale thumbnail: the old entry simply ages out.
package flux
