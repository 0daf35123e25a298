package flux

import "sync/atomic"

// Result is the terminal outcome of a thumbnail request. Exactly one of
// Artifact or Err is set.
type Result struct {
	Artifact *Artifact
	Err      error
}

// Handle represents one requester's interest in a thumbnail.
//
// Every handle receives exactly one terminal Result on Done: the artifact,
// a classified error, or ErrCancelled. Multiple handles for the same key
// share a single decode.
type Handle struct {
	p      *Pipeline
	flight *flight
	key    Key
	path   string

	ch        chan Result
	delivered atomic.Bool
}

// Done returns the channel carrying the request's terminal result.
// The channel is buffered; the result is never lost if the caller is slow.
func (h *Handle) Done() <-chan Result {
	return h.ch
}

// Key returns the thumbnail key for this request. It is the zero Key when
// the file could not be fingerprinted at submission.
func (h *Handle) Key() Key {
	return h.key
}

// Path returns the file path this request was submitted for.
func (h *Handle) Path() string {
	return h.path
}

// Cancel withdraws this requester's interest. If no other requester shares
// the same in-flight key, the underlying decode is cancelled. Cancel after
// delivery is a no-op; cancellation racing a completed decode keeps the
// completed result.
func (h *Handle) Cancel() {
	h.p.cancelHandle(h)
}

// deliver publishes the terminal result once. Returns false if the handle
// already has a result.
func (h *Handle) deliver(res Result) bool {
	if !h.delivered.CompareAndSwap(false, true) {
		return false
	}
	h.ch <- res
	return true
}
