// Package disk provides a disk-backed thumbnail cache.
//
// Artifacts are stored as individual files in a directory hierarchy sharded
// by key prefix, encoded with a small binary header and a zstd-compressed
// pixel payload. A byte budget is enforced by pruning the oldest entries;
// reads touch the entry's mtime so pruning approximates least-recently-used.
package disk

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/killown/flux/internal/thumbtype"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
)

// Cache implements cache.Cache using the local filesystem.
//
// Storage failures are absorbed: a read error or corrupt entry is reported
// as a miss, and a failed write leaves the cache unchanged. Thumbnailing
// degrades to "no cached thumbnail" rather than failing requests.
type Cache struct {
	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
	maxBytes       int64
	bytes          atomic.Int64
	pruneMu        sync.Mutex
	codec          *artifactCodec
}

// Option configures a disk cache.
type Option func(*Cache)

// WithMaxBytes sets the byte budget for the cache. Zero, the default,
// disables the limit.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) {
		c.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if c.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	codec, err := newArtifactCodec()
	if err != nil {
		return nil, err
	}
	c.codec = codec
	if size, err := dirSize(dir); err == nil {
		c.bytes.Store(size)
	} else {
		return nil, err
	}
	return c, nil
}

// Get retrieves the artifact for key. Corrupt or unreadable entries are
// removed and reported as a miss.
func (c *Cache) Get(key thumbtype.Key) (*thumbtype.Artifact, bool) {
	path := c.pathForKey(key)
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the key digest, not user input
	if err != nil {
		return nil, false
	}
	art, err := c.codec.decode(data)
	if err != nil {
		c.bytes.Add(-int64(len(data)))
		_ = os.Remove(path)
		return nil, false
	}
	now := time.Now()
	// Keep mtime close to last access so pruning evicts LRU entries first.
	_ = os.Chtimes(path, now, now) //nolint:errcheck // recency touch is best-effort
	return art, true
}

// Put stores the artifact for key, pruning old entries to stay under budget.
func (c *Cache) Put(key thumbtype.Key, art *thumbtype.Artifact) error {
	if art == nil {
		return nil
	}
	data, err := c.codec.encode(art)
	if err != nil {
		return err
	}
	path := c.pathForKey(key)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if ok, err := c.ensureCapacity(int64(len(data))); err != nil {
		return err
	} else if !ok {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "thumb-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		_ = os.Remove(tmpPath)
		return err
	}
	c.bytes.Add(int64(len(data)))
	return nil
}

// Invalidate removes the entry for key, if present.
func (c *Cache) Invalidate(key thumbtype.Key) error {
	path := c.pathForKey(key)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	c.bytes.Add(-info.Size())
	return nil
}

// MaxBytes returns the configured cache size limit (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the current cache size in bytes.
func (c *Cache) SizeBytes() int64 {
	return c.bytes.Load()
}

// Prune removes the oldest entries until the cache is at or below
// targetBytes. Returns the number of bytes freed.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	if targetBytes < 0 {
		targetBytes = 0
	}
	c.pruneMu.Lock()
	defer c.pruneMu.Unlock()

	freed, remaining, err := pruneDir(c.dir, targetBytes)
	if err != nil {
		return 0, err
	}
	c.bytes.Store(remaining)
	return freed, nil
}

func (c *Cache) ensureCapacity(need int64) (bool, error) {
	if c.maxBytes <= 0 {
		return true, nil
	}
	if need > c.maxBytes {
		return false, nil
	}
	if c.SizeBytes()+need <= c.maxBytes {
		return true, nil
	}
	if _, err := c.Prune(c.maxBytes - need); err != nil {
		return false, err
	}
	return c.SizeBytes()+need <= c.maxBytes, nil
}

func (c *Cache) pathForKey(key thumbtype.Key) string {
	hexKey := key.Encoded()
	if c.shardPrefixLen <= 0 {
		return filepath.Join(c.dir, hexKey)
	}
	prefixLen := c.shardPrefixLen
	if prefixLen > len(hexKey) {
		prefixLen = len(hexKey)
	}
	return filepath.Join(c.dir, hexKey[:prefixLen], hexKey)
}
