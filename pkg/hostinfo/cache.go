package hostinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/singleflight"

	"github.com/opd-ai/hostinfo/internal/dirs"
)

const (
	// DefaultCacheTTL is how long static values stay in memory.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultCacheFileTTL is how long a cache file written by an earlier
	// run is trusted.
	DefaultCacheFileTTL = 24 * time.Hour

	// CacheFileName is the file name used below the application data
	// directory.
	CacheFileName = "hostinfo.cbor"

	cacheFormatVersion = 1
)

// cacheRecord is the on-disk form of a cache entry. The monotonic clock
// restarts with every process, so freshness across runs uses wall time.
type cacheRecord struct {
	Version   int        `cbor:"1,keyasint"`
	Hostname  string     `cbor:"2,keyasint"`
	Platform  string     `cbor:"3,keyasint"`
	WrittenAt int64      `cbor:"4,keyasint"` // Unix nanoseconds
	Static    StaticInfo `cbor:"5,keyasint"`
}

var (
	cacheEncMode cbor.EncMode
	cacheDecMode cbor.DecMode
)

func init() {
	var err error
	cacheEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("hostinfo: CBOR encoder initialization failed: " + err.Error())
	}
	cacheDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("hostinfo: CBOR decoder initialization failed: " + err.Error())
	}
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	// TTL bounds how long values stay in memory, measured on the host's
	// monotonic clock. Zero uses DefaultCacheTTL.
	TTL time.Duration

	// Path is the cache file. Empty disables persistence.
	Path string

	// FileTTL bounds the age of a cache file from an earlier run. Zero
	// uses DefaultCacheFileTTL.
	FileTTL time.Duration

	// Watch drops the in-memory entry when another process rewrites or
	// removes Path.
	Watch bool

	// Metrics receives hit, miss and latency counts. Optional.
	Metrics *CacheMetrics
}

// DefaultCachePath returns the cache file path below the application data
// directory of appName, creating the directory if needed.
func DefaultCachePath(appName string, shared bool) (string, error) {
	dir, err := dirs.EnsureAppDataDir(appName, shared)
	if err != nil {
		return "", NewCategorizedError(fmt.Errorf("%w: %w", ErrUnavailable, err), ErrorCategoryIO)
	}
	return filepath.Join(dir, CacheFileName), nil
}

// Cache memoizes the static values of a Host. Free RAM and the clock are
// never cached. It is safe for concurrent use.
type Cache struct {
	host    *Host
	opts    CacheOptions
	log     Logger
	metrics *CacheMetrics
	group   singleflight.Group
	watcher *fileWatcher

	// wallNow is time.Now; tests replace it.
	wallNow func() time.Time

	mu        sync.Mutex
	entry     *StaticInfo
	loadedAt  float64
	writtenAt int64
}

// NewCache wraps host. With opts.Watch set, a watcher on opts.Path is
// started and must be released with Close.
func NewCache(host *Host, opts CacheOptions) (*Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.FileTTL <= 0 {
		opts.FileTTL = DefaultCacheFileTTL
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewCacheMetrics()
	}

	c := &Cache{
		host:    host,
		opts:    opts,
		log:     host.log,
		metrics: metrics,
		wallNow: time.Now,
	}

	if opts.Watch && opts.Path != "" {
		w, err := newFileWatcher(opts.Path, 0, c.onFileChange, func(err error) {
			c.log.Warn("cache file watch error", "path", opts.Path, "error", err)
		})
		if err != nil {
			return nil, NewCategorizedError(fmt.Errorf("watching %s: %w", opts.Path, err), ErrorCategoryIO)
		}
		c.watcher = w
		w.Start()
	}
	return c, nil
}

// Host returns the wrapped Host.
func (c *Cache) Host() *Host {
	return c.host
}

// Metrics returns the counters this Cache updates.
func (c *Cache) Metrics() *CacheMetrics {
	return c.metrics
}

// Static returns the static values from memory, the cache file, or a fresh
// query, in that order. Concurrent callers share one query.
func (c *Cache) Static(ctx context.Context) (StaticInfo, error) {
	if s, ok := c.fromMemory(); ok {
		c.metrics.memoryHits.Add(1)
		return s, nil
	}

	v, err, _ := c.group.Do("static", func() (any, error) {
		if s, ok := c.fromMemory(); ok {
			return s, nil
		}
		if s, ok := c.fromFile(); ok {
			c.metrics.fileHits.Add(1)
			return s, nil
		}
		return c.query(ctx)
	})
	if err != nil {
		c.metrics.errorsTotal.Add(1)
		return StaticInfo{}, err
	}
	return v.(StaticInfo), nil
}

// Refresh queries the host, bypassing memory and file, and stores the result.
func (c *Cache) Refresh(ctx context.Context) (StaticInfo, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.query(ctx)
	})
	if err != nil {
		c.metrics.errorsTotal.Add(1)
		return StaticInfo{}, err
	}
	return v.(StaticInfo), nil
}

// Report returns the cached static values with live free RAM and clock.
func (c *Cache) Report(ctx context.Context) (Report, error) {
	s, err := c.Static(ctx)
	if err != nil {
		return Report{}, err
	}
	return c.host.withLive(s), nil
}

// Invalidate drops the in-memory entry. The cache file is left in place.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	c.metrics.invalidation.Add(1)
}

// Close stops the file watcher, if any. The Host is not closed.
func (c *Cache) Close() error {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	return nil
}

func (c *Cache) fromMemory() (StaticInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return StaticInfo{}, false
	}
	if c.host.Now()-c.loadedAt >= c.opts.TTL.Seconds() {
		c.entry = nil
		return StaticInfo{}, false
	}
	return *c.entry, true
}

func (c *Cache) store(s StaticInfo, writtenAt int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &s
	c.loadedAt = c.host.Now()
	c.writtenAt = writtenAt
}

func (c *Cache) query(ctx context.Context) (StaticInfo, error) {
	start := c.host.Now()
	s, err := c.host.Static(ctx)
	c.metrics.recordQuery(time.Duration((c.host.Now() - start) * float64(time.Second)))
	if err != nil {
		return StaticInfo{}, err
	}

	writtenAt := c.wallNow().UnixNano()
	if c.opts.Path != "" {
		if err := c.writeFile(s, writtenAt); err != nil {
			// A read-only data directory only costs the next run a query.
			c.log.Warn("cache file not written", "path", c.opts.Path, "error", err)
		} else {
			c.metrics.fileWrites.Add(1)
		}
	}
	c.store(s, writtenAt)
	return s, nil
}

// fromFile loads the cache file if it belongs to this host and is young
// enough. Any problem is logged and treated as a miss.
func (c *Cache) fromFile() (StaticInfo, bool) {
	if c.opts.Path == "" {
		return StaticInfo{}, false
	}
	rec, err := c.readFile()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Debug("cache file ignored", "path", c.opts.Path, "error", err)
		}
		return StaticInfo{}, false
	}
	if reason := c.staleReason(rec); reason != "" {
		c.log.Debug("cache file stale", "path", c.opts.Path, "reason", reason)
		return StaticInfo{}, false
	}
	c.store(rec.Static, rec.WrittenAt)
	return rec.Static, true
}

func (c *Cache) staleReason(rec cacheRecord) string {
	age := c.wallNow().Sub(time.Unix(0, rec.WrittenAt))
	switch {
	case rec.Version != cacheFormatVersion:
		return fmt.Sprintf("format version %d", rec.Version)
	case rec.Hostname != c.host.Hostname():
		return fmt.Sprintf("written for host %q", rec.Hostname)
	case rec.Platform != c.host.Name():
		return fmt.Sprintf("written for platform %q", rec.Platform)
	case age < 0:
		return "written in the future"
	case age >= c.opts.FileTTL:
		return fmt.Sprintf("age %s", age.Round(time.Second))
	}
	return ""
}

func (c *Cache) readFile() (cacheRecord, error) {
	data, err := os.ReadFile(c.opts.Path)
	if err != nil {
		return cacheRecord{}, err
	}
	var rec cacheRecord
	if err := cacheDecMode.Unmarshal(data, &rec); err != nil {
		return cacheRecord{}, fmt.Errorf("decoding %s: %w", c.opts.Path, err)
	}
	return rec, nil
}

// writeFile replaces the cache file atomically so readers in other
// processes never observe a partial record.
func (c *Cache) writeFile(s StaticInfo, writtenAt int64) error {
	data, err := cacheEncMode.Marshal(cacheRecord{
		Version:   cacheFormatVersion,
		Hostname:  c.host.Hostname(),
		Platform:  c.host.Name(),
		WrittenAt: writtenAt,
		Static:    s,
	})
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.opts.Path), "."+filepath.Base(c.opts.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.opts.Path)
}

// onFileChange runs after the watched file changed. Writes made by this
// Cache are recognized by their timestamp and keep the entry.
func (c *Cache) onFileChange() {
	rec, err := c.readFile()

	c.mu.Lock()
	own := err == nil && c.entry != nil && rec.WrittenAt == c.writtenAt
	c.mu.Unlock()
	if own {
		return
	}

	c.log.Debug("cache file changed, dropping entry", "path", c.opts.Path)
	c.Invalidate()
}
