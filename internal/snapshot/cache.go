package snapshot

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
)

// DefaultCacheSize is the number of snapshot bases kept resident.
const DefaultCacheSize = 8

// CachedService wraps a Service with an LRU of full-diff results keyed by
// snapshot base. Entries are zstd-compressed so large diffs do not pin
// their raw content in memory. Patch calls pass through uncached.
type CachedService struct {
	inner Service
	cache *lru.Cache[string, []byte]
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewCachedService wraps inner with a cache of the given size (entries,
// not bytes). Size <= 0 selects DefaultCacheSize.
func NewCachedService(inner Service, size int) (*CachedService, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &CachedService{
		inner: inner,
		cache: cache,
		enc:   enc,
		dec:   dec,
	}, nil
}

// FullDiff returns the cached diff for base when present, otherwise
// delegates and caches the result.
func (c *CachedService) FullDiff(ctx context.Context, base string) ([]FileDiff, error) {
	if blob, ok := c.cache.Get(base); ok {
		if diffs, err := c.decode(blob); err == nil {
			return diffs, nil
		}
		// Undecodable entries are dropped and refetched.
		c.cache.Remove(base)
	}

	diffs, err := c.inner.FullDiff(ctx, base)
	if err != nil {
		return nil, err
	}
	if blob, err := c.encode(diffs); err == nil {
		c.cache.Add(base, blob)
	}
	return diffs, nil
}

// Patch delegates to the inner service.
func (c *CachedService) Patch(ctx context.Context, base string) (string, error) {
	return c.inner.Patch(ctx, base)
}

// Invalidate drops the cached diff for base, forcing the next FullDiff
// to hit the backend. Callers use it when the working tree changes.
func (c *CachedService) Invalidate(base string) {
	c.cache.Remove(base)
}

func (c *CachedService) encode(diffs []FileDiff) ([]byte, error) {
	raw, err := json.Marshal(diffs)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *CachedService) decode(blob []byte) ([]FileDiff, error) {
	raw, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, err
	}
	var diffs []FileDiff
	if err := json.Unmarshal(raw, &diffs); err != nil {
		return nil, err
	}
	return diffs, nil
}
