package pysource

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of parsed files a CachedLoader keeps.
const DefaultCacheSize = 512

type cachedModule struct {
	modTime time.Time
	size    int64
	rel     string
	mod     *Module
}

// CachedLoader is a Loader that reuses the parse of files whose size and
// modification time have not changed. Used by watch mode, where the same
// tree is loaded over and over.
type CachedLoader struct {
	*Loader
	cache *lru.Cache[string, cachedModule]
}

// NewCachedLoader returns a CachedLoader holding up to size parsed files.
func NewCachedLoader(logger *zap.Logger, opts ScanOptions, size int) (*CachedLoader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedModule](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	cl := &CachedLoader{Loader: NewLoader(logger, opts), cache: cache}
	cl.read = cl.readCached
	return cl, nil
}

func (cl *CachedLoader) readCached(p *Parser, abs, rel string) (*Module, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if hit, ok := cl.cache.Get(abs); ok &&
		hit.rel == rel && hit.size == info.Size() && hit.modTime.Equal(info.ModTime()) {
		return hit.mod, nil
	}
	mod, err := readModule(p, abs, rel)
	if err != nil {
		cl.cache.Remove(abs)
		return nil, err
	}
	cl.cache.Add(abs, cachedModule{modTime: info.ModTime(), size: info.Size(), rel: rel, mod: mod})
	return mod, nil
}

// Len reports how many parsed files are cached.
func (cl *CachedLoader) Len() int { return cl.cache.Len() }
