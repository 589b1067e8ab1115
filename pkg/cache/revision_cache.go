package cache

import (
	"errors"
	"fmt"
	"github.com/dgraph-io/ristretto"
	"sync"
)

// RevisionCache remembers the newest profile revision written per token so that a snapshot
// overtaken by a newer one can be dropped instead of overwriting it.
// Eviction is based on LRU and LFU policies; an evicted token simply accepts the next write.
type RevisionCache interface {
	Get(token string) (uint64, error)
	// Advance records revision for token and reports whether it is newer than what was seen.
	Advance(token string, revision uint64) (bool, error)
}

type RevisionCacheImpl struct {
	cache *ristretto.Cache
	mu    sync.Mutex
}

func NewRevisionCacheImpl(cache *ristretto.Cache) *RevisionCacheImpl {
	return &RevisionCacheImpl{cache: cache}
}

// NewDefaultRistretto sizes a cache for roughly maxTokens concurrently tracked requests.
func NewDefaultRistretto(maxTokens int64) (*ristretto.Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxTokens * 10,
		MaxCost:     maxTokens,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating revision cache: %w", err)
	}
	return c, nil
}

func (rc *RevisionCacheImpl) Get(token string) (uint64, error) {
	value, found := rc.cache.Get(token)
	if !found {
		return 0, ErrKeyNotFound
	}
	typedValue, ok := value.(uint64)
	if !ok {
		return 0, fmt.Errorf("value not of expected type %T returned from cache when getting", value)
	}
	return typedValue, nil
}

func (rc *RevisionCacheImpl) Advance(token string, revision uint64) (bool, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	seen, err := rc.Get(token)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return false, err
	}
	if err == nil && revision <= seen {
		return false, nil
	}
	if set := rc.cache.Set(token, revision, 1); !set {
		return true, ErrSetFailed
	}
	// sets are buffered, the next Advance must observe this one
	rc.cache.Wait()
	return true, nil
}

var (
	ErrKeyNotFound = errors.New("key not found within the cache")
	ErrSetFailed   = errors.New("failed to set value in cache")
)
