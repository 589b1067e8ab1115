package store

import (
	"context"
	"errors"
	"github.com/Avi18971911/Lantern/pkg/cache"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/dgraph-io/ristretto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"sync"
	"testing"
)

type recordingStore struct {
	mu    sync.Mutex
	saved []model.ProfileDocument
	err   error
}

func (rs *recordingStore) Save(ctx context.Context, doc model.ProfileDocument) error {
	return rs.SaveBatch(ctx, []model.ProfileDocument{doc})
}

func (rs *recordingStore) SaveBatch(_ context.Context, docs []model.ProfileDocument) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.err != nil {
		return rs.err
	}
	rs.saved = append(rs.saved, docs...)
	return nil
}

func (rs *recordingStore) revisions() []uint64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	revisions := make([]uint64, len(rs.saved))
	for i, doc := range rs.saved {
		revisions[i] = doc.Revision
	}
	return revisions
}

type failingRevisionCache struct{}

func (failingRevisionCache) Get(string) (uint64, error) {
	return 0, cache.ErrKeyNotFound
}

func (failingRevisionCache) Advance(string, uint64) (bool, error) {
	return true, cache.ErrSetFailed
}

func TestRevisionGuardStoreImpl(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("Passes newer revisions through", func(t *testing.T) {
		next := &recordingStore{}
		guard := NewRevisionGuardStoreImpl(next, newRevisionCache(t), logger)

		require.Nil(t, guard.Save(ctx, sampleDocument("token", 2, false)))
		require.Nil(t, guard.Save(ctx, sampleDocument("token", 5, true)))
		assert.Equal(t, []uint64{2, 5}, next.revisions())
	})

	t.Run("Drops a stale snapshot arriving after a newer one", func(t *testing.T) {
		next := &recordingStore{}
		guard := NewRevisionGuardStoreImpl(next, newRevisionCache(t), logger)

		require.Nil(t, guard.Save(ctx, sampleDocument("token", 5, true)))
		require.Nil(t, guard.Save(ctx, sampleDocument("token", 2, false)))
		assert.Equal(t, []uint64{5}, next.revisions())
	})

	t.Run("Filters stale entries out of a batch", func(t *testing.T) {
		next := &recordingStore{}
		guard := NewRevisionGuardStoreImpl(next, newRevisionCache(t), logger)

		err := guard.SaveBatch(ctx, []model.ProfileDocument{
			sampleDocument("a", 3, false),
			sampleDocument("a", 1, false),
			sampleDocument("b", 1, false),
		})
		require.Nil(t, err)
		assert.Equal(t, []uint64{3, 1}, next.revisions())
		assert.Equal(t, "b", next.saved[1].Token)
	})

	t.Run("Writes through when the cache fails", func(t *testing.T) {
		next := &recordingStore{}
		guard := NewRevisionGuardStoreImpl(next, failingRevisionCache{}, logger)

		require.Nil(t, guard.Save(ctx, sampleDocument("token", 1, false)))
		assert.Equal(t, []uint64{1}, next.revisions())
	})

	t.Run("Returns errors from the wrapped store", func(t *testing.T) {
		next := &recordingStore{err: ErrStorage}
		guard := NewRevisionGuardStoreImpl(next, newRevisionCache(t), logger)

		err := guard.Save(ctx, sampleDocument("token", 1, false))
		assert.True(t, errors.Is(err, ErrStorage))
	})
}

func newRevisionCache(t *testing.T) *cache.RevisionCacheImpl {
	t.Helper()
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: (1 << 20) * 10,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.Nil(t, err)
	return cache.NewRevisionCacheImpl(c)
}
