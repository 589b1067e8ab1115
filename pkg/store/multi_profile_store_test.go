package store

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
	"testing"
)

func TestMultiProfileStoreImpl(t *testing.T) {
	ctx := context.Background()

	t.Run("Saves to every store", func(t *testing.T) {
		first, second := &recordingStore{}, &recordingStore{}
		store := NewMultiProfileStoreImpl(first, second)

		assert.Nil(t, store.Save(ctx, sampleDocument("a", 1, true)))
		assert.Len(t, first.saved, 1)
		assert.Len(t, second.saved, 1)
	})

	t.Run("Keeps saving after a store fails and reports every failure", func(t *testing.T) {
		errFirst := errors.New("first")
		errSecond := errors.New("second")
		healthy := &recordingStore{}
		store := NewMultiProfileStoreImpl(
			&recordingStore{err: errFirst},
			healthy,
			&recordingStore{err: errSecond},
		)

		err := store.Save(ctx, sampleDocument("a", 1, true))
		assert.Len(t, multierr.Errors(err), 2)
		assert.True(t, errors.Is(err, errFirst))
		assert.True(t, errors.Is(err, errSecond))
		assert.Len(t, healthy.saved, 1)
	})
}
