package store

import (
	"context"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"go.uber.org/multierr"
)

// MultiProfileStoreImpl saves to every store and reports all of their failures together.
type MultiProfileStoreImpl struct {
	stores []ProfileStore
}

func NewMultiProfileStoreImpl(stores ...ProfileStore) *MultiProfileStoreImpl {
	return &MultiProfileStoreImpl{stores: stores}
}

func (ms *MultiProfileStoreImpl) Save(ctx context.Context, doc model.ProfileDocument) error {
	return ms.SaveBatch(ctx, []model.ProfileDocument{doc})
}

func (ms *MultiProfileStoreImpl) SaveBatch(ctx context.Context, docs []model.ProfileDocument) error {
	var err error
	for _, s := range ms.stores {
		err = multierr.Append(err, s.SaveBatch(ctx, docs))
	}
	return err
}
