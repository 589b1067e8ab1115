package store

import (
	"context"
	"github.com/Avi18971911/Lantern/pkg/cache"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"go.uber.org/zap"
)

// RevisionGuardStoreImpl drops snapshots older than the newest one already passed on for the
// same token, so an intermediate snapshot flushed late never replaces the final one.
type RevisionGuardStoreImpl struct {
	next      ProfileStore
	revisions cache.RevisionCache
	logger    *zap.Logger
}

func NewRevisionGuardStoreImpl(
	next ProfileStore,
	revisions cache.RevisionCache,
	logger *zap.Logger,
) *RevisionGuardStoreImpl {
	return &RevisionGuardStoreImpl{
		next:      next,
		revisions: revisions,
		logger:    logger,
	}
}

func (rg *RevisionGuardStoreImpl) Save(ctx context.Context, doc model.ProfileDocument) error {
	return rg.SaveBatch(ctx, []model.ProfileDocument{doc})
}

func (rg *RevisionGuardStoreImpl) SaveBatch(ctx context.Context, docs []model.ProfileDocument) error {
	current := make([]model.ProfileDocument, 0, len(docs))
	for _, doc := range docs {
		newer, err := rg.revisions.Advance(doc.Token, doc.Revision)
		if err != nil {
			// without a reliable record the write goes through, a newer snapshot still overwrites it
			rg.logger.Warn("Failed to record profile revision", zap.String("token", doc.Token), zap.Error(err))
		}
		if !newer && err == nil {
			rg.logger.Debug(
				"Dropping stale profile snapshot",
				zap.String("token", doc.Token),
				zap.Uint64("revision", doc.Revision),
			)
			continue
		}
		current = append(current, doc)
	}
	if len(current) == 0 {
		return nil
	}
	return rg.next.SaveBatch(ctx, current)
}
