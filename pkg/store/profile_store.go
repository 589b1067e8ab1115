package store

import (
	"context"
	"errors"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
)

// ProfileStore persists profile snapshots. Saving a snapshot whose token was saved before
// replaces the earlier one. Every failure wraps ErrStorage.
type ProfileStore interface {
	Save(ctx context.Context, doc model.ProfileDocument) error
	SaveBatch(ctx context.Context, docs []model.ProfileDocument) error
}

var (
	ErrStorage = errors.New("profile storage failed")
)
