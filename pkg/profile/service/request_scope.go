package service

import (
	"context"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"sync"
	"time"
)

// RequestScope binds one request to its capture decision and profile. It is passed explicitly
// to every lifecycle entry point. A scope whose decision was negative carries no profile and
// every handler returns immediately for it.
type RequestScope struct {
	capture      bool
	profile      *model.RequestProfile
	start        time.Time
	finalizeOnce sync.Once
}

func (s *RequestScope) Capturing() bool {
	return s != nil && s.capture
}

// Profile is nil when the request is not captured.
func (s *RequestScope) Profile() *model.RequestProfile {
	if s == nil {
		return nil
	}
	return s.profile
}

type scopeKey struct{}

func ContextWithScope(ctx context.Context, scope *RequestScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

func ScopeFromContext(ctx context.Context) (*RequestScope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*RequestScope)
	return scope, ok && scope != nil
}
