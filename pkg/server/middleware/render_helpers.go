package middleware

import (
	"context"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/Avi18971911/Lantern/pkg/profile/service"
	"go.uber.org/zap"
	"time"
)

// RenderUnit times render as the span for unit. The span stays open if render panics.
func RenderUnit(ctx context.Context, lc service.LifecycleController, unit model.RenderUnit, render func() error) error {
	scope, _ := service.ScopeFromContext(ctx)
	lc.OnRenderStart(scope, unit)
	err := render()
	lc.OnRenderEnd(scope, unit)
	return err
}

func StructuralGenerate(
	ctx context.Context,
	lc service.LifecycleController,
	units []model.StructuralUnit,
	structural model.StructuralContext,
) {
	scope, _ := service.ScopeFromContext(ctx)
	lc.OnStructuralGenerate(scope, units, structural)
}

func DataLoad(ctx context.Context, lc service.LifecycleController, load service.LoadInfo) {
	scope, _ := service.ScopeFromContext(ctx)
	lc.OnDataLoad(scope, load)
}

// Query runs exec and records its statement, duration and the rows it reports.
func Query(ctx context.Context, lc service.LifecycleController, statement string, exec func() (int, error)) error {
	scope, _ := service.ScopeFromContext(ctx)
	start := time.Now()
	rows, err := exec()
	lc.OnQuery(scope, service.QueryInfo{
		Statement: statement,
		Duration:  time.Since(start),
		Rows:      rows,
		Failed:    err != nil,
	})
	return err
}

// Timer starts the named timer and returns the function that stops it.
func Timer(ctx context.Context, lc service.LifecycleController, name string) func() {
	scope, _ := service.ScopeFromContext(ctx)
	lc.StartTimer(scope, name)
	return func() {
		lc.StopTimer(scope, name)
	}
}

// Logger returns base extended to copy its entries into the profile of the request in ctx.
func Logger(ctx context.Context, lc service.LifecycleController, base *zap.Logger) *zap.Logger {
	scope, _ := service.ScopeFromContext(ctx)
	return lc.RequestLogger(scope, base)
}
