package service

import "github.com/Avi18971911/Lantern/pkg/profile/model"

// ShouldSkip reports whether a unit is excluded from capture. The profiler's own output is
// always excluded; framework units are excluded only in strict mode.
func ShouldSkip(kind model.UnitKind, strict bool) bool {
	switch kind {
	case model.UnitKindSelf:
		return true
	case model.UnitKindFramework:
		return strict
	default:
		return false
	}
}
