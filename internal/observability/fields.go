package observability

import (
	"time"

	"go.uber.org/zap"
)

// Field aliases so callers do not import zap directly.
//
//nolint:gochecknoglobals // Function aliases
var (
	String   = zap.String
	Int      = zap.Int
	Bool     = zap.Bool
	Float64  = zap.Float64
	Duration = zap.Duration
	Error    = zap.Error
)

// Elapsed returns a field with the time passed since start.
func Elapsed(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
