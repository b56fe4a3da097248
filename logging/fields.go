package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Field keys shared by the generation pipeline.
const (
	KeyCorrelationID = "correlation_id"
	KeyUserID        = "user_id"
	KeyProvider      = "provider"
	KeyModel         = "model"
	KeyErrorKind     = "error_kind"
	KeyDurationMS    = "duration_ms"
	KeyFraming       = "framing"
	KeyStyle         = "style"
)

func CorrelationID(id string) zap.Field { return zap.String(KeyCorrelationID, id) }

func UserID(id string) zap.Field { return zap.String(KeyUserID, id) }

func Provider(name string) zap.Field { return zap.String(KeyProvider, name) }

func Model(name string) zap.Field { return zap.String(KeyModel, name) }

func ErrorKind(kind string) zap.Field { return zap.String(KeyErrorKind, kind) }

// Duration records d in whole milliseconds.
func Duration(d time.Duration) zap.Field { return zap.Int64(KeyDurationMS, d.Milliseconds()) }

type correlationKey struct{}

// ContextWithCorrelationID attaches id so deeper layers can tag their lines
// without threading it through every signature.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the id set by ContextWithCorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
