package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/yungbote/lifeboard-backend"

// Tracer returns the named tracer from the global provider. It resolves
// the provider on each call so spans follow a later InitOTel.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
