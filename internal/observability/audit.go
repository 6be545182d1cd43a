package observability

import (
	"fmt"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Audit records an administrative action twice: as an "audit" log line and as an event on the
// request span, so the action shows up next to the trace of the call that caused it.
// attrs are key/value pairs; keys must be strings.
func Audit(r *http.Request, actorID, event string, attrs ...any) {
	ctx := r.Context()
	reqID := chimiddleware.GetReqID(ctx)

	fields := []any{
		"event", event,
		"actor_id", actorID,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", reqID,
	}
	fields = append(fields, attrs...)
	slog.InfoContext(ctx, "audit", fields...)

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	spanAttrs := []attribute.KeyValue{
		attribute.String("audit.actor_id", actorID),
		attribute.String("audit.request_id", reqID),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		spanAttrs = append(spanAttrs, attribute.String("audit."+key, fmt.Sprint(attrs[i+1])))
	}
	span.AddEvent(event, trace.WithAttributes(spanAttrs...))
}
