package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/felixgeelhaar/pipectl"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartCommandSpan opens the root span of one invocation, named after
// the command path ("pipectl watch"). Runtime.Close ends it.
func StartCommandSpan(ctx context.Context, commandPath string) (context.Context, trace.Span) {
	return tracer().Start(ctx, commandPath,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipectl.command", commandPath)),
	)
}

// StartSessionSpan creates a span covering one polling session. Fetches
// made with the returned context become its children.
func StartSessionSpan(ctx context.Context, taskID, sessionID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "poll task", trace.WithAttributes(
		attribute.String("pipectl.task_id", taskID),
		attribute.String("pipectl.session", sessionID),
	))
}

// RecordOutcome marks span as failed with err, or as ok when err is nil
func RecordOutcome(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
