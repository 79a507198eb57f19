package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer("simsim")
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		// Fallback to default tracer if not initialized
		globalTracer = otel.Tracer("simsim")
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceVocabularyFunction starts a new span for a vocabulary service function.
func TraceVocabularyFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "vocabulary", functionName, attributes...)
}

// TraceSyncFunction starts a new span for a synchronizer function.
func TraceSyncFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "sync", functionName, attributes...)
}

// TraceGameFunction starts a new span for a game service function.
func TraceGameFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "game", functionName, attributes...)
}

// TraceSessionFunction starts a new span for a session service function.
func TraceSessionFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "session", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// AttributeConcept returns a tracing attribute for a concept id.
func AttributeConcept(concept string) attribute.KeyValue {
	return attribute.String("vocabulary.concept", concept)
}

// AttributeLanguage returns a tracing attribute for a language.
func AttributeLanguage(lang string) attribute.KeyValue {
	return attribute.String("language", lang)
}

// AttributeSessionID returns a tracing attribute for a game session id.
func AttributeSessionID(id string) attribute.KeyValue {
	return attribute.String("session.id", id)
}

// AttributeCount returns a tracing attribute for a count value.
func AttributeCount(count int) attribute.KeyValue {
	return attribute.Int("count", count)
}

// AttributePool returns a tracing attribute for a question pool mode.
func AttributePool(pool string) attribute.KeyValue {
	return attribute.String("question.pool", pool)
}
