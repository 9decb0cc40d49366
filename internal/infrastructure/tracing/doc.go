/*
Package tracing tags each HTTP request with a trace and span id.

Ids are ULIDs from the shared id package. They are returned in the
X-Trace-ID and X-Span-ID response headers, stored in the request context
for handlers to log, and every finished span is written to the tracer's
logger by a background collector.

# Usage

	tracer := tracing.New("webterm", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// In a handler
	log = log.With(zap.String("trace_id", string(tracing.GetTraceID(c.Request.Context()))))

A client that sends X-Trace-ID keeps its trace across requests, which ties
a terminal's REST calls to its websocket attach.
*/
package tracing
