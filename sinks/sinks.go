// Package sinks defines the seam between the trace coordinator and
// whatever stores and transmits finished spans. The coordinator hands
// every finalized span to a SpanSink; how spans reach a backend collector
// is entirely the sink's business.
package sinks

import (
	"context"

	"github.com/perimetric/tracewire/trace"
)

// SpanSink receives finished spans from the coordinator.
type SpanSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Ingest accepts one finished span. It must not block the
	// coordinator: implementations that do I/O should buffer and
	// return promptly. Ingest must not mutate the span.
	Ingest(span *trace.Span) error
	// Flush pushes any buffered spans out. The coordinator calls it
	// on Close.
	Flush(ctx context.Context) error
}
