// Package channel provides a SpanSink that writes every ingested span to
// a caller-owned channel, so tests can inspect exactly what the
// coordinator finalized.
package channel

import (
	"context"

	"github.com/perimetric/tracewire/trace"
)

type ChannelSpanSink struct {
	Spans chan *trace.Span
}

// NewChannelSpanSink creates a sink that forwards spans to ch.
func NewChannelSpanSink(ch chan *trace.Span) ChannelSpanSink {
	return ChannelSpanSink{Spans: ch}
}

func (c ChannelSpanSink) Name() string {
	return "channel"
}

func (c ChannelSpanSink) Ingest(span *trace.Span) error {
	c.Spans <- span
	return nil
}

func (c ChannelSpanSink) Flush(ctx context.Context) error {
	return nil
}
