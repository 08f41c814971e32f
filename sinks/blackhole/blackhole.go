// Package blackhole provides a SpanSink that discards everything. It is
// the default sink, so a coordinator constructed without one is valid and
// merely records nothing.
package blackhole

import (
	"context"

	"github.com/perimetric/tracewire/trace"
)

type BlackholeSpanSink struct{}

func NewBlackholeSpanSink() BlackholeSpanSink {
	return BlackholeSpanSink{}
}

func (b BlackholeSpanSink) Name() string {
	return "blackhole"
}

func (b BlackholeSpanSink) Ingest(span *trace.Span) error {
	return nil
}

func (b BlackholeSpanSink) Flush(ctx context.Context) error {
	return nil
}
