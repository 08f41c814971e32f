package tracewire

import (
	"fmt"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/perimetric/tracewire/trace"
)

// HeaderAppender is the append-style header sink shape: a multi-value
// header collection exposing an append capability.
type HeaderAppender interface {
	Append(name, value string)
}

// ErrUnsupportedHeaderSink indicates that a start event carried a header
// sink of a shape the coordinator does not know how to write to.
var ErrUnsupportedHeaderSink = errors.New("unsupported header sink shape")

// errNilHeaderSink is returned when a start event carried no sink at all.
var errNilHeaderSink = errors.New("no header sink on event")

// writeHeader writes name:value into the sink using whichever supported
// shape the sink exposes, exactly once. Existing headers of the same
// shape are preserved: appendable shapes get a new entry, the plain map
// only overwrites its own previous propagation value. Sinks that panic on
// mutation (e.g. already-dispatched requests) are reported as errors, not
// propagated, so a failed write can never abort the underlying operation.
func writeHeader(sink interface{}, name, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("header sink rejected write: %v", r)
		}
	}()

	switch s := sink.(type) {
	case nil:
		return errNilHeaderSink
	case HeaderAppender:
		s.Append(name, value)
	case http.Header:
		s.Add(name, value)
	case *[][2]string:
		*s = append(*s, [2]string{name, value})
	case map[string]string:
		s[name] = value
	case opentracing.TextMapWriter:
		s.Set(name, value)
	default:
		return errors.Wrapf(ErrUnsupportedHeaderSink, "%T", sink)
	}
	return nil
}

// injectContext serializes a span context and writes it into the sink
// under the propagation header name.
func injectContext(sink interface{}, c trace.SpanContext) error {
	return writeHeader(sink, trace.PropagationHeader, trace.MarshalHeader(c))
}
