package tracewire

import (
	"time"

	"github.com/perimetric/tracewire/trace"
)

// TransportKind names the transport an instrumentation source observed.
// Sources are free to define their own kinds; the two the engine enables
// by default cover the common browser-style HTTP clients.
type TransportKind string

const (
	// TransportFetch is a promise-style HTTP client.
	TransportFetch TransportKind = "fetch"
	// TransportXHR is a callback-style HTTP client.
	TransportXHR TransportKind = "xhr"
)

// OperationStart describes one outgoing network operation the
// instrumentation source just observed beginning.
type OperationStart struct {
	Transport TransportKind
	Method    string
	URL       string

	// Timestamp is when the operation began. Zero means "now".
	Timestamp time.Time

	// CorrelationKey ties this start to its matching end event.
	// Sources that can stash state near the operation may leave it
	// empty and use the key OnOperationStart returns (the new span's
	// id); sources that cannot must supply their own unique key on
	// both events.
	CorrelationKey string

	// Headers is the operation's mutable header sink; the coordinator
	// writes the propagation header into it. Supported shapes: any
	// HeaderAppender, http.Header, *[][2]string ordered pairs,
	// map[string]string, or an opentracing TextMapWriter.
	Headers interface{}
}

// OperationEnd describes the completion of a previously-started
// operation.
type OperationEnd struct {
	Transport      TransportKind
	CorrelationKey string

	// StatusCode is the observed response status, or zero when the
	// source saw no response.
	StatusCode int

	// Timestamp is when the operation finished. Zero means "now".
	Timestamp time.Time
}

// Observer consumes operation lifecycle events. *Coordinator implements
// it.
type Observer interface {
	OnOperationStart(event OperationStart) (correlationKey string)
	OnOperationEnd(event OperationEnd)
}

// InstrumentationSource is anything that watches outgoing operations and
// emits typed start/end events: a patched HTTP client, a proxy tap, a
// test harness. The coordinator never knows how observation happens.
type InstrumentationSource interface {
	Subscribe(observer Observer)
}

// TransactionLookup answers "what transaction is currently active, if
// any". It is a capability supplied by the host application, typically
// backed by request-scoped context.
type TransactionLookup interface {
	ActiveTransaction() *trace.Transaction
}

// TransactionLookupFunc adapts a plain function to TransactionLookup.
type TransactionLookupFunc func() *trace.Transaction

func (f TransactionLookupFunc) ActiveTransaction() *trace.Transaction {
	return f()
}
