// Package tracewire decides which outgoing network operations to trace,
// fixes one sampling decision per trace tree, propagates that decision
// across service boundaries in a compact header, and correlates
// asynchronous operation lifecycles back to the spans that time them.
//
// The Coordinator is the public entry point. An instrumentation source
// feeds it OperationStart and OperationEnd events; everything it decides
// flows out through the configured span sink. Tracing failures are never
// allowed to fail the instrumented operation itself.
package tracewire

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/perimetric/tracewire/origins"
	"github.com/perimetric/tracewire/sinks"
	"github.com/perimetric/tracewire/sinks/blackhole"
	"github.com/perimetric/tracewire/trace"
)

// Coordinator wires the origin filter, the sampling engine, the
// propagation codec, and the pending-span registry to operation lifecycle
// events. All mutable state (the origin cache and the registry) is owned
// by the instance: construct one per process, tear it down with Close,
// and nothing ambient survives it.
type Coordinator struct {
	config Config
	log    *logrus.Entry

	filter  *origins.Filter
	pending *pendingSpans
	sink    sinks.SpanSink
	active  TransactionLookup

	sampler   trace.SamplerFunc
	enabled   map[TransportKind]bool
	metrics   *coordinatorMetrics
	registrar prometheus.Registerer
	predicate func(url string) bool
}

var _ Observer = &Coordinator{}

// Option configures New.
type Option func(*Coordinator)

// WithLogger sets the logger diagnostics are written to. The default is
// the logrus standard logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Coordinator) {
		c.log = logrus.NewEntry(logger)
	}
}

// WithSink sets the destination for finalized spans. The default sink
// discards them.
func WithSink(sink sinks.SpanSink) Option {
	return func(c *Coordinator) {
		c.sink = sink
	}
}

// WithTransactionLookup supplies the capability that answers "what
// transaction is currently active". Without one, no operation is ever
// traced, because spans need an owning transaction.
func WithTransactionLookup(lookup TransactionLookup) Option {
	return func(c *Coordinator) {
		c.active = lookup
	}
}

// WithSampler installs a custom sampler consulted by StartTransaction.
func WithSampler(sampler trace.SamplerFunc) Option {
	return func(c *Coordinator) {
		c.sampler = sampler
	}
}

// WithURLPredicate adds a caller predicate that further restricts which
// URLs get spans. It is ANDed with the configured origin matchers.
func WithURLPredicate(predicate func(url string) bool) Option {
	return func(c *Coordinator) {
		c.predicate = predicate
	}
}

// WithMetrics registers the coordinator's counters with the given
// prometheus registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(c *Coordinator) {
		c.registrar = registerer
	}
}

// New constructs a Coordinator from configuration plus code-only options.
func New(config Config, opts ...Option) (*Coordinator, error) {
	config.applyDefaults()

	c := &Coordinator{
		config:  config,
		log:     logrus.NewEntry(logrus.StandardLogger()),
		pending: newPendingSpans(),
		sink:    blackhole.NewBlackholeSpanSink(),
	}
	for _, opt := range opts {
		opt(c)
	}

	filterOpts := []origins.FilterOption{
		origins.WithCacheSize(config.OriginCacheSize),
	}
	if config.ReportingEndpoint.IsSet() {
		filterOpts = append(filterOpts,
			origins.WithDenyPattern(config.ReportingEndpoint))
	}
	if c.predicate != nil {
		filterOpts = append(filterOpts, origins.WithPredicate(c.predicate))
	}
	filter, err := origins.NewFilter(config.OriginMatchers, filterOpts...)
	if err != nil {
		return nil, err
	}
	c.filter = filter

	c.enabled = make(map[TransportKind]bool, len(config.EnabledTransports))
	for _, kind := range config.EnabledTransports {
		c.enabled[kind] = true
	}

	c.metrics = newCoordinatorMetrics(c.registrar)
	return c, nil
}

// Attach subscribes the coordinator to an instrumentation source.
func (c *Coordinator) Attach(source InstrumentationSource) {
	source.Subscribe(c)
}

// StartTransaction creates a transaction under this coordinator's
// sampling configuration. The decision it fixes is the one every span the
// coordinator creates for the transaction will copy.
func (c *Coordinator) StartTransaction(name string, opts ...trace.TransactionOption) *trace.Transaction {
	policy := trace.SamplingPolicy{
		Sampler: c.sampler,
		Rate:    c.config.SampleRate.Raw(),
		Log:     c.log,
	}
	opts = append([]trace.TransactionOption{
		trace.WithSamplingPolicy(policy),
	}, opts...)
	return trace.StartTransaction(name, opts...)
}

// ContinueTransaction creates a transaction that continues the trace
// described by an inbound propagation header value. A malformed value is
// treated exactly like an absent one: a fresh trace with no parent.
func (c *Coordinator) ContinueTransaction(name, headerValue string, opts ...trace.TransactionOption) *trace.Transaction {
	if parent, ok := trace.ParseHeader(headerValue); ok {
		opts = append([]trace.TransactionOption{
			trace.WithParent(parent),
		}, opts...)
	}
	return c.StartTransaction(name, opts...)
}

// OnOperationStart resolves an observed operation's eligibility and, when
// eligible, opens a child span under the active transaction, registers it
// for correlation, and writes the propagation header into the event's
// header sink. It returns the correlation key the matching end event must
// carry, or "" when the operation was not traced. It never blocks and it
// never fails the observed operation.
func (c *Coordinator) OnOperationStart(event OperationStart) string {
	if !c.enabled[event.Transport] {
		c.metrics.operationsSkipped.WithLabelValues(skipReasonTransport).Inc()
		return ""
	}
	if !c.filter.Allow(event.URL) {
		c.metrics.operationsSkipped.WithLabelValues(skipReasonOrigin).Inc()
		return ""
	}

	var txn *trace.Transaction
	if c.active != nil {
		txn = c.active.ActiveTransaction()
	}
	if txn == nil {
		c.metrics.operationsSkipped.WithLabelValues(skipReasonNoTxn).Inc()
		return ""
	}

	span := txn.StartSpan(string(event.Transport), event.Method+" "+event.URL)
	if !event.Timestamp.IsZero() {
		span.Start = event.Timestamp
	}
	span.SetMetadata("http.method", event.Method)
	span.SetMetadata("http.url", event.URL)

	key := event.CorrelationKey
	if key == "" {
		key = string(span.Context.SpanID)
	}
	if err := c.pending.Begin(key, span); err != nil {
		// Integration bug in the instrumentation source: two starts
		// under one key. The first span stays live and this one is
		// abandoned untracked.
		c.metrics.duplicateKeys.Inc()
		c.log.WithError(err).WithFields(logrus.Fields{
			"correlation_key": key,
			"url":             event.URL,
		}).Warn("duplicate operation start, new span not tracked")
		return ""
	}

	if err := injectContext(event.Headers, span.Context); err != nil {
		// The operation continues untraced downstream; our span still
		// times it locally.
		c.metrics.headerWriteFailures.Inc()
		c.log.WithError(err).WithField("url", event.URL).
			Debug("could not write propagation header")
	}

	c.metrics.spansStarted.Inc()
	return key
}

// OnOperationEnd finalizes the span opened for the event's correlation
// key: response status, end timestamp, then hands it to the span sink and
// forgets it. An unknown key is a silent no-op, since duplicate and late
// completion signals are normal.
func (c *Coordinator) OnOperationEnd(event OperationEnd) {
	span := c.pending.End(event.CorrelationKey)
	if span == nil {
		c.metrics.operationsSkipped.WithLabelValues(skipReasonUnknownKey).Inc()
		return
	}

	span.FinishHTTP(event.StatusCode, event.Timestamp)

	if err := c.sink.Ingest(span); err != nil {
		c.log.WithError(err).WithField("sink", c.sink.Name()).
			Warn("span sink rejected finalized span")
	}
	c.metrics.spansFinished.Inc()
}

// PendingCount reports how many operations have started but not yet
// ended. A count that only grows usually means an instrumentation source
// is dropping end events.
func (c *Coordinator) PendingCount() int {
	return c.pending.Len()
}

// EvictPendingBefore abandons every pending operation that started before
// the cutoff, finalizing its span as errored and sinking it. The
// coordinator never runs this sweep on its own; owners with sources known
// to drop end events may call it periodically.
func (c *Coordinator) EvictPendingBefore(cutoff time.Time) int {
	evicted := c.pending.EvictBefore(cutoff)
	for _, span := range evicted {
		span.Status = trace.StatusError
		span.SetMetadata("evicted", "true")
		span.Finish(time.Now())
		if err := c.sink.Ingest(span); err != nil {
			c.log.WithError(err).Warn("span sink rejected evicted span")
		}
	}
	return len(evicted)
}

// OriginCacheStats exposes the origin filter's memoization counters.
func (c *Coordinator) OriginCacheStats() (hits, misses uint64) {
	return c.filter.Stats()
}

// Close flushes the span sink. Pending operations are not evicted; they
// are simply forgotten with the coordinator.
func (c *Coordinator) Close() error {
	return c.sink.Flush(context.Background())
}
