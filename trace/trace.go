// Package trace holds the data model for distributed traces: identifiers,
// span contexts, spans, and transactions, together with the sampling
// decision machinery and the wire codec for cross-service propagation.
package trace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
)

// TraceID identifies a whole trace tree. It is 32 lowercase hex characters
// and is shared by every span in the tree.
type TraceID string

// SpanID identifies a single span within a trace. It is 16 lowercase hex
// characters.
type SpanID string

// NewTraceID returns a fresh random TraceID.
func NewTraceID() TraceID {
	id, err := uuid.NewV4()
	if err != nil {
		return TraceID(randomHex(16))
	}
	return TraceID(hex.EncodeToString(id.Bytes()))
}

// NewSpanID returns a fresh random SpanID.
func NewSpanID() SpanID {
	id, err := uuid.NewV4()
	if err != nil {
		return SpanID(randomHex(8))
	}
	return SpanID(hex.EncodeToString(id.Bytes()[:8]))
}

func randomHex(n int) string {
	buf := make([]byte, n)
	// rand.Read on crypto/rand only fails when the platform entropy
	// source is broken, in which case uuid generation failed too. A
	// zeroed id is still structurally valid.
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// SamplingDecision is the tri-state answer to "are this trace's spans
// recorded". Unset is a real, observable state and is distinct from
// NotSampled: a span whose transaction never decided is not the same as a
// span whose transaction decided against recording.
type SamplingDecision int

const (
	// DecisionUnset means no decision has been made.
	DecisionUnset SamplingDecision = iota
	// DecisionSampled means the trace's spans are recorded.
	DecisionSampled
	// DecisionNotSampled means the trace's spans are discarded.
	DecisionNotSampled
)

func (d SamplingDecision) String() string {
	switch d {
	case DecisionSampled:
		return "sampled"
	case DecisionNotSampled:
		return "not_sampled"
	default:
		return "unset"
	}
}

// Sampled reports whether the decision is affirmatively Sampled.
func (d SamplingDecision) Sampled() bool {
	return d == DecisionSampled
}

// decisionFromBool maps a plain boolean onto the tri-state enum.
func decisionFromBool(b bool) SamplingDecision {
	if b {
		return DecisionSampled
	}
	return DecisionNotSampled
}

// SpanContext carries the identifiers and the sampling decision that must
// survive a process boundary. It is immutable after span creation; the
// Sampled field is set exactly once, at transaction creation, and every
// descendant span copies it verbatim.
type SpanContext struct {
	TraceID      TraceID
	SpanID       SpanID
	ParentSpanID SpanID // empty for a root span
	Sampled      SamplingDecision
}

// SpanStatus describes the terminal state of a span.
type SpanStatus int

const (
	// StatusPending is the state of a span that has not finished.
	StatusPending SpanStatus = iota
	// StatusOK is a finished span whose operation succeeded.
	StatusOK
	// StatusError is a finished span whose operation failed.
	StatusError
)

func (s SpanStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// StatusFromHTTP maps an HTTP response code onto a span status. A zero
// code means the instrumentation source could not observe a response.
func StatusFromHTTP(code int) SpanStatus {
	if code == 0 {
		return StatusPending
	}
	if code >= 400 {
		return StatusError
	}
	return StatusOK
}

// Span is a single timed operation within a trace.
type Span struct {
	Context SpanContext

	// Op names the kind of operation, e.g. the transport that carried
	// it. Description is the human-readable form, conventionally
	// "<method> <url>".
	Op          string
	Description string

	Start      time.Time
	End        time.Time
	Status     SpanStatus
	HTTPStatus int
	Metadata   map[string]string

	txn *Transaction
}

// Transaction returns the transaction that owns this span. It is nil only
// for spans constructed outside a transaction, which the library itself
// never does.
func (s *Span) Transaction() *Transaction {
	return s.txn
}

// Finished reports whether the span has an end timestamp.
func (s *Span) Finished() bool {
	return !s.End.IsZero()
}

// Finish sets the end timestamp and resolves a still-pending status to OK.
// Finishing an already-finished span is a no-op, so duplicate completion
// signals cannot rewrite history.
func (s *Span) Finish(end time.Time) {
	if s.Finished() {
		return
	}
	if end.IsZero() {
		end = time.Now()
	}
	s.End = end
	if s.Status == StatusPending {
		s.Status = StatusOK
	}
}

// FinishHTTP finishes the span with a status derived from an HTTP response
// code. A zero code finishes the span as OK, matching an operation that
// completed without an observable response.
func (s *Span) FinishHTTP(code int, end time.Time) {
	if s.Finished() {
		return
	}
	s.HTTPStatus = code
	if code != 0 {
		s.Status = StatusFromHTTP(code)
		s.SetMetadata("http.status_code", fmt.Sprintf("%d", code))
	}
	s.Finish(end)
}

// SetMetadata records an arbitrary key/value on the span.
func (s *Span) SetMetadata(key, value string) {
	if s.Metadata == nil {
		s.Metadata = map[string]string{}
	}
	s.Metadata[key] = value
}

// Duration is the difference between the start and end timestamps. It
// returns -1 for a span that has not finished.
func (s *Span) Duration() time.Duration {
	if s.End.IsZero() {
		return -1
	}
	return s.End.Sub(s.Start)
}

// Transaction is the root of a trace tree. It owns every descendant span
// and it is the unit at which the sampling decision is fixed: the decision
// computed at construction never changes, and children copy it rather
// than recompute it.
type Transaction struct {
	Name string

	root     *Span
	sampling SamplingContext

	mtx   sync.Mutex
	spans []*Span
}

// TransactionOption configures StartTransaction. The style borrows from
// Dave Cheney's functional options API.
type TransactionOption func(*txnSettings)

type txnSettings struct {
	explicit SamplingDecision
	parent   *SpanContext
	metadata map[string]string
	request  *RequestSnapshot
	start    time.Time
	policy   SamplingPolicy
}

// WithExplicitSampled forces the sampling decision at creation time. It
// takes precedence over any configured sampler, inherited parent decision,
// or sample rate.
func WithExplicitSampled(sampled bool) TransactionOption {
	return func(s *txnSettings) {
		s.explicit = decisionFromBool(sampled)
	}
}

// WithParent continues the trace described by an inbound span context,
// typically one recovered by ParseHeader. The transaction joins the
// parent's trace tree and, absent an explicit override or a configured
// sampler, inherits the parent's sampling decision verbatim.
func WithParent(parent SpanContext) TransactionOption {
	return func(s *txnSettings) {
		p := parent
		s.parent = &p
	}
}

// WithMetadata attaches string metadata to the transaction's root span and
// exposes it to a configured sampler through the SamplingContext.
func WithMetadata(metadata map[string]string) TransactionOption {
	return func(s *txnSettings) {
		s.metadata = metadata
	}
}

// WithRequest snapshots the inbound request that caused this transaction,
// for samplers that make per-request decisions.
func WithRequest(request *RequestSnapshot) TransactionOption {
	return func(s *txnSettings) {
		s.request = request
	}
}

// WithStartTime overrides the transaction's start timestamp.
func WithStartTime(start time.Time) TransactionOption {
	return func(s *txnSettings) {
		s.start = start
	}
}

// WithSamplingPolicy supplies the sampler, sample rate, and diagnostics
// used to compute the decision.
func WithSamplingPolicy(policy SamplingPolicy) TransactionOption {
	return func(s *txnSettings) {
		s.policy = policy
	}
}

// StartTransaction creates the root span of a new trace tree and fixes its
// sampling decision. If a parent context is supplied, the transaction
// continues the parent's trace instead of starting a fresh one.
func StartTransaction(name string, opts ...TransactionOption) *Transaction {
	settings := txnSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	parentDecision := DecisionUnset
	traceID := NewTraceID()
	parentSpanID := SpanID("")
	if settings.parent != nil {
		traceID = settings.parent.TraceID
		parentSpanID = settings.parent.SpanID
		parentDecision = settings.parent.Sampled
	}

	sctx := SamplingContext{
		TransactionName: name,
		Metadata:        settings.metadata,
		ParentDecision:  parentDecision,
		Request:         settings.request,
	}

	settings.policy.Explicit = settings.explicit
	decision := settings.policy.Decide(sctx)

	start := settings.start
	if start.IsZero() {
		start = time.Now()
	}

	txn := &Transaction{
		Name:     name,
		sampling: sctx,
	}
	txn.root = &Span{
		Context: SpanContext{
			TraceID:      traceID,
			SpanID:       NewSpanID(),
			ParentSpanID: parentSpanID,
			Sampled:      decision,
		},
		Op:       "transaction",
		Start:    start,
		Metadata: settings.metadata,
		txn:      txn,
	}
	return txn
}

// Root returns the transaction's root span.
func (t *Transaction) Root() *Span {
	return t.root
}

// Context returns the root span's context. Children of the transaction
// are parented on this context's SpanID.
func (t *Transaction) Context() SpanContext {
	return t.root.Context
}

// Sampled reports the transaction's fixed decision.
func (t *Transaction) Sampled() SamplingDecision {
	return t.root.Context.Sampled
}

// SamplingContext returns the snapshot that the decision was computed
// from.
func (t *Transaction) SamplingContext() SamplingContext {
	return t.sampling
}

// StartSpan creates a child span of the transaction's root. The child
// shares the transaction's TraceID and copies, never recomputes, the fixed
// sampling decision. Safe for concurrent use.
func (t *Transaction) StartSpan(op, description string) *Span {
	span := &Span{
		Context: SpanContext{
			TraceID:      t.root.Context.TraceID,
			SpanID:       NewSpanID(),
			ParentSpanID: t.root.Context.SpanID,
			Sampled:      t.root.Context.Sampled,
		},
		Op:          op,
		Description: description,
		Start:       time.Now(),
		txn:         t,
	}

	t.mtx.Lock()
	t.spans = append(t.spans, span)
	t.mtx.Unlock()
	return span
}

// Spans returns the descendant spans created so far, in creation order.
func (t *Transaction) Spans() []*Span {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	out := make([]*Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// Finish finishes the transaction's root span.
func (t *Transaction) Finish(end time.Time) {
	t.root.Finish(end)
}
