package trace

import (
	"errors"
	"regexp"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
)

// ErrCarrierRejected indicates that a propagation carrier refused the
// header write, e.g. by panicking from Set.
var ErrCarrierRejected = errors.New("carrier rejected the propagation header")

// errFoundHeader is a sentinel used to stop ForeachKey iteration early.
var errFoundHeader = errors.New("found propagation header")

// PropagationHeader is the wire name of the header that carries trace
// continuity across service boundaries.
const PropagationHeader = "trace-propagation"

// headerPattern is the full wire grammar:
//
//	trace-id "-" span-id ["-" sampled-flag]
//
// trace-id is exactly 32 lowercase hex characters, span-id exactly 16,
// and the flag is a literal "0" or "1". Anything else is not a valid
// header.
var headerPattern = regexp.MustCompile(`^([0-9a-f]{32})-([0-9a-f]{16})(?:-([01]))?$`)

// MarshalHeader serializes a span context to a propagation header value.
// The sampled flag is omitted when the decision is Unset, so a receiver
// can distinguish "undecided upstream" from an explicit no.
func MarshalHeader(c SpanContext) string {
	var b strings.Builder
	b.WriteString(string(c.TraceID))
	b.WriteByte('-')
	b.WriteString(string(c.SpanID))
	switch c.Sampled {
	case DecisionSampled:
		b.WriteString("-1")
	case DecisionNotSampled:
		b.WriteString("-0")
	}
	return b.String()
}

// ParseHeader parses a propagation header value. A value that does not
// match the grammar exactly yields (zero, false): a malformed header must
// behave identically to a missing one, so the receiver starts a fresh
// trace rather than continuing a corrupted one. The returned context's
// SpanID names the upstream caller's span; ParentSpanID is never carried
// on the wire.
func ParseHeader(value string) (SpanContext, bool) {
	groups := headerPattern.FindStringSubmatch(value)
	if groups == nil {
		return SpanContext{}, false
	}
	c := SpanContext{
		TraceID: TraceID(groups[1]),
		SpanID:  SpanID(groups[2]),
	}
	switch groups[3] {
	case "1":
		c.Sampled = DecisionSampled
	case "0":
		c.Sampled = DecisionNotSampled
	}
	return c, true
}

// Inject writes the propagation header for c into an opentracing text-map
// carrier, such as opentracing.HTTPHeadersCarrier. Carriers that panic on
// mutation are reported as errors rather than propagated.
func Inject(c SpanContext, carrier opentracing.TextMapWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrCarrierRejected
		}
	}()
	carrier.Set(PropagationHeader, MarshalHeader(c))
	return nil
}

// Extract reads the propagation header from an opentracing text-map
// carrier. Key lookup is case-insensitive, since HTTP header carriers
// canonicalize names. A missing or malformed header yields (zero, false).
func Extract(carrier opentracing.TextMapReader) (SpanContext, bool) {
	var value string
	carrier.ForeachKey(func(k, v string) error {
		if strings.EqualFold(k, PropagationHeader) {
			value = v
			// terminate iteration early by returning an error
			return errFoundHeader
		}
		return nil
	})
	if value == "" {
		return SpanContext{}, false
	}
	return ParseHeader(value)
}
