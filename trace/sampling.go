package trace

import (
	"fmt"
	"math"
	"math/rand"
	"net/http"

	"github.com/sirupsen/logrus"
)

// SamplingContext is the read-only snapshot handed to a custom sampler.
type SamplingContext struct {
	TransactionName string
	Metadata        map[string]string

	// ParentDecision is the sampling decision inherited from an
	// upstream service, or DecisionUnset when this transaction starts a
	// fresh trace.
	ParentDecision SamplingDecision

	// Request describes the inbound request that caused the
	// transaction, when one is available.
	Request *RequestSnapshot
}

// RequestSnapshot is a sampler-visible copy of an inbound request.
type RequestSnapshot struct {
	Method      string
	URL         string
	Headers     http.Header
	Cookies     string
	QueryString string
}

// SamplerFunc is a caller-supplied sampling hook. It may return a bool
// (used as the decision directly) or a number in [0,1] (used as a
// probability). Anything else is a configuration error: the engine logs a
// diagnostic and treats tracing as disabled for that transaction.
type SamplerFunc func(SamplingContext) interface{}

// SamplingPolicy bundles everything the decision engine consults. The
// zero value is a valid policy meaning "tracing off".
type SamplingPolicy struct {
	// Explicit, when not Unset, wins over everything else. It
	// represents a decision the caller made at transaction creation.
	Explicit SamplingDecision

	// Sampler, when non-nil, is consulted before any inherited
	// decision or fixed rate.
	Sampler SamplerFunc

	// Rate is an optional fixed sample rate: a bool, or a finite
	// number in [0,1]. nil means unconfigured. Invalid values are
	// diagnosed and treated as "tracing off", never panicked on.
	Rate interface{}

	// Random draws a uniform number in [0,1). rand.Float64 when nil.
	Random func() float64

	// Log receives diagnostics for invalid sampler returns and rates.
	Log *logrus.Entry
}

// Decide computes the sampling decision for one transaction. Precedence,
// first match wins:
//
//  1. Explicit decision passed at transaction creation.
//  2. Configured sampler (its return coerced and validated).
//  3. Inherited parent decision.
//  4. Configured fixed rate.
//  5. Neither configured: tracing is off, NotSampled.
//
// Note that inheritance beats a fixed rate but not a sampler: a sampler is
// an explicit request to re-decide per transaction.
func (p SamplingPolicy) Decide(sctx SamplingContext) SamplingDecision {
	if p.Explicit != DecisionUnset {
		return p.Explicit
	}

	if p.Sampler != nil {
		returned := p.Sampler(sctx)
		decision, probability, fixed, err := coerceRate(returned)
		if err != nil {
			p.diagnose("sampler returned an invalid value, tracing disabled for this transaction", returned, err)
			return DecisionNotSampled
		}
		if fixed {
			return decision
		}
		return p.draw(probability)
	}

	if sctx.ParentDecision != DecisionUnset {
		return sctx.ParentDecision
	}

	if p.Rate != nil {
		decision, probability, fixed, err := coerceRate(p.Rate)
		if err != nil {
			p.diagnose("invalid sample rate, tracing disabled for this transaction", p.Rate, err)
			return DecisionNotSampled
		}
		if fixed {
			return decision
		}
		return p.draw(probability)
	}

	return DecisionNotSampled
}

func (p SamplingPolicy) draw(probability float64) SamplingDecision {
	random := p.Random
	if random == nil {
		random = rand.Float64
	}
	return decisionFromBool(random() < probability)
}

func (p SamplingPolicy) diagnose(message string, value interface{}, err error) {
	log := p.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.WithError(err).WithField("value", fmt.Sprintf("%v", value)).Warn(message)
}

// coerceRate validates a sampler return or configured rate. Booleans are
// fixed decisions; numbers are probabilities and must be finite and in
// [0,1].
func coerceRate(v interface{}) (decision SamplingDecision, probability float64, fixed bool, err error) {
	switch value := v.(type) {
	case bool:
		return decisionFromBool(value), 0, true, nil
	case float64:
		probability = value
	case float32:
		probability = float64(value)
	case int:
		probability = float64(value)
	case int64:
		probability = float64(value)
	case uint:
		probability = float64(value)
	default:
		return DecisionUnset, 0, false, fmt.Errorf("rate must be a bool or a number, got %T", v)
	}
	if math.IsNaN(probability) || math.IsInf(probability, 0) {
		return DecisionUnset, 0, false, fmt.Errorf("rate must be finite, got %v", probability)
	}
	if probability < 0 || probability > 1 {
		return DecisionUnset, 0, false, fmt.Errorf("rate must be between 0 and 1, got %v", probability)
	}
	return DecisionUnset, probability, false, nil
}
