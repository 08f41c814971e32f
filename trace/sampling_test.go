package trace

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diagnosticLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return logrus.NewEntry(logger), hook
}

func TestDecideFixedRates(t *testing.T) {
	always := SamplingPolicy{Rate: 1.0}
	never := SamplingPolicy{Rate: 0.0}

	for i := 0; i < 20; i++ {
		assert.Equal(t, DecisionSampled, always.Decide(SamplingContext{}))
		assert.Equal(t, DecisionNotSampled, never.Decide(SamplingContext{}))
	}
}

func TestDecideBooleanRate(t *testing.T) {
	assert.Equal(t, DecisionSampled,
		SamplingPolicy{Rate: true}.Decide(SamplingContext{}))
	assert.Equal(t, DecisionNotSampled,
		SamplingPolicy{Rate: false}.Decide(SamplingContext{}))
}

func TestDecideExplicitWinsOverEverything(t *testing.T) {
	sampler := func(SamplingContext) interface{} { return true }

	policy := SamplingPolicy{
		Explicit: DecisionNotSampled,
		Sampler:  sampler,
		Rate:     1.0,
	}
	sctx := SamplingContext{ParentDecision: DecisionSampled}
	assert.Equal(t, DecisionNotSampled, policy.Decide(sctx))

	policy.Explicit = DecisionSampled
	policy.Sampler = func(SamplingContext) interface{} { return false }
	policy.Rate = 0.0
	sctx.ParentDecision = DecisionNotSampled
	assert.Equal(t, DecisionSampled, policy.Decide(sctx))
}

func TestDecideSamplerWinsOverParentAndRate(t *testing.T) {
	policy := SamplingPolicy{
		Sampler: func(SamplingContext) interface{} { return false },
		Rate:    1.0,
	}
	sctx := SamplingContext{ParentDecision: DecisionSampled}
	assert.Equal(t, DecisionNotSampled, policy.Decide(sctx))
}

func TestDecideSamplerSeesContext(t *testing.T) {
	var seen SamplingContext
	policy := SamplingPolicy{
		Sampler: func(sctx SamplingContext) interface{} {
			seen = sctx
			return 1.0
		},
	}
	sctx := SamplingContext{
		TransactionName: "checkout",
		Metadata:        map[string]string{"team": "payments"},
		Request:         &RequestSnapshot{Method: "GET", URL: "/checkout"},
	}
	assert.Equal(t, DecisionSampled, policy.Decide(sctx))
	assert.Equal(t, "checkout", seen.TransactionName)
	assert.Equal(t, "payments", seen.Metadata["team"])
	require.NotNil(t, seen.Request)
	assert.Equal(t, "GET", seen.Request.Method)
}

func TestDecideParentBeatsRate(t *testing.T) {
	policy := SamplingPolicy{Rate: 1.0}
	sctx := SamplingContext{ParentDecision: DecisionNotSampled}

	// An upstream "no" propagates unchanged even though the local rate
	// would have sampled everything.
	assert.Equal(t, DecisionNotSampled, policy.Decide(sctx))

	sctx.ParentDecision = DecisionSampled
	policy.Rate = 0.0
	assert.Equal(t, DecisionSampled, policy.Decide(sctx))
}

func TestDecideNothingConfigured(t *testing.T) {
	log, hook := diagnosticLogger()
	policy := SamplingPolicy{Log: log}

	assert.Equal(t, DecisionNotSampled, policy.Decide(SamplingContext{}))
	// Tracing off is a normal state, not an error.
	assert.Empty(t, hook.Entries)
}

func TestDecideInvalidRate(t *testing.T) {
	for _, rate := range []interface{}{
		"not-a-number",
		1.5,
		-0.1,
		[]string{"nope"},
	} {
		log, hook := diagnosticLogger()
		policy := SamplingPolicy{Rate: rate, Log: log}

		assert.Equal(t, DecisionNotSampled, policy.Decide(SamplingContext{}),
			"rate %v", rate)
		require.Len(t, hook.Entries, 1, "rate %v", rate)
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	}
}

func TestDecideInvalidSamplerReturn(t *testing.T) {
	for _, returned := range []interface{}{
		"yes",
		2.0,
		-1,
		nil,
		struct{}{},
	} {
		returned := returned
		log, hook := diagnosticLogger()
		policy := SamplingPolicy{
			Sampler: func(SamplingContext) interface{} { return returned },
			Log:     log,
		}

		assert.Equal(t, DecisionNotSampled, policy.Decide(SamplingContext{}),
			"sampler return %v", returned)
		require.Len(t, hook.Entries, 1)
	}
}

func TestDecideSamplerNumericDraw(t *testing.T) {
	policy := SamplingPolicy{
		Sampler: func(SamplingContext) interface{} { return 0.5 },
		Random:  func() float64 { return 0.4 },
	}
	assert.Equal(t, DecisionSampled, policy.Decide(SamplingContext{}))

	policy.Random = func() float64 { return 0.6 }
	assert.Equal(t, DecisionNotSampled, policy.Decide(SamplingContext{}))
}

func TestCoerceRateIntegers(t *testing.T) {
	decision, probability, fixed, err := coerceRate(1)
	require.NoError(t, err)
	assert.False(t, fixed)
	assert.Equal(t, DecisionUnset, decision)
	assert.Equal(t, 1.0, probability)

	_, probability, _, err = coerceRate(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, probability)

	_, _, _, err = coerceRate(2)
	assert.Error(t, err)
}
