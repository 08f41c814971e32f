package tracewire

import (
	"strconv"

	"github.com/perimetric/tracewire/origins"
	"github.com/perimetric/tracewire/util"
	"github.com/perimetric/tracewire/util/matcher"
)

// Config is the file- and environment-configurable surface of the
// coordinator. Code-only knobs (sampler function, URL predicate, sink)
// are passed as options to New instead.
type Config struct {
	// OriginMatchers lists the endpoints eligible for span creation
	// and header injection. Empty means the default origins: relative
	// URLs and localhost.
	OriginMatchers []matcher.URLMatcher `yaml:"origin_matchers" envconfig:"ORIGIN_MATCHERS"`

	// ReportingEndpoint is the pattern of the engine's own span
	// reporting endpoint. Matching URLs are never traced.
	ReportingEndpoint util.Regexp `yaml:"reporting_endpoint" envconfig:"REPORTING_ENDPOINT"`

	// EnabledTransports enables tracing per transport kind. Empty
	// means the default set: fetch and xhr.
	EnabledTransports []TransportKind `yaml:"enabled_transports" envconfig:"ENABLED_TRANSPORTS"`

	// OriginCacheSize caps the origin filter's memoization cache.
	// Zero means origins.DefaultCacheSize.
	OriginCacheSize int `yaml:"origin_cache_size" envconfig:"ORIGIN_CACHE_SIZE"`

	// SampleRate is the fixed sample rate: a bool or a number in
	// [0,1]. Invalid values disable tracing with a diagnostic rather
	// than failing the host application.
	SampleRate Rate `yaml:"sample_rate" envconfig:"SAMPLE_RATE"`
}

// Rate holds a configured sample rate without judging it. Validation
// happens in the sampling engine at transaction creation, where an
// invalid value turns into a diagnostic and a NotSampled decision instead
// of a config load failure.
type Rate struct {
	raw interface{}
	set bool
}

// RateOf wraps a literal rate value for programmatic configuration.
func RateOf(v interface{}) Rate {
	return Rate{raw: v, set: true}
}

// Raw returns the configured value, or nil when unset.
func (r Rate) Raw() interface{} {
	if !r.set {
		return nil
	}
	return r.raw
}

// IsSet reports whether a rate was configured at all.
func (r Rate) IsSet() bool {
	return r.set
}

// UnmarshalYAML captures whatever the config file holds, valid or not.
func (r *Rate) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}
	r.raw = v
	r.set = v != nil
	return nil
}

// Decode parses the environment-variable form. "true"/"false" become
// booleans and anything number-like becomes a float; other strings are
// kept verbatim for the engine to reject with a diagnostic. Used by
// envconfig.
func (r *Rate) Decode(value string) error {
	r.set = true
	switch value {
	case "true":
		r.raw = true
	case "false":
		r.raw = false
	default:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			r.raw = f
		} else {
			r.raw = value
		}
	}
	return nil
}

// applyDefaults fills the zero values a freshly-unmarshalled or
// zero-constructed Config leaves behind.
func (c *Config) applyDefaults() {
	if len(c.OriginMatchers) == 0 {
		c.OriginMatchers = origins.DefaultMatchers()
	}
	if len(c.EnabledTransports) == 0 {
		c.EnabledTransports = []TransportKind{TransportFetch, TransportXHR}
	}
	if c.OriginCacheSize == 0 {
		c.OriginCacheSize = origins.DefaultCacheSize
	}
}
