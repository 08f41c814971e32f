// Package matcher implements the configurable URL matchers that decide
// which outgoing endpoints are eligible for tracing.
package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// URLMatcherConfig is the plain configuration form of a matcher.
type URLMatcherConfig struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

// URLMatcher matches target URLs by kind: "any", "exact", "contains",
// "prefix", or "regex". The zero value matches nothing; matchers are
// built through YAML unmarshalling, envconfig decoding, or
// CreateURLMatcher, all of which validate the kind and compile patterns
// up front.
type URLMatcher struct {
	Kind  string `yaml:"kind"`
	match func(string) bool
	regex *regexp.Regexp
	Value string `yaml:"value"`
}

// CreateURLMatcher builds a matcher from its configuration form.
func CreateURLMatcher(config URLMatcherConfig) (URLMatcher, error) {
	matcher := URLMatcher{}
	err := matcher.init(config)
	return matcher, err
}

// UnmarshalYAML unmarshals and validates the yaml config for matching a
// target URL.
func (matcher *URLMatcher) UnmarshalYAML(
	unmarshal func(interface{}) error,
) error {
	config := URLMatcherConfig{}
	err := unmarshal(&config)
	if err != nil {
		return err
	}
	return matcher.init(config)
}

// Decode parses a matcher from its environment-variable form
// "kind:value", e.g. "prefix:/api" or "regex:^/". Used by envconfig.
func (matcher *URLMatcher) Decode(value string) error {
	kind, pattern, _ := strings.Cut(value, ":")
	return matcher.init(URLMatcherConfig{Kind: kind, Value: pattern})
}

func (matcher *URLMatcher) init(config URLMatcherConfig) error {
	var err error
	matcher.Kind = config.Kind
	switch config.Kind {
	case "any":
		matcher.match = matcher.matchAny
	case "exact":
		matcher.match = matcher.matchExact
	case "contains":
		matcher.match = matcher.matchContains
	case "prefix":
		matcher.match = matcher.matchPrefix
	case "regex":
		matcher.regex, err = regexp.Compile(config.Value)
		if err != nil {
			return err
		}
		matcher.match = matcher.matchRegex
	default:
		return fmt.Errorf("unknown matcher kind \"%s\"", config.Kind)
	}
	matcher.Value = config.Value
	return nil
}

// Match reports whether the matcher accepts the URL.
func (matcher *URLMatcher) Match(url string) bool {
	if matcher.match == nil {
		return false
	}
	return matcher.match(url)
}

func (matcher *URLMatcher) matchAny(value string) bool {
	return true
}

func (matcher *URLMatcher) matchExact(value string) bool {
	return value == matcher.Value
}

func (matcher *URLMatcher) matchContains(value string) bool {
	return strings.Contains(value, matcher.Value)
}

func (matcher *URLMatcher) matchPrefix(value string) bool {
	return strings.HasPrefix(value, matcher.Value)
}

func (matcher *URLMatcher) matchRegex(value string) bool {
	return matcher.regex.MatchString(value)
}

// Match reports whether at least one matcher in the ordered list accepts
// the URL.
func Match(matchers []URLMatcher, url string) bool {
	for _, matcher := range matchers {
		if matcher.Match(url) {
			return true
		}
	}
	return false
}
