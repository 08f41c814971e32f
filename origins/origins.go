// Package origins decides which target URLs are eligible for tracing.
//
// A URL is eligible when it matches at least one configured origin
// matcher, does not hit the engine's own reporting endpoint (tracing the
// trace reporter would feed back into itself forever), and passes the
// caller's optional predicate. Decisions are memoized per URL string
// behind an LRU cap, since instrumented processes tend to call the same
// handful of endpoints over and over.
package origins

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/perimetric/tracewire/util"
	"github.com/perimetric/tracewire/util/matcher"
)

// DefaultCacheSize bounds the memoization cache when no size is
// configured.
const DefaultCacheSize = 512

// DefaultMatchers returns the default origin eligibility: relative URLs
// and anything on localhost.
func DefaultMatchers() []matcher.URLMatcher {
	relative, _ := matcher.CreateURLMatcher(
		matcher.URLMatcherConfig{Kind: "regex", Value: "^/"})
	local, _ := matcher.CreateURLMatcher(
		matcher.URLMatcherConfig{Kind: "contains", Value: "localhost"})
	return []matcher.URLMatcher{relative, local}
}

// Filter answers "should this URL be traced" and memoizes its answers.
type Filter struct {
	matchers  []matcher.URLMatcher
	deny      util.Regexp
	predicate func(url string) bool

	size   int
	cache  *lru.Cache
	hits   uint64
	misses uint64
}

// FilterOption configures NewFilter.
type FilterOption func(*Filter)

// WithDenyPattern sets the reporting-endpoint pattern. URLs matching it
// are never traced, regardless of the matcher list.
func WithDenyPattern(pattern util.Regexp) FilterOption {
	return func(f *Filter) {
		f.deny = pattern
	}
}

// WithPredicate adds a caller-supplied restriction. It is ANDed with the
// matcher result: it can veto a URL the matchers accepted, never widen
// eligibility. It must be pure, as its result is memoized with the rest
// of the decision.
func WithPredicate(predicate func(url string) bool) FilterOption {
	return func(f *Filter) {
		f.predicate = predicate
	}
}

// WithCacheSize caps the memoization cache at the given number of URLs.
func WithCacheSize(size int) FilterOption {
	return func(f *Filter) {
		f.size = size
	}
}

// NewFilter builds a filter over the given ordered matcher list. A nil or
// empty list falls back to DefaultMatchers.
func NewFilter(matchers []matcher.URLMatcher, opts ...FilterOption) (*Filter, error) {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	f := &Filter{
		matchers: matchers,
		size:     DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	cache, err := lru.New(f.size)
	if err != nil {
		return nil, errors.Wrap(err, "creating origin cache")
	}
	f.cache = cache
	return f, nil
}

// Allow reports whether the URL is eligible for span creation and header
// injection. Repeated calls with the same URL are served from the cache
// without re-running any matcher.
func (f *Filter) Allow(url string) bool {
	if cached, ok := f.cache.Get(url); ok {
		atomic.AddUint64(&f.hits, 1)
		return cached.(bool)
	}
	atomic.AddUint64(&f.misses, 1)

	allowed := matcher.Match(f.matchers, url) && !f.deny.MatchString(url)
	if allowed && f.predicate != nil {
		allowed = f.predicate(url)
	}
	f.cache.Add(url, allowed)
	return allowed
}

// Stats returns the number of memoized and computed decisions so far.
// Misses count one full evaluation of the matcher list each.
func (f *Filter) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&f.hits), atomic.LoadUint64(&f.misses)
}
