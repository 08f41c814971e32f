package tracewire

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/perimetric/tracewire/trace"
)

// ErrKeyInUse is returned by pendingSpans.Begin when the correlation key
// already has a live entry. That is an integration bug in the
// instrumentation source (two starts without an end), and the prior entry
// is deliberately preserved: silently overwriting it would leak the live
// span and misattribute its completion.
var ErrKeyInUse = errors.New("correlation key already has a pending span")

type pendingEntry struct {
	span    *trace.Span
	created time.Time
}

// pendingSpans correlates asynchronous operation completions back to the
// spans opened for their starts. Entries live strictly between a start
// and its matching end (or an explicit eviction); a key maps to at most
// one entry at a time. Safe for concurrent use.
//
// The registry performs no implicit expiry. An operation that never
// reports an end leaves its entry behind until EvictBefore is called;
// whether to run such a sweep is the owner's policy decision.
type pendingSpans struct {
	mtx     sync.Mutex
	entries map[string]pendingEntry
}

func newPendingSpans() *pendingSpans {
	return &pendingSpans{entries: map[string]pendingEntry{}}
}

// Begin tracks span under key. Returns ErrKeyInUse, leaving the existing
// entry untouched, if key is already tracked.
func (p *pendingSpans) Begin(key string, span *trace.Span) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if _, exists := p.entries[key]; exists {
		return errors.Wrap(ErrKeyInUse, key)
	}
	p.entries[key] = pendingEntry{span: span, created: time.Now()}
	return nil
}

// End removes and returns the span tracked under key, or nil if the key
// is unknown. Unknown keys are expected: completion signals can arrive
// twice or late, and neither is an error.
func (p *pendingSpans) End(key string) *trace.Span {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	entry, ok := p.entries[key]
	if !ok {
		return nil
	}
	delete(p.entries, key)
	return entry.span
}

// Len reports how many operations are currently pending.
func (p *pendingSpans) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.entries)
}

// EvictBefore removes and returns every entry created before the cutoff.
// It exists so an owner can sweep abandoned operations; the registry
// never calls it on its own.
func (p *pendingSpans) EvictBefore(cutoff time.Time) []*trace.Span {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	var evicted []*trace.Span
	for key, entry := range p.entries {
		if entry.created.Before(cutoff) {
			evicted = append(evicted, entry.span)
			delete(p.entries, key)
		}
	}
	return evicted
}
