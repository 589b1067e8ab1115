package model

import (
	"fmt"
	"time"
)

// SpanRegistry owns the spans of one request. Spans are kept in creation order and are never
// removed. The registry is not safe for concurrent use; RequestProfile serializes access to it.
type SpanRegistry struct {
	byName     map[string]*Span
	ordered    []*Span
	active     []*Span
	consistent bool
}

func NewSpanRegistry() *SpanRegistry {
	return &SpanRegistry{
		byName: make(map[string]*Span),
	}
}

// CreateOrFind returns the span registered under name, creating and appending it on a miss.
func (r *SpanRegistry) CreateOrFind(name string, kind UnitKind) *Span {
	if span, ok := r.byName[name]; ok {
		return span
	}
	span := newSpan(name, kind)
	r.byName[name] = span
	r.ordered = append(r.ordered, span)
	r.consistent = false
	return span
}

// Get is a strict lookup and never creates a span.
func (r *SpanRegistry) Get(name string) (*Span, error) {
	span, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpanNotFound, name)
	}
	return span, nil
}

// Begin starts (or restarts) the span for name, nested under the innermost span still rendering.
// A candidate parent that already descends from the span is ignored so parents never form a cycle.
func (r *SpanRegistry) Begin(name string, kind UnitKind, at time.Time) *Span {
	span := r.CreateOrFind(name, kind)
	r.removeActive(span)
	var parent *Span
	if len(r.active) > 0 {
		parent = r.active[len(r.active)-1]
	}
	span.Start(at, parent)
	r.active = append(r.active, span)
	r.consistent = false
	return span
}

// End closes the span for name. A name that was never begun fails with ErrSpanNotFound.
func (r *SpanRegistry) End(name string, at time.Time) (*Span, error) {
	span, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := span.Complete(at); err != nil {
		return nil, fmt.Errorf("failed to complete span %s: %w", name, err)
	}
	r.removeActive(span)
	r.consistent = false
	return span, nil
}

// TotalRenderingTime sums every closed interval of every span. Open intervals contribute nothing.
func (r *SpanRegistry) TotalRenderingTime() time.Duration {
	var total time.Duration
	for _, span := range r.ordered {
		total += span.Duration()
	}
	return total
}

// MarkConsistent flags the registry as reconciled and returns the names of spans that never
// closed or are rendering again.
func (r *SpanRegistry) MarkConsistent() []string {
	var open []string
	for _, span := range r.ordered {
		if !span.IsClosed() || span.rerendering {
			open = append(open, span.name)
		}
	}
	r.consistent = true
	return open
}

func (r *SpanRegistry) IsConsistent() bool {
	return r.consistent
}

func (r *SpanRegistry) Len() int {
	return len(r.ordered)
}

// Spans returns the spans in creation order.
func (r *SpanRegistry) Spans() []*Span {
	spans := make([]*Span, len(r.ordered))
	copy(spans, r.ordered)
	return spans
}

func (r *SpanRegistry) removeActive(span *Span) {
	for i := len(r.active) - 1; i >= 0; i-- {
		if r.active[i] == span {
			r.active = append(r.active[:i], r.active[i+1:]...)
			return
		}
	}
}
