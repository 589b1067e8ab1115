package model

import (
	"errors"
	"time"
)

// Span is the rendering interval of one named unit. It is created on first reference, started
// when rendering begins and closed once when rendering ends. The first end is never changed;
// a unit rendered again after closing adds another interval to the span's accumulated time.
type Span struct {
	name      string
	kind      UnitKind
	parent    *Span
	children  []*Span
	startTime time.Time
	endTime   time.Time
	started   bool
	closed    bool

	renders     int
	rerendered  time.Duration
	reopenedAt  time.Time
	rerendering bool
}

func newSpan(name string, kind UnitKind) *Span {
	return &Span{
		name: name,
		kind: kind,
	}
}

func (s *Span) Name() string {
	return s.name
}

func (s *Span) Kind() UnitKind {
	return s.kind
}

func (s *Span) StartTime() time.Time {
	return s.startTime
}

// EndTime returns the first closing time and false while the span has never closed.
func (s *Span) EndTime() (time.Time, bool) {
	return s.endTime, s.closed
}

func (s *Span) ParentName() string {
	if s.parent == nil {
		return ""
	}
	return s.parent.name
}

func (s *Span) IsStarted() bool {
	return s.started
}

func (s *Span) IsClosed() bool {
	return s.closed
}

// RenderCount is the number of intervals that have closed.
func (s *Span) RenderCount() int {
	return s.renders
}

// Start (re)starts timing at the given instant. An open span restarts. A closed span opens a
// further interval and keeps its parent.
func (s *Span) Start(at time.Time, parent *Span) {
	if s.closed {
		s.reopenedAt = at
		s.rerendering = true
		return
	}
	if parent.hasAncestor(s) {
		parent = s.parent
	}
	if s.parent != parent {
		if s.parent != nil {
			s.parent.removeChild(s)
		}
		if parent != nil {
			parent.children = append(parent.children, s)
		}
		s.parent = parent
	}
	s.startTime = at
	s.started = true
}

func (s *Span) Complete(at time.Time) error {
	if s.rerendering {
		if at.Before(s.reopenedAt) {
			at = s.reopenedAt
		}
		s.rerendered += at.Sub(s.reopenedAt)
		s.rerendering = false
		s.renders++
		return nil
	}
	if s.closed {
		return ErrSpanAlreadyClosed
	}
	if !s.started {
		return ErrSpanNotStarted
	}
	if at.Before(s.startTime) {
		at = s.startTime
	}
	s.endTime = at
	s.closed = true
	s.renders++
	return nil
}

// Duration is the sum of every closed interval. It is zero until the span first closes.
func (s *Span) Duration() time.Duration {
	if !s.closed {
		return 0
	}
	return s.endTime.Sub(s.startTime) + s.rerendered
}

// ExclusiveDuration is the span's duration minus the durations of its closed children.
func (s *Span) ExclusiveDuration() time.Duration {
	if !s.closed {
		return 0
	}
	exclusive := s.Duration()
	for _, child := range s.children {
		exclusive -= child.Duration()
	}
	if exclusive < 0 {
		return 0
	}
	return exclusive
}

// hasAncestor reports whether other is s or one of its parents.
func (s *Span) hasAncestor(other *Span) bool {
	for current := s; current != nil; current = current.parent {
		if current == other {
			return true
		}
	}
	return false
}

func (s *Span) removeChild(child *Span) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

var (
	ErrSpanNotFound      = errors.New("span not found in registry")
	ErrSpanAlreadyClosed = errors.New("span has already been closed")
	ErrSpanNotStarted    = errors.New("span has not been started")
)
