package model

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// RequestMeta is the identity of a request as supplied by the host transport at request start.
type RequestMeta struct {
	StoreID       string
	ClientAddress string
	Method        string
	Path          string
	Timestamp     time.Time
}

// ResourceUsage is a point-in-time reading taken from a sampler.
type ResourceUsage struct {
	Elapsed       time.Duration
	PeakMemory    uint64
	CurrentMemory uint64
}

// RequestProfile is the telemetry captured for one request. Every mutation is serialized by the
// profile's mutex and is rejected with ErrAlreadyFinalized once Finalize has run, so a late
// lifecycle event can never half-apply to a profile that is being persisted.
type RequestProfile struct {
	mu sync.Mutex

	token         string
	storeID       string
	clientAddress string
	method        string
	requestPath   string
	timestamp     time.Time

	responseCode  int
	totalDuration time.Duration
	peakMemory    uint64
	currentMemory uint64
	renderingTime time.Duration
	openSpans     []string

	actions   []ActionRecord
	loads     []LoadRecord
	structure []StructuralRecord
	layout    *LayoutRecord
	spans     *SpanRegistry
	logs      []LogRecord
	queries   []QueryRecord
	timers    []TimerRecord

	revision  uint64
	finalized bool
}

func NewRequestProfile(token string, meta RequestMeta) *RequestProfile {
	return &RequestProfile{
		token:         token,
		storeID:       meta.StoreID,
		clientAddress: meta.ClientAddress,
		method:        meta.Method,
		requestPath:   meta.Path,
		timestamp:     meta.Timestamp,
		spans:         NewSpanRegistry(),
		revision:      1,
	}
}

func (p *RequestProfile) Token() string {
	return p.token
}

// mutate runs fn under the lock unless the profile is finalized, bumping the revision on success.
func (p *RequestProfile) mutate(fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finalized {
		return ErrAlreadyFinalized
	}
	if err := fn(); err != nil {
		return err
	}
	p.revision++
	return nil
}

// RecordAction appends the action, or updates the existing record for the same controller and
// action in place.
func (p *RequestProfile) RecordAction(action ActionRecord) error {
	return p.mutate(func() error {
		for i := range p.actions {
			if p.actions[i].sameAction(action) {
				p.actions[i].merge(action)
				return nil
			}
		}
		p.actions = append(p.actions, action)
		return nil
	})
}

func (p *RequestProfile) AddLoad(load LoadRecord) error {
	return p.mutate(func() error {
		p.loads = append(p.loads, load)
		return nil
	})
}

// AddStructure creates or finds the unit's span and records the unit once per name.
func (p *RequestProfile) AddStructure(unit StructuralUnit) error {
	return p.mutate(func() error {
		p.spans.CreateOrFind(unit.Name, unit.Kind)
		record := NewStructuralRecord(unit)
		for i := range p.structure {
			if p.structure[i].Name == unit.Name {
				p.structure[i] = record
				return nil
			}
		}
		p.structure = append(p.structure, record)
		return nil
	})
}

func (p *RequestProfile) SetLayout(structural StructuralContext) error {
	return p.mutate(func() error {
		handles := make([]string, len(structural.Handles))
		copy(handles, structural.Handles)
		p.layout = &LayoutRecord{
			Handles: handles,
			Design:  structural.Design,
			Theme:   structural.Theme,
		}
		return nil
	})
}

func (p *RequestProfile) StartSpan(unit RenderUnit, at time.Time) error {
	return p.mutate(func() error {
		p.spans.Begin(unit.Name, unit.Kind, at)
		return nil
	})
}

func (p *RequestProfile) CompleteSpan(name string, at time.Time) error {
	return p.mutate(func() error {
		_, err := p.spans.End(name, at)
		return err
	})
}

func (p *RequestProfile) AddLog(record LogRecord) error {
	return p.mutate(func() error {
		p.logs = append(p.logs, record)
		return nil
	})
}

func (p *RequestProfile) AddQuery(query QueryRecord) error {
	return p.mutate(func() error {
		p.queries = append(p.queries, query)
		return nil
	})
}

// StartTimer starts the named timer, creating it on first use. A running timer restarts.
func (p *RequestProfile) StartTimer(name string, at time.Time) error {
	return p.mutate(func() error {
		for i := range p.timers {
			if p.timers[i].Name == name {
				p.timers[i].start(at)
				return nil
			}
		}
		timer := TimerRecord{Name: name}
		timer.start(at)
		p.timers = append(p.timers, timer)
		return nil
	})
}

func (p *RequestProfile) StopTimer(name string, at time.Time) error {
	return p.mutate(func() error {
		for i := range p.timers {
			if p.timers[i].Name == name {
				return p.timers[i].stop(at)
			}
		}
		return fmt.Errorf("%w: %s", ErrTimerNotFound, name)
	})
}

// Finalize applies the closing response code and resource reading, reconciles the rendering
// total and makes the profile immutable, all under one hold of the lock. A zero code keeps the
// current one. It returns the names of spans left open; only the first call succeeds.
func (p *RequestProfile) Finalize(code int, usage ResourceUsage) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finalized {
		return nil, ErrAlreadyFinalized
	}
	if code != 0 {
		p.responseCode = code
	}
	p.totalDuration = usage.Elapsed
	p.peakMemory = usage.PeakMemory
	p.currentMemory = usage.CurrentMemory
	p.renderingTime = p.spans.TotalRenderingTime()
	p.openSpans = p.spans.MarkConsistent()
	p.finalized = true
	p.revision++
	return append([]string{}, p.openSpans...), nil
}

func (p *RequestProfile) IsFinalized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finalized
}

func (p *RequestProfile) ResponseCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.responseCode
}

func (p *RequestProfile) RenderingTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderingTime
}

func (p *RequestProfile) Revision() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revision
}

func (p *RequestProfile) SpanCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spans.Len()
}

// Span returns the span registered under name or ErrSpanNotFound.
func (p *RequestProfile) Span(name string) (*Span, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spans.Get(name)
}

func (p *RequestProfile) Actions() []ActionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	actions := make([]ActionRecord, len(p.actions))
	copy(actions, p.actions)
	return actions
}

func (p *RequestProfile) Loads() []LoadRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	loads := make([]LoadRecord, len(p.loads))
	copy(loads, p.loads)
	return loads
}

func (p *RequestProfile) Logs() []LogRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	logs := make([]LogRecord, len(p.logs))
	copy(logs, p.logs)
	return logs
}

func (p *RequestProfile) Timers() []TimerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	timers := make([]TimerRecord, len(p.timers))
	copy(timers, p.timers)
	return timers
}

func (p *RequestProfile) Structure() []StructuralRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	structure := make([]StructuralRecord, len(p.structure))
	copy(structure, p.structure)
	return structure
}

var (
	ErrAlreadyFinalized = errors.New("request profile has already been finalized")
	ErrTimerNotFound    = errors.New("timer not found in profile")
	ErrTimerNotRunning  = errors.New("timer is not running")
)
