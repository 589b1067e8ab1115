package service

import (
	"errors"
	"github.com/Avi18971911/Lantern/pkg/metrics"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/Avi18971911/Lantern/pkg/profile/policy"
	"github.com/Avi18971911/Lantern/pkg/profile/sampler"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"time"
)

const (
	stageIntermediate = "intermediate"
	stageFinal        = "final"
)

// ProfilePersister accepts profile snapshots for storage. Persist must not block on I/O; a
// later snapshot of the same profile supersedes an earlier one.
type ProfilePersister interface {
	Persist(doc model.ProfileDocument)
}

type ActionInfo struct {
	Controller string
	Action     string
	Route      string
	// Outcome is the status observed after dispatch; zero before dispatch.
	Outcome int
}

type LoadInfo struct {
	Kind       model.LoadKind
	Resource   string
	Identifier string
	Query      string
	Count      int
}

type QueryInfo struct {
	Statement string
	Duration  time.Duration
	Rows      int
	Failed    bool
}

type ResponseInfo struct {
	StatusCode int
}

// LifecycleController turns host lifecycle events into profile mutations. None of its methods
// return errors: every fault is absorbed so the observed request is never affected.
type LifecycleController interface {
	OnRequestStart(meta model.RequestMeta) *RequestScope
	OnPreAction(scope *RequestScope, action ActionInfo)
	OnPostAction(scope *RequestScope, action ActionInfo)
	OnStructuralGenerate(scope *RequestScope, units []model.StructuralUnit, structural model.StructuralContext)
	OnRenderStart(scope *RequestScope, unit model.RenderUnit)
	OnRenderEnd(scope *RequestScope, unit model.RenderUnit)
	OnDataLoad(scope *RequestScope, load LoadInfo)
	OnRequestEnd(scope *RequestScope, response ResponseInfo)
	OnQuery(scope *RequestScope, query QueryInfo)
	StartTimer(scope *RequestScope, name string)
	StopTimer(scope *RequestScope, name string)
	// RequestLogger returns base extended to copy its entries into the request's profile. For a
	// scope that is not captured it returns base unchanged.
	RequestLogger(scope *RequestScope, base *zap.Logger) *zap.Logger
	// Finalize is the guaranteed-run terminal step. The host must arrange for it to run on every
	// exit path of the request; only the first call per scope has an effect.
	Finalize(scope *RequestScope, response ResponseInfo)
}

type LifecycleControllerImpl struct {
	policy    policy.ConfigPolicy
	gate      policy.PersistenceGate
	sampler   sampler.ResourceSampler
	persister ProfilePersister
	metrics   *metrics.ProfilerMetrics
	now       func() time.Time
	newToken  func() string
	logger    *zap.Logger
}

type Option func(*LifecycleControllerImpl)

func WithClock(now func() time.Time) Option {
	return func(lc *LifecycleControllerImpl) {
		lc.now = now
	}
}

func WithMetrics(m *metrics.ProfilerMetrics) Option {
	return func(lc *LifecycleControllerImpl) {
		lc.metrics = m
	}
}

func NewLifecycleControllerImpl(
	configPolicy policy.ConfigPolicy,
	resourceSampler sampler.ResourceSampler,
	persister ProfilePersister,
	logger *zap.Logger,
	opts ...Option,
) *LifecycleControllerImpl {
	lc := &LifecycleControllerImpl{
		policy:    configPolicy,
		gate:      policy.NewPersistenceGate(configPolicy),
		sampler:   resourceSampler,
		persister: persister,
		now:       time.Now,
		newToken:  uuid.NewString,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

func (lc *LifecycleControllerImpl) OnRequestStart(meta model.RequestMeta) *RequestScope {
	lc.metrics.RequestSeen()
	if !lc.policy.CaptureEnabled() || !lc.policy.ClientAllowed(meta.ClientAddress) {
		return &RequestScope{}
	}

	start := lc.now()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = start
	}
	lc.metrics.Captured()
	return &RequestScope{
		capture: true,
		profile: model.NewRequestProfile(lc.newToken(), meta),
		start:   start,
	}
}

func (lc *LifecycleControllerImpl) OnPreAction(scope *RequestScope, action ActionInfo) {
	if !scope.Capturing() {
		return
	}
	err := scope.profile.RecordAction(model.ActionRecord{
		Controller: action.Controller,
		Action:     action.Action,
		Route:      action.Route,
		StartedAt:  lc.now(),
	})
	lc.handleMutationError(scope, "pre_action", err)
}

func (lc *LifecycleControllerImpl) OnPostAction(scope *RequestScope, action ActionInfo) {
	if !scope.Capturing() {
		return
	}
	now := lc.now()
	err := scope.profile.RecordAction(model.ActionRecord{
		Controller: action.Controller,
		Action:     action.Action,
		Route:      action.Route,
		Outcome:    action.Outcome,
		Dispatched: true,
		StartedAt:  now,
		EndedAt:    now,
	})
	lc.handleMutationError(scope, "post_action", err)
}

func (lc *LifecycleControllerImpl) OnStructuralGenerate(
	scope *RequestScope,
	units []model.StructuralUnit,
	structural model.StructuralContext,
) {
	if !scope.Capturing() {
		return
	}
	strict := lc.policy.StrictSkipMode()
	for _, unit := range units {
		if ShouldSkip(unit.Kind, strict) {
			continue
		}
		if err := scope.profile.AddStructure(unit); err != nil {
			lc.handleMutationError(scope, "structural_generate", err)
			return
		}
	}
	if err := scope.profile.SetLayout(structural); err != nil {
		lc.handleMutationError(scope, "structural_generate", err)
		return
	}

	lc.persist(scope, stageIntermediate)
}

func (lc *LifecycleControllerImpl) OnRenderStart(scope *RequestScope, unit model.RenderUnit) {
	if !scope.Capturing() {
		return
	}
	if ShouldSkip(unit.Kind, lc.policy.StrictSkipMode()) {
		return
	}
	err := scope.profile.StartSpan(unit, lc.now())
	lc.handleMutationError(scope, "render_start", err)
}

func (lc *LifecycleControllerImpl) OnRenderEnd(scope *RequestScope, unit model.RenderUnit) {
	if !scope.Capturing() {
		return
	}
	if ShouldSkip(unit.Kind, lc.policy.StrictSkipMode()) {
		return
	}
	err := scope.profile.CompleteSpan(unit.Name, lc.now())
	lc.handleMutationError(scope, "render_end", err)
}

func (lc *LifecycleControllerImpl) OnDataLoad(scope *RequestScope, load LoadInfo) {
	if !scope.Capturing() {
		return
	}
	err := scope.profile.AddLoad(model.LoadRecord{
		Kind:       load.Kind,
		Resource:   load.Resource,
		Identifier: load.Identifier,
		Query:      load.Query,
		Count:      load.Count,
		LoadedAt:   lc.now(),
	})
	lc.handleMutationError(scope, "data_load", err)
}

// OnRequestEnd records the response and completes the profile through Finalize.
func (lc *LifecycleControllerImpl) OnRequestEnd(scope *RequestScope, response ResponseInfo) {
	lc.Finalize(scope, response)
}

func (lc *LifecycleControllerImpl) OnQuery(scope *RequestScope, query QueryInfo) {
	if !scope.Capturing() {
		return
	}
	err := scope.profile.AddQuery(model.QueryRecord{
		Statement:  query.Statement,
		Duration:   query.Duration,
		Rows:       query.Rows,
		Failed:     query.Failed,
		ExecutedAt: lc.now(),
	})
	lc.handleMutationError(scope, "query", err)
}

func (lc *LifecycleControllerImpl) StartTimer(scope *RequestScope, name string) {
	if !scope.Capturing() {
		return
	}
	lc.handleMutationError(scope, "timer_start", scope.profile.StartTimer(name, lc.now()))
}

func (lc *LifecycleControllerImpl) StopTimer(scope *RequestScope, name string) {
	if !scope.Capturing() {
		return
	}
	lc.handleMutationError(scope, "timer_stop", scope.profile.StopTimer(name, lc.now()))
}

func (lc *LifecycleControllerImpl) RequestLogger(scope *RequestScope, base *zap.Logger) *zap.Logger {
	if !scope.Capturing() {
		return base
	}
	capture := newProfileCore(lc.policy.LogCaptureLevel(), func(record model.LogRecord) {
		lc.handleMutationError(scope, "log", scope.profile.AddLog(record))
	})
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, capture)
	}))
}

func (lc *LifecycleControllerImpl) Finalize(scope *RequestScope, response ResponseInfo) {
	if !scope.Capturing() {
		return
	}
	scope.finalizeOnce.Do(func() {
		lc.finalize(scope, response)
	})
}

// finalize samples resources one last time, since the normal completion path may never have
// run, and applies everything to the profile in a single step.
func (lc *LifecycleControllerImpl) finalize(scope *RequestScope, response ResponseInfo) {
	usage := model.ResourceUsage{
		Elapsed:       lc.sampler.ElapsedSinceStart(scope.start),
		PeakMemory:    lc.sampler.PeakMemory(),
		CurrentMemory: lc.sampler.CurrentMemory(),
	}
	open, err := scope.profile.Finalize(response.StatusCode, usage)
	if err != nil {
		lc.handleMutationError(scope, "finalize", err)
		return
	}
	if len(open) > 0 {
		lc.logger.Debug(
			"Spans left open at request end",
			zap.String("token", scope.profile.Token()),
			zap.Strings("spans", open),
		)
	}
	lc.metrics.Finalized()
	lc.persist(scope, stageFinal)
}

// persist hands a snapshot to storage if the gate allows it at this moment.
func (lc *LifecycleControllerImpl) persist(scope *RequestScope, stage string) {
	if !lc.gate.Allow() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			lc.metrics.StorageError()
			lc.logger.Error(
				"Recovered from panic while persisting profile",
				zap.String("token", scope.profile.Token()),
				zap.Any("panic", r),
			)
		}
	}()
	lc.persister.Persist(scope.profile.Snapshot())
	lc.metrics.Persisted(stage)
}

func (lc *LifecycleControllerImpl) handleMutationError(scope *RequestScope, event string, err error) {
	if err == nil {
		return
	}
	reason := "invalid"
	switch {
	case errors.Is(err, model.ErrSpanNotFound):
		reason = "not_found"
	case errors.Is(err, model.ErrAlreadyFinalized):
		reason = "already_finalized"
	case errors.Is(err, model.ErrSpanAlreadyClosed), errors.Is(err, model.ErrTimerNotRunning):
		reason = "already_closed"
	case errors.Is(err, model.ErrTimerNotFound):
		reason = "not_found"
	}
	lc.metrics.Dropped(reason)
	lc.logger.Debug(
		"Dropped lifecycle event",
		zap.String("event", event),
		zap.String("reason", reason),
		zap.String("token", scope.profile.Token()),
		zap.Error(err),
	)
}
