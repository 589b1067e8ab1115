package model

import (
	"github.com/stretchr/testify/assert"
	"sync"
	"testing"
	"time"
)

func newTestProfile() *RequestProfile {
	return NewRequestProfile("token-1", RequestMeta{
		StoreID:       "1",
		ClientAddress: "10.0.0.1",
		Method:        "GET",
		Path:          "/catalog/view",
		Timestamp:     baseTime,
	})
}

func TestRequestProfile_RecordAction(t *testing.T) {
	t.Run("Updates the same action in place", func(t *testing.T) {
		profile := newTestProfile()
		err := profile.RecordAction(ActionRecord{Controller: "catalog", Action: "view", StartedAt: at(0)})
		assert.Nil(t, err)
		err = profile.RecordAction(ActionRecord{
			Controller: "catalog",
			Action:     "view",
			Outcome:    200,
			Dispatched: true,
			EndedAt:    at(9),
		})
		assert.Nil(t, err)

		actions := profile.Actions()
		assert.Len(t, actions, 1)
		assert.Equal(t, at(0), actions[0].StartedAt)
		assert.Equal(t, at(9), actions[0].EndedAt)
		assert.Equal(t, 200, actions[0].Outcome)
		assert.True(t, actions[0].Dispatched)
	})

	t.Run("Appends distinct actions in order", func(t *testing.T) {
		profile := newTestProfile()
		_ = profile.RecordAction(ActionRecord{Controller: "catalog", Action: "view"})
		_ = profile.RecordAction(ActionRecord{Controller: "cart", Action: "add"})
		actions := profile.Actions()
		assert.Len(t, actions, 2)
		assert.Equal(t, "add", actions[1].Action)
	})
}

func TestRequestProfile_AddStructure(t *testing.T) {
	t.Run("Creates the span and records each unit once", func(t *testing.T) {
		profile := newTestProfile()
		unit := StructuralUnit{Name: "header", Kind: UnitKindApplication, Type: "page/html_header"}
		assert.Nil(t, profile.AddStructure(unit))
		assert.Nil(t, profile.AddStructure(unit))

		assert.Len(t, profile.Structure(), 1)
		assert.Equal(t, 1, profile.SpanCount())
		span, err := profile.Span("header")
		assert.Nil(t, err)
		assert.False(t, span.IsStarted())
	})
}

func TestRequestProfile_Finalize(t *testing.T) {
	t.Run("Rejects every mutation after finalize", func(t *testing.T) {
		profile := newTestProfile()
		_, err := profile.Finalize(200, ResourceUsage{})
		assert.Nil(t, err)
		before := profile.Snapshot()

		assert.ErrorIs(t, profile.AddLoad(LoadRecord{Kind: LoadKindEntity}), ErrAlreadyFinalized)
		assert.ErrorIs(t, profile.RecordAction(ActionRecord{Controller: "c", Action: "a"}), ErrAlreadyFinalized)
		assert.ErrorIs(t, profile.StartSpan(RenderUnit{Name: "x"}, at(1)), ErrAlreadyFinalized)
		assert.ErrorIs(t, profile.AddLog(LogRecord{Message: "late"}), ErrAlreadyFinalized)
		assert.ErrorIs(t, profile.AddQuery(QueryRecord{Statement: "SELECT 1"}), ErrAlreadyFinalized)
		assert.ErrorIs(t, profile.StartTimer("late", at(1)), ErrAlreadyFinalized)
		_, err = profile.Finalize(500, ResourceUsage{})
		assert.ErrorIs(t, err, ErrAlreadyFinalized)

		assert.Equal(t, before, profile.Snapshot())
	})

	t.Run("Late mutations racing finalize are either applied before it or rejected", func(t *testing.T) {
		profile := newTestProfile()
		var wg sync.WaitGroup
		var accepted sync.Map
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := profile.AddLoad(LoadRecord{Kind: LoadKindEntity, Count: i}); err == nil {
					accepted.Store(i, true)
				}
			}(i)
		}
		_, _ = profile.Finalize(200, ResourceUsage{})
		wg.Wait()

		count := 0
		accepted.Range(func(_, _ any) bool {
			count++
			return true
		})
		assert.Len(t, profile.Loads(), count)
	})

	t.Run("Render ends racing finalize are counted or rejected, never half applied", func(t *testing.T) {
		for round := 0; round < 20; round++ {
			profile := newTestProfile()
			names := []string{"header", "body", "footer", "sidebar"}
			for i, name := range names {
				_ = profile.StartSpan(RenderUnit{Name: name, Kind: UnitKindApplication}, at(i))
			}

			var wg sync.WaitGroup
			for i, name := range names {
				wg.Add(1)
				go func(name string, end time.Time) {
					defer wg.Done()
					_ = profile.CompleteSpan(name, end)
				}(name, at(10+i))
			}
			_, err := profile.Finalize(200, ResourceUsage{})
			assert.Nil(t, err)
			wg.Wait()

			doc := profile.Snapshot()
			assert.True(t, doc.RenderingConsistent)
			var closed time.Duration
			for _, span := range doc.Spans {
				closed += span.Duration
			}
			assert.Equal(t, closed, doc.RenderingTime)
		}
	})

	t.Run("Applies the code and resource reading in the same step", func(t *testing.T) {
		profile := newTestProfile()
		open, err := profile.Finalize(200, ResourceUsage{Elapsed: time.Second, PeakMemory: 10, CurrentMemory: 4})
		assert.Nil(t, err)
		assert.Empty(t, open)

		doc := profile.Snapshot()
		assert.Equal(t, 200, doc.ResponseCode)
		assert.Equal(t, time.Second, doc.TotalDuration)
		assert.Equal(t, uint64(4), doc.CurrentMemory)
		assert.True(t, doc.Finalized)
	})
}

func TestRequestProfile_Timers(t *testing.T) {
	t.Run("Accumulates every start and stop pair", func(t *testing.T) {
		profile := newTestProfile()
		assert.Nil(t, profile.StartTimer("layout_load", at(0)))
		assert.Nil(t, profile.StopTimer("layout_load", at(3)))
		assert.Nil(t, profile.StartTimer("layout_load", at(5)))
		assert.Nil(t, profile.StopTimer("layout_load", at(6)))

		timers := profile.Timers()
		assert.Len(t, timers, 1)
		assert.Equal(t, 2, timers[0].Count)
		assert.Equal(t, 4*time.Millisecond, timers[0].Total)
		assert.False(t, timers[0].Running)
	})

	t.Run("Stopping an unknown or idle timer is rejected", func(t *testing.T) {
		profile := newTestProfile()
		assert.ErrorIs(t, profile.StopTimer("missing", at(1)), ErrTimerNotFound)
		_ = profile.StartTimer("config", at(0))
		_ = profile.StopTimer("config", at(1))
		assert.ErrorIs(t, profile.StopTimer("config", at(2)), ErrTimerNotRunning)
	})

	t.Run("A timer left running is reported without its open interval", func(t *testing.T) {
		profile := newTestProfile()
		_ = profile.StartTimer("render", at(0))
		_, _ = profile.Finalize(200, ResourceUsage{})

		doc := profile.Snapshot()
		assert.Len(t, doc.Timers, 1)
		assert.True(t, doc.Timers[0].Running)
		assert.Equal(t, time.Duration(0), doc.Timers[0].Total)
	})
}

func TestRequestProfile_LogsAndQueries(t *testing.T) {
	profile := newTestProfile()
	assert.Nil(t, profile.AddLog(LogRecord{Level: "warn", Message: "stock low", Time: at(1)}))
	assert.Nil(t, profile.AddQuery(QueryRecord{Statement: "SELECT * FROM product", Rows: 3, Duration: time.Millisecond}))

	doc := profile.Snapshot()
	assert.Len(t, doc.Logs, 1)
	assert.Equal(t, "stock low", doc.Logs[0].Message)
	assert.Len(t, doc.Queries, 1)
	assert.Equal(t, 3, doc.Queries[0].Rows)
}

func TestRequestProfile_Snapshot(t *testing.T) {
	t.Run("Captures response and rendering fields", func(t *testing.T) {
		profile := newTestProfile()
		_ = profile.StartSpan(RenderUnit{Name: "header", Kind: UnitKindApplication}, at(0))
		_ = profile.StartSpan(RenderUnit{Name: "body", Kind: UnitKindApplication}, at(1))
		_ = profile.CompleteSpan("body", at(4))
		open, err := profile.Finalize(200, ResourceUsage{Elapsed: time.Second, PeakMemory: 10, CurrentMemory: 4})
		assert.Nil(t, err)
		assert.Equal(t, []string{"header"}, open)

		doc := profile.Snapshot()
		assert.Equal(t, "token-1", doc.Id)
		assert.Equal(t, 200, doc.ResponseCode)
		assert.Equal(t, 3*time.Millisecond, doc.RenderingTime)
		assert.Equal(t, uint64(10), doc.PeakMemory)
		assert.True(t, doc.RenderingConsistent)
		assert.Len(t, doc.Spans, 2)
		assert.Nil(t, doc.Spans[0].EndTime)
		assert.NotNil(t, doc.Spans[1].EndTime)
		assert.Equal(t, "header", doc.Spans[1].Parent)
	})

	t.Run("Counts every render of a repeated unit", func(t *testing.T) {
		profile := newTestProfile()
		card := RenderUnit{Name: "product_card", Kind: UnitKindApplication}
		_ = profile.StartSpan(card, at(0))
		_ = profile.CompleteSpan("product_card", at(2))
		_ = profile.StartSpan(card, at(3))
		_ = profile.CompleteSpan("product_card", at(7))
		_, _ = profile.Finalize(200, ResourceUsage{})

		doc := profile.Snapshot()
		assert.Equal(t, 6*time.Millisecond, doc.RenderingTime)
		assert.Equal(t, 2, doc.Spans[0].RenderCount)
		assert.Equal(t, 6*time.Millisecond, doc.Spans[0].Duration)
		assert.Equal(t, at(2), *doc.Spans[0].EndTime)
	})

	t.Run("Revision grows with every accepted mutation", func(t *testing.T) {
		profile := newTestProfile()
		first := profile.Snapshot().Revision
		_ = profile.AddLoad(LoadRecord{Kind: LoadKindCollection, Count: 3})
		second := profile.Snapshot().Revision
		_ = profile.CompleteSpan("missing", at(1))
		third := profile.Snapshot().Revision

		assert.Greater(t, second, first)
		assert.Equal(t, second, third)
	})
}
