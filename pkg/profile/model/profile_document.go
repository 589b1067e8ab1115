package model

import "time"

// ProfileDocument is an immutable copy of a RequestProfile as handed to storage. Id doubles as
// the storage document id so a later snapshot of the same request overwrites an earlier one.
type ProfileDocument struct {
	Id                  string             `json:"_id,omitempty"`
	Token               string             `json:"token"`
	StoreID             string             `json:"store_id"`
	ClientAddress       string             `json:"client_address"`
	Method              string             `json:"method"`
	RequestPath         string             `json:"request_path"`
	Timestamp           time.Time          `json:"timestamp"`
	ResponseCode        int                `json:"response_code"`
	TotalDuration       time.Duration      `json:"total_duration_ns"`
	PeakMemory          uint64             `json:"peak_memory"`
	CurrentMemory       uint64             `json:"current_memory"`
	RenderingTime       time.Duration      `json:"rendering_time_ns"`
	RenderingConsistent bool               `json:"rendering_consistent"`
	OpenSpans           []string           `json:"open_spans"`
	Actions             []ActionRecord     `json:"actions"`
	Loads               []LoadRecord       `json:"loads"`
	Structure           []StructuralRecord `json:"structure"`
	Layout              *LayoutRecord      `json:"layout,omitempty"`
	Spans               []SpanDocument     `json:"spans"`
	Logs                []LogRecord        `json:"logs"`
	Queries             []QueryRecord      `json:"queries"`
	Timers              []TimerRecord      `json:"timers"`
	Revision            uint64             `json:"revision"`
	Finalized           bool               `json:"finalized"`
}

type SpanDocument struct {
	Name              string        `json:"name"`
	Kind              UnitKind      `json:"kind"`
	Parent            string        `json:"parent,omitempty"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	Duration          time.Duration `json:"duration_ns"`
	ExclusiveDuration time.Duration `json:"exclusive_duration_ns"`
	RenderCount       int           `json:"render_count"`
	Closed            bool          `json:"closed"`
}

// Snapshot copies the current state of the profile into a document detached from it.
func (p *RequestProfile) Snapshot() ProfileDocument {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := ProfileDocument{
		Id:                  p.token,
		Token:               p.token,
		StoreID:             p.storeID,
		ClientAddress:       p.clientAddress,
		Method:              p.method,
		RequestPath:         p.requestPath,
		Timestamp:           p.timestamp,
		ResponseCode:        p.responseCode,
		TotalDuration:       p.totalDuration,
		PeakMemory:          p.peakMemory,
		CurrentMemory:       p.currentMemory,
		RenderingTime:       p.renderingTime,
		RenderingConsistent: p.spans.IsConsistent(),
		OpenSpans:           append([]string{}, p.openSpans...),
		Actions:             append([]ActionRecord{}, p.actions...),
		Loads:               append([]LoadRecord{}, p.loads...),
		Structure:           append([]StructuralRecord{}, p.structure...),
		Logs:                append([]LogRecord{}, p.logs...),
		Queries:             append([]QueryRecord{}, p.queries...),
		Timers:              append([]TimerRecord{}, p.timers...),
		Revision:            p.revision,
		Finalized:           p.finalized,
	}
	if p.layout != nil {
		layout := *p.layout
		layout.Handles = append([]string{}, p.layout.Handles...)
		doc.Layout = &layout
	}

	spans := p.spans.Spans()
	doc.Spans = make([]SpanDocument, len(spans))
	for i, span := range spans {
		doc.Spans[i] = toSpanDocument(span)
	}
	return doc
}

func toSpanDocument(span *Span) SpanDocument {
	spanDoc := SpanDocument{
		Name:              span.Name(),
		Kind:              span.Kind(),
		Parent:            span.ParentName(),
		StartTime:         span.StartTime(),
		Duration:          span.Duration(),
		ExclusiveDuration: span.ExclusiveDuration(),
		RenderCount:       span.RenderCount(),
		Closed:            span.IsClosed(),
	}
	if end, closed := span.EndTime(); closed {
		spanDoc.EndTime = &end
	}
	return spanDoc
}
