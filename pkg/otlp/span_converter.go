package otlp

import (
	"crypto/sha256"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/google/uuid"
	commonV1 "go.opentelemetry.io/proto/otlp/common/v1"
	resourceV1 "go.opentelemetry.io/proto/otlp/resource/v1"
	traceV1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"net/http"
	"time"
)

const scopeName = "github.com/Avi18971911/Lantern"

// ToResourceSpans converts a profile into one request span with a child span per rendering
// unit. Ids are derived from the profile token so exporting the same profile twice yields the
// same trace.
func ToResourceSpans(doc model.ProfileDocument, serviceName string) *traceV1.ResourceSpans {
	traceID := traceIDFromToken(doc.Token)
	rootID := spanIDFromName(doc.Token, "")
	requestEnd := doc.Timestamp.Add(doc.TotalDuration)

	spans := make([]*traceV1.Span, 0, len(doc.Spans)+1)
	spans = append(spans, requestSpan(doc, traceID, rootID, requestEnd))
	for _, span := range doc.Spans {
		parentID := rootID
		if span.Parent != "" {
			parentID = spanIDFromName(doc.Token, span.Parent)
		}
		spans = append(spans, unitSpan(doc.Token, span, traceID, parentID, requestEnd))
	}

	return &traceV1.ResourceSpans{
		Resource: &resourceV1.Resource{
			Attributes: []*commonV1.KeyValue{
				stringAttribute("service.name", serviceName),
				stringAttribute("lantern.store_id", doc.StoreID),
			},
		},
		ScopeSpans: []*traceV1.ScopeSpans{
			{
				Scope: &commonV1.InstrumentationScope{Name: scopeName},
				Spans: spans,
			},
		},
	}
}

func requestSpan(doc model.ProfileDocument, traceID []byte, spanID []byte, end time.Time) *traceV1.Span {
	attributes := []*commonV1.KeyValue{
		stringAttribute("lantern.token", doc.Token),
		stringAttribute("http.request.method", doc.Method),
		stringAttribute("url.path", doc.RequestPath),
		stringAttribute("client.address", doc.ClientAddress),
		intAttribute("http.response.status_code", int64(doc.ResponseCode)),
		intAttribute("lantern.peak_memory", int64(doc.PeakMemory)),
		intAttribute("lantern.current_memory", int64(doc.CurrentMemory)),
		intAttribute("lantern.rendering_time_ns", int64(doc.RenderingTime)),
		boolAttribute("lantern.rendering_consistent", doc.RenderingConsistent),
	}
	if doc.Layout != nil {
		attributes = append(attributes,
			stringAttribute("lantern.layout.design", doc.Layout.Design),
			stringAttribute("lantern.layout.theme", doc.Layout.Theme),
		)
	}

	for _, timer := range doc.Timers {
		attributes = append(attributes, intAttribute("lantern.timer."+timer.Name+"_ns", int64(timer.Total)))
	}

	events := make([]*traceV1.Span_Event, 0, len(doc.Actions)+len(doc.Loads)+len(doc.Queries)+len(doc.Logs))
	for _, action := range doc.Actions {
		events = append(events, &traceV1.Span_Event{
			Name:         "action",
			TimeUnixNano: unixNano(action.StartedAt),
			Attributes: []*commonV1.KeyValue{
				stringAttribute("lantern.controller", action.Controller),
				stringAttribute("lantern.action", action.Action),
				stringAttribute("http.route", action.Route),
				intAttribute("lantern.outcome", int64(action.Outcome)),
			},
		})
	}
	for _, load := range doc.Loads {
		events = append(events, &traceV1.Span_Event{
			Name:         fmt.Sprintf("load.%s", load.Kind),
			TimeUnixNano: unixNano(load.LoadedAt),
			Attributes: []*commonV1.KeyValue{
				stringAttribute("lantern.resource", load.Resource),
				stringAttribute("lantern.identifier", load.Identifier),
				stringAttribute("lantern.query", load.Query),
				intAttribute("lantern.count", int64(load.Count)),
			},
		})
	}
	for _, query := range doc.Queries {
		events = append(events, &traceV1.Span_Event{
			Name:         "db.query",
			TimeUnixNano: unixNano(query.ExecutedAt),
			Attributes: []*commonV1.KeyValue{
				stringAttribute("db.query.text", query.Statement),
				intAttribute("lantern.query.duration_ns", int64(query.Duration)),
				intAttribute("lantern.query.rows", int64(query.Rows)),
				boolAttribute("lantern.query.failed", query.Failed),
			},
		})
	}
	for _, entry := range doc.Logs {
		events = append(events, &traceV1.Span_Event{
			Name:         "log",
			TimeUnixNano: unixNano(entry.Time),
			Attributes: []*commonV1.KeyValue{
				stringAttribute("log.level", entry.Level),
				stringAttribute("log.logger", entry.Logger),
				stringAttribute("log.message", entry.Message),
			},
		})
	}

	return &traceV1.Span{
		TraceId:           traceID,
		SpanId:            spanID,
		Name:              fmt.Sprintf("%s %s", doc.Method, doc.RequestPath),
		Kind:              traceV1.Span_SPAN_KIND_SERVER,
		StartTimeUnixNano: unixNano(doc.Timestamp),
		EndTimeUnixNano:   unixNano(end),
		Attributes:        attributes,
		Events:            events,
		Status:            requestStatus(doc.ResponseCode),
	}
}

// unitSpan ends a span that never closed at the end of the request and flags it as open. A unit
// rendered more than once keeps its first interval and reports the accumulated time.
func unitSpan(
	token string,
	span model.SpanDocument,
	traceID []byte,
	parentID []byte,
	requestEnd time.Time,
) *traceV1.Span {
	end := requestEnd
	if span.EndTime != nil {
		end = *span.EndTime
	}
	return &traceV1.Span{
		TraceId:           traceID,
		SpanId:            spanIDFromName(token, span.Name),
		ParentSpanId:      parentID,
		Name:              span.Name,
		Kind:              traceV1.Span_SPAN_KIND_INTERNAL,
		StartTimeUnixNano: unixNano(span.StartTime),
		EndTimeUnixNano:   unixNano(end),
		Attributes: []*commonV1.KeyValue{
			stringAttribute("lantern.unit.kind", string(span.Kind)),
			boolAttribute("lantern.span.closed", span.Closed),
			intAttribute("lantern.exclusive_duration_ns", int64(span.ExclusiveDuration)),
			intAttribute("lantern.duration_ns", int64(span.Duration)),
			intAttribute("lantern.render_count", int64(span.RenderCount)),
		},
	}
}

func requestStatus(code int) *traceV1.Status {
	if code >= http.StatusInternalServerError {
		return &traceV1.Status{
			Code:    traceV1.Status_STATUS_CODE_ERROR,
			Message: http.StatusText(code),
		}
	}
	return &traceV1.Status{Code: traceV1.Status_STATUS_CODE_UNSET}
}

func traceIDFromToken(token string) []byte {
	if id, err := uuid.Parse(token); err == nil {
		return id[:]
	}
	sum := sha256.Sum256([]byte(token))
	return sum[:16]
}

func spanIDFromName(token string, name string) []byte {
	sum := sha256.Sum256([]byte(token + "/" + name))
	return sum[:8]
}

func unixNano(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}

func stringAttribute(key string, value string) *commonV1.KeyValue {
	return &commonV1.KeyValue{
		Key:   key,
		Value: &commonV1.AnyValue{Value: &commonV1.AnyValue_StringValue{StringValue: value}},
	}
}

func intAttribute(key string, value int64) *commonV1.KeyValue {
	return &commonV1.KeyValue{
		Key:   key,
		Value: &commonV1.AnyValue{Value: &commonV1.AnyValue_IntValue{IntValue: value}},
	}
}

func boolAttribute(key string, value bool) *commonV1.KeyValue {
	return &commonV1.KeyValue{
		Key:   key,
		Value: &commonV1.AnyValue{Value: &commonV1.AnyValue_BoolValue{BoolValue: value}},
	}
}
