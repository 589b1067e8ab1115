package otlp

import (
	"context"
	"errors"
	"fmt"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	traceV1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type SpanExporter interface {
	Export(ctx context.Context, resourceSpans []*traceV1.ResourceSpans) error
}

type SpanExporterImpl struct {
	client protoTrace.TraceServiceClient
	logger *zap.Logger
}

func NewSpanExporterImpl(conn grpc.ClientConnInterface, logger *zap.Logger) *SpanExporterImpl {
	return &SpanExporterImpl{
		client: protoTrace.NewTraceServiceClient(conn),
		logger: logger,
	}
}

// Dial opens a plaintext connection to an OTLP collector, e.g. "localhost:4317".
func Dial(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP client for %s: %w", endpoint, err)
	}
	return conn, nil
}

func (se *SpanExporterImpl) Export(ctx context.Context, resourceSpans []*traceV1.ResourceSpans) error {
	if len(resourceSpans) == 0 {
		return nil
	}
	res, err := se.client.Export(ctx, &protoTrace.ExportTraceServiceRequest{ResourceSpans: resourceSpans})
	if err != nil {
		return fmt.Errorf("failed to export spans: %w", err)
	}
	if partial := res.GetPartialSuccess(); partial != nil && partial.GetRejectedSpans() > 0 {
		se.logger.Warn(
			"Collector rejected spans",
			zap.Int64("rejected_spans", partial.GetRejectedSpans()),
			zap.String("error_message", partial.GetErrorMessage()),
		)
		return fmt.Errorf("%w: %d spans: %s", ErrSpansRejected, partial.GetRejectedSpans(), partial.GetErrorMessage())
	}
	return nil
}

var (
	ErrSpansRejected = errors.New("collector rejected spans")
)
