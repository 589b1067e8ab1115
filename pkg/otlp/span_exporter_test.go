package otlp

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	traceV1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"net"
	"sync"
	"testing"
)

type fakeCollector struct {
	protoTrace.UnimplementedTraceServiceServer
	mu       sync.Mutex
	received []*traceV1.ResourceSpans
	rejected int64
	err      error
}

func (fc *fakeCollector) Export(
	ctx context.Context,
	req *protoTrace.ExportTraceServiceRequest,
) (*protoTrace.ExportTraceServiceResponse, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.err != nil {
		return nil, fc.err
	}
	fc.received = append(fc.received, req.ResourceSpans...)
	res := &protoTrace.ExportTraceServiceResponse{}
	if fc.rejected > 0 {
		res.PartialSuccess = &protoTrace.ExportTracePartialSuccess{
			RejectedSpans: fc.rejected,
			ErrorMessage:  "span too large",
		}
	}
	return res, nil
}

func (fc *fakeCollector) count() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.received)
}

func TestSpanExporterImpl_Export(t *testing.T) {
	logger := zap.NewNop()
	rs := &traceV1.ResourceSpans{ScopeSpans: []*traceV1.ScopeSpans{{Spans: []*traceV1.Span{{Name: "x"}}}}}

	t.Run("Sends resource spans to the collector", func(t *testing.T) {
		collector := &fakeCollector{}
		conn := startCollector(t, collector)
		exporter := NewSpanExporterImpl(conn, logger)

		err := exporter.Export(context.Background(), []*traceV1.ResourceSpans{rs})
		assert.Nil(t, err)
		assert.Equal(t, 1, collector.count())
	})

	t.Run("Skips empty batches", func(t *testing.T) {
		collector := &fakeCollector{}
		conn := startCollector(t, collector)
		exporter := NewSpanExporterImpl(conn, logger)

		err := exporter.Export(context.Background(), nil)
		assert.Nil(t, err)
		assert.Equal(t, 0, collector.count())
	})

	t.Run("Reports rejected spans", func(t *testing.T) {
		collector := &fakeCollector{rejected: 1}
		conn := startCollector(t, collector)
		exporter := NewSpanExporterImpl(conn, logger)

		err := exporter.Export(context.Background(), []*traceV1.ResourceSpans{rs})
		assert.True(t, errors.Is(err, ErrSpansRejected))
	})

	t.Run("Wraps transport errors", func(t *testing.T) {
		collector := &fakeCollector{err: errors.New("collector down")}
		conn := startCollector(t, collector)
		exporter := NewSpanExporterImpl(conn, logger)

		err := exporter.Export(context.Background(), []*traceV1.ResourceSpans{rs})
		assert.NotNil(t, err)
	})
}

func startCollector(t *testing.T, collector protoTrace.TraceServiceServer) *grpc.ClientConn {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	protoTrace.RegisterTraceServiceServer(server, collector)
	go func() {
		_ = server.Serve(listener)
	}()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.Nil(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		server.GracefulStop()
	})
	return conn
}
