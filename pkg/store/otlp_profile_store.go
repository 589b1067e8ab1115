package store

import (
	"context"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/otlp"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	traceV1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
)

// OtlpProfileStoreImpl exports finalized profiles as traces. Intermediate snapshots are
// ignored since a trace cannot be amended once sent.
type OtlpProfileStoreImpl struct {
	exporter    otlp.SpanExporter
	serviceName string
	logger      *zap.Logger
}

func NewOtlpProfileStoreImpl(
	exporter otlp.SpanExporter,
	serviceName string,
	logger *zap.Logger,
) *OtlpProfileStoreImpl {
	return &OtlpProfileStoreImpl{
		exporter:    exporter,
		serviceName: serviceName,
		logger:      logger,
	}
}

func (s *OtlpProfileStoreImpl) Save(ctx context.Context, doc model.ProfileDocument) error {
	return s.SaveBatch(ctx, []model.ProfileDocument{doc})
}

func (s *OtlpProfileStoreImpl) SaveBatch(ctx context.Context, docs []model.ProfileDocument) error {
	var resourceSpans []*traceV1.ResourceSpans
	for _, doc := range docs {
		if !doc.Finalized {
			continue
		}
		resourceSpans = append(resourceSpans, otlp.ToResourceSpans(doc, s.serviceName))
	}
	if len(resourceSpans) == 0 {
		return nil
	}
	if err := s.exporter.Export(ctx, resourceSpans); err != nil {
		return fmt.Errorf("%w: error exporting profiles over OTLP: %w", ErrStorage, err)
	}
	s.logger.Debug("Exported profiles", zap.Int("count", len(resourceSpans)))
	return nil
}
