package store

import (
	"context"
	"errors"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/elasticsearch/bootstrapper"
	"github.com/Avi18971911/Lantern/pkg/elasticsearch/client"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"go.uber.org/zap"
)

type ElasticsearchProfileStoreImpl struct {
	ac     client.LanternClient
	index  string
	logger *zap.Logger
}

func NewElasticsearchProfileStoreImpl(
	ac client.LanternClient,
	logger *zap.Logger,
) *ElasticsearchProfileStoreImpl {
	return &ElasticsearchProfileStoreImpl{
		ac:     ac,
		index:  bootstrapper.ProfileIndexName,
		logger: logger,
	}
}

func (es *ElasticsearchProfileStoreImpl) Save(ctx context.Context, doc model.ProfileDocument) error {
	metaMap, dataMap, err := client.ToMetaAndDataMap([]model.ProfileDocument{doc})
	if err != nil {
		return fmt.Errorf("%w: error converting profile to meta and data map: %w", ErrStorage, err)
	}
	if err := es.ac.Index(ctx, metaMap[0], dataMap[0], es.index); err != nil {
		return fmt.Errorf("%w: error indexing profile %s to Elasticsearch: %w", ErrStorage, doc.Token, err)
	}
	es.logger.Debug("Indexed profile", zap.String("token", doc.Token))
	return nil
}

func (es *ElasticsearchProfileStoreImpl) SaveBatch(ctx context.Context, docs []model.ProfileDocument) error {
	metaMap, dataMap, err := client.ToMetaAndDataMap(docs)
	if err != nil {
		return fmt.Errorf("%w: error converting profiles to meta and data map: %w", ErrStorage, err)
	}
	if len(metaMap) == 0 {
		return nil
	}
	if err := es.ac.BulkIndex(ctx, metaMap, dataMap, es.index); err != nil {
		return fmt.Errorf("%w: error bulk indexing profiles to Elasticsearch: %w", ErrStorage, err)
	}
	es.logger.Debug("Indexed profiles", zap.Int("count", len(docs)))
	return nil
}

// Get returns the stored profile for token, wrapping client.ErrDocumentNotFound when absent.
func (es *ElasticsearchProfileStoreImpl) Get(ctx context.Context, token string) (model.ProfileDocument, error) {
	document, err := es.ac.Get(ctx, es.index, token)
	if err != nil {
		if errors.Is(err, client.ErrDocumentNotFound) {
			return model.ProfileDocument{}, fmt.Errorf("profile %s: %w", token, err)
		}
		return model.ProfileDocument{}, fmt.Errorf("%w: error getting profile %s: %w", ErrStorage, token, err)
	}
	doc, err := client.FromDocumentMap[model.ProfileDocument](document)
	if err != nil {
		return model.ProfileDocument{}, fmt.Errorf("%w: error decoding profile %s: %w", ErrStorage, token, err)
	}
	return doc, nil
}
