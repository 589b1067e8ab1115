package client

import (
	"context"
	"github.com/elastic/go-elasticsearch/v8"
)

type RefreshRate string

const (
	// Wait for the changes made by the request to be made visible by a refresh before replying.
	Wait RefreshRate = "wait_for"
	// Immediate Refresh the relevant primary and replica shards (not the whole index) immediately after the operation occurs.
	Immediate RefreshRate = "true"
	// Async Take no refresh related actions. The changes made by this request will be made visible at some point after the request returns.
	Async RefreshRate = "false"
)

// ParseRefreshRate maps a configured refresh mode onto a RefreshRate, defaulting to Async.
func ParseRefreshRate(value string) RefreshRate {
	switch RefreshRate(value) {
	case Wait, Immediate:
		return RefreshRate(value)
	default:
		return Async
	}
}

type LanternClient interface {
	// BulkIndex indexes (inserts or overwrites) multiple documents in the same index
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/docs-bulk.html
	BulkIndex(ctx context.Context, metaInfo []MetaMap, documentInfo []DocumentMap, index string) error
	// Index indexes a single document in the index, overwriting any document with the same _id
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/docs-index_.html
	Index(ctx context.Context, metaInfo MetaMap, documentInfo DocumentMap, index string) error
	// Get fetches a single document by id, returning ErrDocumentNotFound when it does not exist
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/docs-get.html
	Get(ctx context.Context, index string, id string) (DocumentMap, error)
}

type LanternClientImpl struct {
	es          *elasticsearch.Client
	refreshRate string
}

func NewLanternClientImpl(es *elasticsearch.Client, refreshRate RefreshRate) *LanternClientImpl {
	return &LanternClientImpl{es: es, refreshRate: string(refreshRate)}
}
