package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MetaMap map[string]interface{}
type DocumentMap map[string]interface{}

// ToMetaAndDataMap converts values into bulk meta and document maps. A value serializing an
// "_id" field has it moved into the meta line so indexing overwrites the same document.
func ToMetaAndDataMap[T any](values []T) ([]MetaMap, []DocumentMap, error) {
	dataMap := make([]DocumentMap, len(values))
	metaMap := make([]MetaMap, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal value to JSON: %w", err)
		}
		var mapStruct map[string]interface{}
		if err := json.Unmarshal(data, &mapStruct); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal JSON to map: %w", err)
		}

		if id, ok := mapStruct["_id"]; ok {
			delete(mapStruct, "_id")
			metaMap[i] = MetaMap{"index": map[string]interface{}{"_id": id}}
		} else {
			metaMap[i] = MetaMap{"index": map[string]interface{}{}}
		}
		dataMap[i] = mapStruct
	}
	return metaMap, dataMap, nil
}

// FromDocumentMap decodes a document fetched from Elasticsearch into T.
func FromDocumentMap[T any](document DocumentMap) (T, error) {
	var value T
	data, err := json.Marshal(document)
	if err != nil {
		return value, fmt.Errorf("failed to marshal document to JSON: %w", err)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal document into %T: %w", value, err)
	}
	return value, nil
}

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrBulkItemsFailed  = errors.New("bulk request contained failed items")
)
