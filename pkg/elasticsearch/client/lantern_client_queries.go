package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/elasticsearch/model"
	"net/http"
)

func (a *LanternClientImpl) Get(
	ctx context.Context,
	index string,
	id string,
) (DocumentMap, error) {
	res, err := a.es.Get(
		index,
		id,
		a.es.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrDocumentNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to get document: %s", res.String())
	}

	var getResponse model.GetResponse
	if err := json.NewDecoder(res.Body).Decode(&getResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if !getResponse.Found {
		return nil, ErrDocumentNotFound
	}

	document := DocumentMap(getResponse.Source)
	document["_id"] = getResponse.ID
	return document, nil
}
