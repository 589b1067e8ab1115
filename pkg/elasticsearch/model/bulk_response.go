package model

// BulkResponse is the body returned by the _bulk endpoint.
type BulkResponse struct {
	Took   int                           `json:"took"`
	Errors bool                          `json:"errors"`
	Items  []map[string]BulkResponseItem `json:"items"`
}

type BulkResponseItem struct {
	Index  string     `json:"_index"`
	ID     string     `json:"_id"`
	Status int        `json:"status"`
	Error  *ItemError `json:"error,omitempty"`
}

type ItemError struct {
	Type   string `json:"type"`   // Type of error (e.g., version_conflict_engine_exception)
	Reason string `json:"reason"` // Failure reason
}

type Failure struct {
	ID     string `json:"id"`     // Document ID
	Index  string `json:"index"`  // Index name
	Reason string `json:"reason"` // Failure reason
	Type   string `json:"type"`
	Status int    `json:"status"` // HTTP status code
}

// Failures flattens the failed items of a bulk response.
func (r BulkResponse) Failures() []Failure {
	var failures []Failure
	for _, item := range r.Items {
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			failures = append(failures, Failure{
				ID:     result.ID,
				Index:  result.Index,
				Reason: result.Error.Reason,
				Type:   result.Error.Type,
				Status: result.Status,
			})
		}
	}
	return failures
}
