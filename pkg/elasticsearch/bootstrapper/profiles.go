package bootstrapper

const ProfileIndexName = "request_profile_index"

func keyword() map[string]interface{} {
	return map[string]interface{}{"type": "keyword"}
}

var spanProperties = map[string]interface{}{
	"name":                  keyword(),
	"kind":                  keyword(),
	"parent":                keyword(),
	"start_time":            map[string]interface{}{"type": "date"},
	"end_time":              map[string]interface{}{"type": "date"},
	"duration_ns":           map[string]interface{}{"type": "long"},
	"exclusive_duration_ns": map[string]interface{}{"type": "long"},
	"render_count":          map[string]interface{}{"type": "integer"},
	"closed":                map[string]interface{}{"type": "boolean"},
}

var profileIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 1,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"token":                keyword(),
			"store_id":             keyword(),
			"client_address":       keyword(),
			"method":               keyword(),
			"request_path":         keyword(),
			"timestamp":            map[string]interface{}{"type": "date"},
			"response_code":        map[string]interface{}{"type": "integer"},
			"total_duration_ns":    map[string]interface{}{"type": "long"},
			"peak_memory":          map[string]interface{}{"type": "long"},
			"current_memory":       map[string]interface{}{"type": "long"},
			"rendering_time_ns":    map[string]interface{}{"type": "long"},
			"rendering_consistent": map[string]interface{}{"type": "boolean"},
			"open_spans":           keyword(),
			"revision":             map[string]interface{}{"type": "long"},
			"finalized":            map[string]interface{}{"type": "boolean"},
			"span_count":           map[string]interface{}{"type": "integer"},
			"load_count":           map[string]interface{}{"type": "integer"},
			"log_count":            map[string]interface{}{"type": "integer"},
			"query_count":          map[string]interface{}{"type": "integer"},
			"spans": map[string]interface{}{
				"type":       "nested",
				"properties": spanProperties,
			},
			"actions": map[string]interface{}{
				"properties": map[string]interface{}{
					"controller": keyword(),
					"action":     keyword(),
					"route":      keyword(),
					"outcome":    map[string]interface{}{"type": "integer"},
				},
			},
			"loads": map[string]interface{}{
				"properties": map[string]interface{}{
					"kind":       keyword(),
					"resource":   keyword(),
					"identifier": keyword(),
					"query":      map[string]interface{}{"type": "text"},
					"count":      map[string]interface{}{"type": "integer"},
				},
			},
			"logs": map[string]interface{}{
				"properties": map[string]interface{}{
					"level":   keyword(),
					"logger":  keyword(),
					"message": map[string]interface{}{"type": "text"},
					"caller":  keyword(),
					"time":    map[string]interface{}{"type": "date"},
					"fields":  map[string]interface{}{"type": "object", "enabled": false},
				},
			},
			"queries": map[string]interface{}{
				"properties": map[string]interface{}{
					"statement":   map[string]interface{}{"type": "text"},
					"duration_ns": map[string]interface{}{"type": "long"},
					"rows":        map[string]interface{}{"type": "integer"},
					"failed":      map[string]interface{}{"type": "boolean"},
					"executed_at": map[string]interface{}{"type": "date"},
				},
			},
			"timers": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"name":     keyword(),
					"count":    map[string]interface{}{"type": "integer"},
					"total_ns": map[string]interface{}{"type": "long"},
					"running":  map[string]interface{}{"type": "boolean"},
				},
			},
		},
	},
}

const profileSummaryPipelineName = "profile_summary_pipeline"

var profileSummarySettings = map[string]interface{}{
	"index": map[string]interface{}{
		"default_pipeline": profileSummaryPipelineName,
	},
}

var profileSummaryPipeline = map[string]interface{}{
	"description": "Pipeline to count spans, loads, logs and queries of a request profile",
	"processors": []map[string]interface{}{
		{
			"script": map[string]interface{}{
				"source": "ctx.span_count = ctx.spans == null ? 0 : ctx.spans.size();" +
					"ctx.load_count = ctx.loads == null ? 0 : ctx.loads.size();" +
					"ctx.log_count = ctx.logs == null ? 0 : ctx.logs.size();" +
					"ctx.query_count = ctx.queries == null ? 0 : ctx.queries.size();",
			},
		},
	},
}
