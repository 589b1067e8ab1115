package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/elasticsearch/client"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeElasticsearch answers the bulk and get endpoints from memory.
type fakeElasticsearch struct {
	mu        sync.Mutex
	docs      map[string]json.RawMessage
	bulkCalls int
	failItems bool
	server    *httptest.Server
}

func newFakeElasticsearch(t *testing.T) *fakeElasticsearch {
	t.Helper()
	fe := &fakeElasticsearch{docs: make(map[string]json.RawMessage)}
	fe.server = httptest.NewServer(http.HandlerFunc(fe.handle))
	t.Cleanup(fe.server.Close)
	return fe
}

func (fe *fakeElasticsearch) client(t *testing.T) client.LanternClient {
	t.Helper()
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{fe.server.URL}})
	require.Nil(t, err)
	return client.NewLanternClientImpl(es, client.Wait)
}

func (fe *fakeElasticsearch) stored(id string) (json.RawMessage, bool) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	doc, ok := fe.docs[id]
	return doc, ok
}

func (fe *fakeElasticsearch) bulkRequests() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bulkCalls
}

func (fe *fakeElasticsearch) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	fe.mu.Lock()
	defer fe.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		fe.bulkCalls++
		fe.bulk(w, r)
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/_doc/"):
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		doc, ok := fe.docs[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = fmt.Fprintf(w, `{"_id":%q,"found":false}`, id)
			return
		}
		_, _ = fmt.Fprintf(w, `{"_index":"profiles","_id":%q,"_version":1,"found":true,"_source":%s}`, id, doc)
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (fe *fakeElasticsearch) bulk(w http.ResponseWriter, r *http.Request) {
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)
	var items []string
	for scanner.Scan() {
		var meta struct {
			Index struct {
				ID string `json:"_id"`
			} `json:"index"`
		}
		_ = json.Unmarshal(scanner.Bytes(), &meta)
		if !scanner.Scan() {
			break
		}
		if fe.failItems {
			items = append(items, fmt.Sprintf(
				`{"index":{"_id":%q,"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad"}}}`,
				meta.Index.ID,
			))
			continue
		}
		fe.docs[meta.Index.ID] = append(json.RawMessage{}, scanner.Bytes()...)
		items = append(items, fmt.Sprintf(`{"index":{"_id":%q,"status":201}}`, meta.Index.ID))
	}
	_, _ = fmt.Fprintf(w, `{"took":1,"errors":%t,"items":[%s]}`, fe.failItems, strings.Join(items, ","))
}
