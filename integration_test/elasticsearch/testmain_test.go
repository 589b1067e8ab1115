//go:build integration

package elasticsearch

import (
	"context"
	"github.com/Avi18971911/Lantern/pkg/elasticsearch/bootstrapper"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
	"log"
	"os"
	"testing"
)

var es *elasticsearch.Client
var logger, _ = zap.NewDevelopment()

func TestMain(m *testing.M) {
	ctx := context.Background()
	uri, cleanup, err := startElasticSearchContainer(ctx, logger)
	if err != nil {
		cleanup()
		log.Fatalf("Failed to start container: %v", err)
	}
	es, err = elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{uri}})
	if err != nil {
		cleanup()
		log.Fatalf("Failed to create elasticsearch client: %v", err)
	}

	bs := bootstrapper.NewBootstrapper(es, logger)
	if err := bs.BootstrapElasticsearch(); err != nil {
		cleanup()
		log.Fatalf("Failed to bootstrap elasticsearch: %v", err)
	}
	code := m.Run()
	cleanup()
	os.Exit(code)
}
