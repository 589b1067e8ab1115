package main

import (
	"context"
	"errors"
	"github.com/Avi18971911/Lantern/pkg/cache"
	"github.com/Avi18971911/Lantern/pkg/catalog/repository"
	"github.com/Avi18971911/Lantern/pkg/catalog/router"
	"github.com/Avi18971911/Lantern/pkg/config"
	"github.com/Avi18971911/Lantern/pkg/elasticsearch/bootstrapper"
	"github.com/Avi18971911/Lantern/pkg/elasticsearch/client"
	"github.com/Avi18971911/Lantern/pkg/logger"
	"github.com/Avi18971911/Lantern/pkg/metrics"
	"github.com/Avi18971911/Lantern/pkg/otlp"
	"github.com/Avi18971911/Lantern/pkg/profile/policy"
	"github.com/Avi18971911/Lantern/pkg/profile/sampler"
	"github.com/Avi18971911/Lantern/pkg/profile/service"
	"github.com/Avi18971911/Lantern/pkg/store"
	"github.com/Avi18971911/Lantern/pkg/write_buffer"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := config.Load("LANTERN")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogConfig.Level, cfg.LogConfig.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profilerPolicy, err := policy.NewEnvPolicyImpl("PROFILER")
	if err != nil {
		zapLogger.Warn("Invalid profiler configuration, capture disabled", zap.Error(err))
	}
	go reloadPolicyOnHangup(ctx, profilerPolicy, zapLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	profilerMetrics, err := metrics.NewProfilerMetrics(registry)
	if err != nil {
		zapLogger.Fatal("Failed to register profiler metrics", zap.Error(err))
	}

	resourceSampler, err := sampler.NewProcessSamplerImpl(zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create resource sampler", zap.Error(err))
	}

	profileStore, closeStores := createProfileStore(cfg, zapLogger)
	defer closeStores()

	ristrettoCache, err := cache.NewDefaultRistretto(cfg.WriteBufferConfig.RevisionCacheSize)
	if err != nil {
		zapLogger.Fatal("Failed to create revision cache", zap.Error(err))
	}
	defer ristrettoCache.Close()
	guardedStore := store.NewRevisionGuardStoreImpl(profileStore, cache.NewRevisionCacheImpl(ristrettoCache), zapLogger)

	writeBuffer := write_buffer.NewProfileWriteBufferImpl(
		guardedStore,
		zapLogger,
		write_buffer.WithQueueSize(cfg.WriteBufferConfig.Size),
		write_buffer.WithFlushInterval(cfg.WriteBufferConfig.FlushInterval),
		write_buffer.WithFlushTimeout(cfg.WriteBufferConfig.FlushTimeout),
		write_buffer.WithMetrics(profilerMetrics),
	)
	writeBuffer.Start(ctx)

	lc := service.NewLifecycleControllerImpl(
		profilerPolicy,
		resourceSampler,
		writeBuffer,
		zapLogger,
		service.WithMetrics(profilerMetrics),
	)
	productRepository := repository.NewFakeProductRepository(lc, zapLogger)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	r := router.CreateRouter(productRepository, lc, cfg.StoreID, metricsHandler, zapLogger)

	server := &http.Server{Addr: cfg.ServerConfig.Address, Handler: r}
	go func() {
		zapLogger.Info("Starting catalog server", zap.String("address", cfg.ServerConfig.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Failed to serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down catalog server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerConfig.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down server", zap.Error(err))
	}
	if err := writeBuffer.Close(shutdownCtx); err != nil {
		zapLogger.Error("Failed to flush remaining profiles", zap.Error(err))
	}
}

// createProfileStore assembles the configured stores. The returned func releases their connections.
func createProfileStore(cfg *config.Config, logger *zap.Logger) (store.ProfileStore, func()) {
	var stores []store.ProfileStore
	closers := []func(){}

	if cfg.ElasticsearchConfig.Enabled {
		es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.ElasticsearchConfig.Addresses})
		if err != nil {
			logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
		}
		bs := bootstrapper.NewBootstrapper(es, logger)
		if err := bs.BootstrapElasticsearch(); err != nil {
			logger.Error("Failed to bootstrap elasticsearch", zap.Error(err))
		}
		ac := client.NewLanternClientImpl(es, client.ParseRefreshRate(cfg.ElasticsearchConfig.RefreshMode))
		stores = append(stores, store.NewElasticsearchProfileStoreImpl(ac, logger))
	}

	if cfg.OtlpConfig.Endpoint != "" {
		conn, err := otlp.Dial(cfg.OtlpConfig.Endpoint)
		if err != nil {
			logger.Fatal("Failed to connect to OTLP collector", zap.Error(err))
		}
		closers = append(closers, func() {
			if err := conn.Close(); err != nil {
				logger.Error("Failed to close OTLP connection", zap.Error(err))
			}
		})
		exporter := otlp.NewSpanExporterImpl(conn, logger)
		stores = append(stores, store.NewOtlpProfileStoreImpl(exporter, cfg.OtlpConfig.ServiceName, logger))
	}

	if len(stores) == 0 {
		logger.Warn("No profile store configured, profiles will be discarded")
	}
	return store.NewMultiProfileStoreImpl(stores...), func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}

func reloadPolicyOnHangup(ctx context.Context, p *policy.EnvPolicyImpl, logger *zap.Logger) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			if err := p.Reload(); err != nil {
				logger.Warn("Invalid profiler configuration, capture disabled", zap.Error(err))
				continue
			}
			logger.Info("Reloaded profiler configuration")
		}
	}
}
