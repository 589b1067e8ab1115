package router

import (
	"github.com/Avi18971911/Lantern/pkg/catalog/handler"
	"github.com/Avi18971911/Lantern/pkg/catalog/repository"
	"github.com/Avi18971911/Lantern/pkg/profile/service"
	"github.com/Avi18971911/Lantern/pkg/server/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net/http"
)

// CreateRouter serves the storefront pages behind the profiler. metricsHandler is mounted
// outside the profiled routes.
func CreateRouter(
	productRepository repository.ProductRepository,
	lc service.LifecycleController,
	storeID string,
	metricsHandler http.Handler,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", metricsHandler).Methods("GET")

	pages := r.PathPrefix("/").Subrouter()
	pages.Use(middleware.ProfilerMiddleware(lc, storeID, logger))
	pages.Handle(
		"/products",
		handler.ProductListHandler(productRepository, lc, storeID, logger),
	).Methods("GET").Name("product.list")
	pages.Handle(
		"/products/{id}",
		handler.ProductPageHandler(productRepository, lc, storeID, logger),
	).Methods("GET").Name("product.view")

	return r
}
