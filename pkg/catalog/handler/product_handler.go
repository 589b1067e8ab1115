package handler

import (
	"errors"
	"github.com/Avi18971911/Lantern/pkg/catalog/model"
	"github.com/Avi18971911/Lantern/pkg/catalog/repository"
	"github.com/Avi18971911/Lantern/pkg/profile/service"
	"github.com/Avi18971911/Lantern/pkg/server/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net/http"
)

// ProductPageHandler renders a single product page.
func ProductPageHandler(
	pr repository.ProductRepository,
	lc service.LifecycleController,
	storeID string,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()
		logger := middleware.Logger(ctx, lc, logger)

		renderer := newPageRenderer(ctx, lc, storeID)
		renderer.generate("product_view", pageStructure(false)...)

		product, err := pr.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrProductNotFound) {
				logger.Info("Product not found", zap.String("id", id))
				HttpError(w, "Product not found", http.StatusNotFound, logger)
				return
			}
			logger.Error("Error encountered when loading product", zap.String("id", id), zap.Error(err))
			HttpError(w, "Error encountered when loading product", http.StatusInternalServerError, logger)
			return
		}

		if err := renderer.renderProducts(product.Name, []model.Product{*product}, false); err != nil {
			logger.Error("Error encountered when rendering product page", zap.Error(err))
			HttpError(w, "Error encountered when rendering page", http.StatusInternalServerError, logger)
			return
		}
		writePage(w, renderer.Bytes(), logger)
	}
}

// ProductListHandler renders the products of the category given by the query string.
func ProductListHandler(
	pr repository.ProductRepository,
	lc service.LifecycleController,
	storeID string,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		ctx := r.Context()
		logger := middleware.Logger(ctx, lc, logger)

		renderer := newPageRenderer(ctx, lc, storeID)
		renderer.generate("product_list", pageStructure(true)...)

		products, err := pr.ListProducts(ctx, category)
		if err != nil {
			logger.Error("Error encountered when listing products", zap.Error(err))
			HttpError(w, "Error encountered when listing products", http.StatusInternalServerError, logger)
			return
		}

		title := "All products"
		if category != "" {
			title = category
		}
		if err := renderer.renderProducts(title, products, true); err != nil {
			logger.Error("Error encountered when rendering product list", zap.Error(err))
			HttpError(w, "Error encountered when rendering page", http.StatusInternalServerError, logger)
			return
		}
		writePage(w, renderer.Bytes(), logger)
	}
}

func writePage(w http.ResponseWriter, page []byte, logger *zap.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		logger.Error("Error encountered when writing page", zap.Error(err))
	}
}
