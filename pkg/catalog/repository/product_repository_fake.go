package repository

import (
	"context"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/catalog/model"
	profileModel "github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/Avi18971911/Lantern/pkg/profile/service"
	"github.com/Avi18971911/Lantern/pkg/server/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var lampPrice, _ = decimal.NewFromString("49.90")
var deskPrice, _ = decimal.NewFromString("219.00")
var chairPrice, _ = decimal.NewFromString("129.50")

var fakeProducts = []model.Product{
	{Id: "lamp-1", Name: "Brass Desk Lamp", Category: "lighting", Price: lampPrice},
	{Id: "desk-1", Name: "Oak Writing Desk", Category: "furniture", Price: deskPrice},
	{Id: "chair-1", Name: "Walnut Chair", Category: "furniture", Price: chairPrice},
}

// FakeProductRepository serves a fixed catalog from memory and reports every load to the
// profiler of the request.
type FakeProductRepository struct {
	lc     service.LifecycleController
	logger *zap.Logger
}

func NewFakeProductRepository(lc service.LifecycleController, logger *zap.Logger) *FakeProductRepository {
	return &FakeProductRepository{
		lc:     lc,
		logger: logger,
	}
}

func (fr *FakeProductRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	middleware.DataLoad(ctx, fr.lc, service.LoadInfo{
		Kind:       profileModel.LoadKindEntity,
		Resource:   "product",
		Identifier: id,
		Count:      1,
	})
	var found *model.Product
	_ = middleware.Query(ctx, fr.lc, "SELECT * FROM product WHERE id = ?", func() (int, error) {
		for _, product := range fakeProducts {
			if product.Id == id {
				match := product
				found = &match
				return 1, nil
			}
		}
		return 0, nil
	})
	if found == nil {
		return nil, fmt.Errorf("product %s: %w", id, model.ErrProductNotFound)
	}
	return found, nil
}

func (fr *FakeProductRepository) ListProducts(ctx context.Context, category string) ([]model.Product, error) {
	var products []model.Product
	_ = middleware.Query(ctx, fr.lc, "SELECT * FROM product WHERE category = ?", func() (int, error) {
		for _, product := range fakeProducts {
			if category == "" || product.Category == category {
				products = append(products, product)
			}
		}
		return len(products), nil
	})
	middleware.DataLoad(ctx, fr.lc, service.LoadInfo{
		Kind:     profileModel.LoadKindCollection,
		Resource: "product",
		Query:    fmt.Sprintf("category = %q", category),
		Count:    len(products),
	})
	middleware.Logger(ctx, fr.lc, fr.logger).Info(
		"Listed products",
		zap.String("category", category),
		zap.Int("count", len(products)),
	)
	return products, nil
}
