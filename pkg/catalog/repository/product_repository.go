package repository

import (
	"context"
	"github.com/Avi18971911/Lantern/pkg/catalog/model"
)

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, category string) ([]model.Product, error)
}
