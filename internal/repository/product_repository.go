package repository

import (
	"context"

	"github.com/juliettescloset/storefront-api/internal/domain"
	"github.com/juliettescloset/storefront-api/service"
)

// ProductFilter narrows a catalog listing. Zero values mean "no
// constraint"; price bounds are inclusive.
type ProductFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// ProductRepository is the product-facing surface of the entity store.
type ProductRepository interface {
	EntityStore[domain.Product]

	ListFiltered(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
}

type productRepository struct {
	*IndexedEntity[domain.Product]
}

// NewProductRepository builds a product store over the given backend.
func NewProductRepository(store service.Store) ProductRepository {
	return &productRepository{
		IndexedEntity: NewIndexedEntity[domain.Product](store, "product", "products"),
	}
}

// ListFiltered applies the catalog filters over the full listing. The
// key-value backend has no query surface, so filtering happens here.
func (r *productRepository) ListFiltered(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}
