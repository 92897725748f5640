package repository

import (
	"context"

	"github.com/kolamcraft/catalog/internal/domain"
)

// ProductRepository defines the persistence operations for products.
// Implementations return pkg/errors sentinels for not-found conditions so
// callers can classify failures without knowing the backend.
type ProductRepository interface {
	// Insert persists a new product. The caller assigns ID and timestamps.
	Insert(ctx context.Context, p *domain.Product) error

	// GetByID returns the product with the given id.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns all products ordered by created_at descending.
	List(ctx context.Context) ([]domain.Product, error)

	// Update overwrites the mutable fields of an existing product.
	Update(ctx context.Context, p *domain.Product) error

	// Delete removes the product with the given id.
	Delete(ctx context.Context, id string) error
}
