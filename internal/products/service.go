package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
	"gorm.io/gorm"
)

type productRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	List(ctx context.Context, input ListProductsInput) ([]models.Product, string, error)
}

// Service is the catalog read interface.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductPricing(ctx context.Context, id uuid.UUID) (*Pricing, error)
	PricingFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Pricing, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

type service struct {
	repo productRepository
}

func NewService(repo productRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetProductPricing(ctx context.Context, id uuid.UUID) (*Pricing, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	pricing := pricingFor(*product)
	return &pricing, nil
}

// PricingFor returns annotations for the products that still exist; missing ids are skipped.
func (s *service) PricingFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Pricing, error) {
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product pricing")
	}
	out := make(map[uuid.UUID]Pricing, len(rows))
	for _, row := range rows {
		out[row.ID] = pricingFor(row)
	}
	return out, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Category != nil && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	products := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		products = append(products, toDTO(row))
	}
	return &ProductListResult{Products: products, NextCursor: next}, nil
}
