package product

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, name string, category enums.ProductCategory, price string, createdAt time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		Name:      name,
		ImageURL:  "https://cdn.example.com/" + name + ".png",
		Category:  category,
		Tags:      pq.StringArray{"dog", "bestseller"},
		Price:     decimal.RequireFromString(price),
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func decimalPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
