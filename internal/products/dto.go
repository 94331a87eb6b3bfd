package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	ImageURL      string           `json:"imageUrl"`
	Category      string           `json:"category"`
	Tags          []string         `json:"tags"`
	Price         decimal.Decimal  `json:"price"`
	OldPrice      *decimal.Decimal `json:"oldPrice,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Rating        *decimal.Decimal `json:"rating,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Pricing is the read-only annotation used to badge cart lines. It never overrides a captured line price.
type Pricing struct {
	ProductID      uuid.UUID        `json:"productId"`
	OldPrice       *decimal.Decimal `json:"oldPrice,omitempty"`
	DiscountPrice  *decimal.Decimal `json:"discountPrice,omitempty"`
	Rating         *decimal.Decimal `json:"rating,omitempty"`
	SavingsPercent *decimal.Decimal `json:"savingsPercent,omitempty"`
}

// ProductListResult is one cursor page of the catalog.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func toDTO(p models.Product) ProductDTO {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		Category:      p.Category.String(),
		Tags:          tags,
		Price:         p.Price,
		OldPrice:      p.OldPrice,
		DiscountPrice: p.DiscountPrice,
		Rating:        p.Rating,
		CreatedAt:     p.CreatedAt,
	}
}

// pricingFor derives the savings badge from old vs discount price, falling back to the current price.
func pricingFor(p models.Product) Pricing {
	pricing := Pricing{
		ProductID:     p.ID,
		OldPrice:      p.OldPrice,
		DiscountPrice: p.DiscountPrice,
		Rating:        p.Rating,
	}
	if p.OldPrice == nil || !p.OldPrice.IsPositive() {
		return pricing
	}
	current := p.Price
	if p.DiscountPrice != nil {
		current = *p.DiscountPrice
	}
	if current.GreaterThanOrEqual(*p.OldPrice) {
		return pricing
	}
	savings := p.OldPrice.Sub(current).Div(*p.OldPrice).Mul(decimal.NewFromInt(100)).Round(0)
	pricing.SavingsPercent = &savings
	return pricing
}
