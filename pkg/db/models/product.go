package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/pawcircle/pawcircle-backend/pkg/enums"
)

// Product is the catalog record. The core only reads it.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string                `gorm:"column:name;not null"`
	Description   *string               `gorm:"column:description"`
	ImageURL      string                `gorm:"column:image_url;not null;default:''"`
	Category      enums.ProductCategory `gorm:"column:category;not null"`
	Tags          pq.StringArray        `gorm:"column:tags;type:text[]"`
	Price         decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	OldPrice      *decimal.Decimal      `gorm:"column:old_price;type:numeric(12,2)"`
	DiscountPrice *decimal.Decimal      `gorm:"column:discount_price;type:numeric(12,2)"`
	Rating        *decimal.Decimal      `gorm:"column:rating;type:numeric(2,1)"`
	IsActive      bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
