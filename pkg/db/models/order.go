package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/pawcircle/pawcircle-backend/pkg/types"
)

// Order is the immutable record written once per successful checkout.
// OrderID is the client-facing token; ID stays the primary key.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         string                `gorm:"column:order_id;not null;uniqueIndex"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	PlacedAt        time.Time             `gorm:"column:placed_at;not null"`
	DeliveryMethod  enums.DeliveryMethod  `gorm:"column:delivery_method;not null"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	PromoCode       *string               `gorm:"column:promo_code"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CGST            decimal.Decimal       `gorm:"column:cgst;type:numeric(12,2);not null"`
	SGST            decimal.Decimal       `gorm:"column:sgst;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal       `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	PromoDiscount   decimal.Decimal       `gorm:"column:promo_discount;type:numeric(12,2);not null"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	Lines           []types.OrderLine     `gorm:"column:lines;type:jsonb;serializer:json;not null"`
	Contact         types.Contact         `gorm:"column:contact;type:jsonb;serializer:json;not null"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}
