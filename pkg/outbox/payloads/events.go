package payloads

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawcircle/pawcircle-backend/pkg/enums"
)

// OrderPlacedEvent announces a committed checkout.
type OrderPlacedEvent struct {
	OrderRowID     uuid.UUID            `json:"order_row_id"`
	OrderID        string               `json:"order_id"`
	UserID         uuid.UUID            `json:"user_id"`
	PlacedAt       time.Time            `json:"placed_at"`
	Total          decimal.Decimal      `json:"total"`
	Currency       string               `json:"currency,omitempty"`
	LineCount      int                  `json:"line_count"`
	ItemCount      int                  `json:"item_count"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method"`
	PromoCode      *string              `json:"promo_code,omitempty"`
}

// CartClearedEvent is emitted when a user empties their cart outside checkout.
type CartClearedEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	LinesRemoved int64     `json:"lines_removed"`
}

func (e *OrderPlacedEvent) Validate() error {
	switch {
	case e.OrderID == "":
		return errors.New("order_id is required")
	case e.UserID == uuid.Nil:
		return errors.New("user_id is required")
	case e.Total.IsNegative():
		return errors.New("total must not be negative")
	}
	return nil
}

func (e *CartClearedEvent) Validate() error {
	if e.UserID == uuid.Nil {
		return errors.New("user_id is required")
	}
	return nil
}
