package orders

import (
	"time"

	"github.com/pawcircle/pawcircle-backend/internal/checkout"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderSummary is one row of the order history list.
type OrderSummary struct {
	OrderID        string               `json:"orderId"`
	PlacedAt       time.Time            `json:"placedAt"`
	Total          decimal.Decimal      `json:"total"`
	ItemCount      int                  `json:"itemCount"`
	DeliveryMethod enums.DeliveryMethod `json:"deliveryMethod"`
	PaymentMethod  enums.PaymentMethod  `json:"paymentMethod"`
	PromoCode      *string              `json:"promoCode,omitempty"`
}

// OrderList wraps a page of summaries plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

func summaryFor(order models.Order) OrderSummary {
	snap := checkout.SnapshotFromOrder(order)
	return OrderSummary{
		OrderID:        snap.OrderID,
		PlacedAt:       snap.PlacedAt,
		Total:          snap.Breakdown.Total,
		ItemCount:      snap.ItemCount(),
		DeliveryMethod: snap.Delivery,
		PaymentMethod:  snap.Payment,
		PromoCode:      snap.PromoCode,
	}
}
