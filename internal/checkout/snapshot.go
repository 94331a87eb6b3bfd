package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pawcircle/pawcircle-backend/internal/pricing"
	"github.com/pawcircle/pawcircle-backend/internal/promo"
	pkgcheckout "github.com/pawcircle/pawcircle-backend/pkg/checkout"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const orderIDPrefix = "ORD-"

// Snapshot is the frozen record of a completed checkout.
type Snapshot struct {
	OrderID   string                `json:"orderId"`
	PlacedAt  time.Time             `json:"placedAt"`
	Lines     []types.OrderLine     `json:"lines"`
	Breakdown pricing.Breakdown     `json:"breakdown"`
	Contact   types.Contact         `json:"contact"`
	Address   types.ShippingAddress `json:"shippingAddress"`
	Delivery  enums.DeliveryMethod  `json:"deliveryMethod"`
	Payment   enums.PaymentMethod   `json:"paymentMethod"`
	PromoCode *string               `json:"promoCode,omitempty"`
}

// IDGenerator returns a new order token for the given placement time.
type IDGenerator func(now time.Time) string

// NewOrderID builds a time-ordered ULID token. It is unique in practice but not authoritative;
// the orders table keeps its own primary key.
func NewOrderID(now time.Time) string {
	return orderIDPrefix + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

// SnapshotInput is everything a snapshot is built from.
type SnapshotInput struct {
	Lines     []models.CartLine
	Breakdown pricing.Breakdown
	Contact   types.Contact
	Address   types.ShippingAddress
	Delivery  enums.DeliveryMethod
	Payment   enums.PaymentMethod
	Promo     *promo.Promo
	Now       time.Time
	NewID     IDGenerator
}

// BuildSnapshot checks every commit precondition and freezes the order. It performs no I/O.
func BuildSnapshot(input SnapshotInput) (*Snapshot, error) {
	var err error
	if len(input.Lines) == 0 {
		err = multierr.Append(err, pkgcheckout.FieldViolation{Field: "cart", Reason: "is empty"})
	}
	err = multierr.Append(err, pkgcheckout.ValidateContact(input.Contact))
	err = multierr.Append(err, pkgcheckout.ValidateAddress(input.Address))
	if !input.Delivery.IsValid() {
		err = multierr.Append(err, pkgcheckout.FieldViolation{Field: "deliveryMethod", Reason: "is not supported"})
	}
	if !input.Payment.IsValid() {
		err = multierr.Append(err, pkgcheckout.FieldViolation{Field: "paymentMethod", Reason: "is not supported"})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePrecondition, err, "checkout is not ready").
			WithDetails(map[string]any{"violations": pkgcheckout.Violations(err)})
	}

	newID := input.NewID
	if newID == nil {
		newID = NewOrderID
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	lines := make([]types.OrderLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, types.OrderLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			ImageURL:  line.ImageURL,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}

	snapshot := &Snapshot{
		OrderID:   newID(now),
		PlacedAt:  now,
		Lines:     lines,
		Breakdown: input.Breakdown,
		Contact:   trimContact(input.Contact),
		Address:   trimAddress(input.Address),
		Delivery:  input.Delivery,
		Payment:   input.Payment,
	}
	if input.Promo != nil && input.Promo.Code != "" {
		code := input.Promo.Code
		snapshot.PromoCode = &code
	}
	return snapshot, nil
}

// Clone returns a deep copy so callers cannot reach the stored lines.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Lines = append([]types.OrderLine(nil), s.Lines...)
	if s.PromoCode != nil {
		code := *s.PromoCode
		out.PromoCode = &code
	}
	return out
}

// ItemCount is the number of units across all lines.
func (s Snapshot) ItemCount() int {
	count := 0
	for _, line := range s.Lines {
		count += line.Quantity
	}
	return count
}

// ToOrder maps the snapshot onto its persisted row.
func (s Snapshot) ToOrder(userID uuid.UUID) models.Order {
	c := s.Clone()
	return models.Order{
		ID:              uuid.New(),
		OrderID:         c.OrderID,
		UserID:          userID,
		PlacedAt:        c.PlacedAt,
		DeliveryMethod:  c.Delivery,
		PaymentMethod:   c.Payment,
		PromoCode:       c.PromoCode,
		Subtotal:        c.Breakdown.Subtotal,
		CGST:            c.Breakdown.CGST,
		SGST:            c.Breakdown.SGST,
		DeliveryFee:     c.Breakdown.DeliveryFee,
		PromoDiscount:   c.Breakdown.PromoDiscount,
		Total:           c.Breakdown.Total,
		Lines:           c.Lines,
		Contact:         c.Contact,
		ShippingAddress: c.Address,
	}
}

// SnapshotFromOrder rebuilds the snapshot stored on an order row.
func SnapshotFromOrder(order models.Order) Snapshot {
	s := Snapshot{
		OrderID:  order.OrderID,
		PlacedAt: order.PlacedAt.UTC(),
		Lines:    order.Lines,
		Breakdown: pricing.Breakdown{
			Subtotal:      order.Subtotal,
			CGST:          order.CGST,
			SGST:          order.SGST,
			DeliveryFee:   order.DeliveryFee,
			PromoDiscount: order.PromoDiscount,
			Total:         order.Total,
		},
		Contact:   order.Contact,
		Address:   order.ShippingAddress,
		Delivery:  order.DeliveryMethod,
		Payment:   order.PaymentMethod,
		PromoCode: order.PromoCode,
	}
	return s.Clone()
}

func trimContact(c types.Contact) types.Contact {
	return types.Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

func trimAddress(a types.ShippingAddress) types.ShippingAddress {
	return types.ShippingAddress{
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}
