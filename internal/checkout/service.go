package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/internal/cart"
	"github.com/pawcircle/pawcircle-backend/internal/pricing"
	"github.com/pawcircle/pawcircle-backend/internal/promo"
	"github.com/pawcircle/pawcircle-backend/internal/session"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox/payloads"
	"github.com/pawcircle/pawcircle-backend/pkg/types"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type promoState interface {
	Active(ctx context.Context, userID uuid.UUID) (*promo.Promo, error)
	Remove(ctx context.Context, userID uuid.UUID) error
}

type viewInvalidator interface {
	InvalidateView(ctx context.Context, userID uuid.UUID)
}

// Service prices carts for checkout and commits orders.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, delivery enums.DeliveryMethod) (*Quote, error)
	Commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*Snapshot, error)
}

// Quote is the live breakdown for the user's cart.
type Quote struct {
	Breakdown pricing.Breakdown    `json:"breakdown"`
	Delivery  enums.DeliveryMethod `json:"deliveryMethod"`
	PromoCode *string              `json:"promoCode,omitempty"`
	Currency  string               `json:"currency"`
	LineCount int                  `json:"lineCount"`
	ItemCount int                  `json:"itemCount"`
}

// CommitInput is the checkout form.
type CommitInput struct {
	Contact  types.Contact
	Address  types.ShippingAddress
	Delivery enums.DeliveryMethod
	Payment  enums.PaymentMethod
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx       txRunner
	Orders   Repository
	Cart     cart.CartRepository
	Views    viewInvalidator
	Locker   cart.Locker
	Promos   promoState
	Engine   *pricing.Engine
	Sessions session.Store
	Outbox   outbox.Emitter
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
	NewID    IDGenerator
}

type service struct {
	tx       txRunner
	orders   Repository
	cart     cart.CartRepository
	views    viewInvalidator
	locker   cart.Locker
	promos   promoState
	engine   *pricing.Engine
	sessions session.Store
	outbox   outbox.Emitter
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	clock    func() time.Time
	newID    IDGenerator
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Views == nil:
		return nil, fmt.Errorf("cart view invalidator required")
	case params.Locker == nil:
		return nil, fmt.Errorf("cart locker required")
	case params.Promos == nil:
		return nil, fmt.Errorf("promo service required")
	case params.Engine == nil:
		return nil, fmt.Errorf("pricing engine required")
	case params.Sessions == nil:
		return nil, fmt.Errorf("session store required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := params.NewID
	if newID == nil {
		newID = NewOrderID
	}
	return &service{
		tx:       params.Tx,
		orders:   params.Orders,
		cart:     params.Cart,
		views:    params.Views,
		locker:   params.Locker,
		promos:   params.Promos,
		engine:   params.Engine,
		sessions: params.Sessions,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		clock:    clock,
		newID:    newID,
	}, nil
}

// Quote recomputes the breakdown from the ledger and the applied promo on every call.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, delivery enums.DeliveryMethod) (*Quote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	if !delivery.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}
	lines, applied, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	quote := &Quote{
		Breakdown: s.engine.ComputeBreakdown(pricingLines(lines), delivery, applied),
		Delivery:  delivery,
		Currency:  s.engine.Rules().Currency,
		LineCount: len(lines),
	}
	for _, line := range lines {
		quote.ItemCount += line.Quantity
	}
	if applied != nil {
		code := applied.Code
		quote.PromoCode = &code
	}
	return quote, nil
}

// Commit validates the form, freezes the snapshot and, in one transaction, writes the order,
// clears the cart and queues order_placed. Session state is only touched after that commits.
func (s *service) Commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	ctx = s.logg.WithUserID(ctx, userID.String())
	started := s.clock()
	run := newAttempt()

	if err := run.advance(enums.CheckoutValidating); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		run.fail()
		s.metrics.ObserveCommit(metrics.CheckoutOutcomeFailed, s.clock().Sub(started))
		return nil, err
	}
	defer unlock(context.WithoutCancel(ctx))

	lines, applied, err := s.load(ctx, userID)
	if err != nil {
		run.fail()
		s.metrics.ObserveCommit(metrics.CheckoutOutcomeFailed, s.clock().Sub(started))
		return nil, err
	}

	breakdown := s.engine.ComputeBreakdown(pricingLines(lines), input.Delivery, applied)
	snapshot, err := BuildSnapshot(SnapshotInput{
		Lines:     lines,
		Breakdown: breakdown,
		Contact:   input.Contact,
		Address:   input.Address,
		Delivery:  input.Delivery,
		Payment:   input.Payment,
		Promo:     applied,
		Now:       s.clock(),
		NewID:     s.newID,
	})
	if err != nil {
		run.fail()
		s.metrics.ObserveCommit(metrics.CheckoutOutcomePrecondition, s.clock().Sub(started))
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "checkout.rejected")
		return nil, err
	}

	if err := run.advance(enums.CheckoutCommitting); err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, snapshot.OrderID)

	order := snapshot.ToOrder(userID)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).CreateOrder(ctx, &order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if _, err := s.cart.WithTx(tx).ClearAll(ctx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			OccurredAt:    snapshot.PlacedAt,
			Data: payloads.OrderPlacedEvent{
				OrderRowID:     order.ID,
				OrderID:        snapshot.OrderID,
				UserID:         userID,
				PlacedAt:       snapshot.PlacedAt,
				Total:          snapshot.Breakdown.Total,
				Currency:       s.engine.Rules().Currency,
				LineCount:      len(snapshot.Lines),
				ItemCount:      snapshot.ItemCount(),
				DeliveryMethod: snapshot.Delivery,
				PaymentMethod:  snapshot.Payment,
				PromoCode:      snapshot.PromoCode,
			},
		})
	})
	if err != nil {
		run.fail()
		s.metrics.ObserveCommit(metrics.CheckoutOutcomeFailed, s.clock().Sub(started))
		s.logg.Error(ctx, "checkout.failed", err)
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "commit order")
	}
	if err := run.advance(enums.CheckoutSuccess); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, userID, *snapshot)

	s.metrics.ObserveCommit(metrics.CheckoutOutcomeSuccess, s.clock().Sub(started))
	total, _ := snapshot.Breakdown.Total.Float64()
	s.metrics.ObserveOrderTotal(total)
	s.logg.Info(s.logg.WithField(ctx, "total", snapshot.Breakdown.Total.String()), "checkout.committed")

	out := snapshot.Clone()
	return &out, nil
}

// afterCommit updates session state. The order is already durable, so failures are logged only.
func (s *service) afterCommit(ctx context.Context, userID uuid.UUID, snapshot Snapshot) {
	if err := session.SetJSON(ctx, s.sessions, userID, session.KeyLastOrder, snapshot.Clone()); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to store last order")
	}
	if err := s.promos.Remove(ctx, userID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to clear applied promo")
	}
	s.views.InvalidateView(ctx, userID)
}

func (s *service) load(ctx context.Context, userID uuid.UUID) ([]models.CartLine, *promo.Promo, error) {
	lines, err := s.cart.ListLines(ctx, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	applied, err := s.promos.Active(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return lines, applied, nil
}

func pricingLines(lines []models.CartLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, pricing.Line{UnitPrice: line.UnitPrice, Quantity: line.Quantity})
	}
	return out
}
