package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	product "github.com/pawcircle/pawcircle-backend/internal/products"
	"github.com/pawcircle/pawcircle-backend/internal/session"
	"github.com/pawcircle/pawcircle-backend/pkg/db"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	PricingFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]product.Pricing, error)
}

// Service exposes the cart ledger.
type Service interface {
	ListLines(ctx context.Context, userID uuid.UUID) (*View, error)
	Lines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	ChangeQuantity(ctx context.Context, userID, lineID uuid.UUID, delta int) (*View, error)
	RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	InvalidateView(ctx context.Context, userID uuid.UUID)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repo        CartRepository
	Tx          txRunner
	Catalog     catalog
	Sessions    session.Store
	Locker      Locker
	Outbox      outbox.Emitter
	Metrics     *metrics.CartMetrics
	Logger      *logger.Logger
	MaxQuantity int
}

type service struct {
	repo     CartRepository
	tx       txRunner
	catalog  catalog
	sessions session.Store
	locker   Locker
	outbox   outbox.Emitter
	metrics  *metrics.CartMetrics
	logg     *logger.Logger
	maxQty   int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("cart locker required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	maxQty := params.MaxQuantity
	if maxQty <= 0 {
		maxQty = DefaultMaxQuantity
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		catalog:  params.Catalog,
		sessions: params.Sessions,
		locker:   params.Locker,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		maxQty:   maxQty,
	}, nil
}

// ListLines serves the cached view only while it still matches the ledger, so a view left
// behind by a failed invalidation is never shown.
func (s *service) ListLines(ctx context.Context, userID uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	var cached View
	ok, err := session.GetJSON(ctx, s.sessions, userID, session.KeyCartView, &cached)
	switch {
	case err != nil:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart view cache unreadable")
	case ok && cached.matches(lines):
		return &cached, nil
	}
	return s.cacheView(ctx, userID, lines), nil
}

// Lines reads the authoritative ledger, bypassing the view cache.
func (s *service) Lines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	return lines, nil
}

// AddItem adds one unit of productID, creating the line with the current catalog price if needed.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, "add", func(ctx context.Context) error {
		item, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindByUserProduct(ctx, userID, productID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		if existing != nil {
			next := existing.Quantity + 1
			if err := s.checkQuantity(next); err != nil {
				return err
			}
			return s.optimistic(userID).Do(ctx,
				func(v View) View { return v.withQuantity(existing.ID, next) },
				func(ctx context.Context) error {
					if err := s.repo.UpdateQuantity(ctx, userID, existing.ID, next); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
					}
					return nil
				})
		}

		line := &models.CartLine{
			ID:        uuid.New(),
			UserID:    userID,
			ProductID: item.ID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.Price,
			Quantity:  MinQuantity,
		}
		if err := s.repo.Create(ctx, line); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errCartBusy
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
		s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "cart.line_added")
		return nil
	})
}

// ChangeQuantity applies delta to a line. Results outside [1, max] are rejected and leave the line unchanged.
func (s *service) ChangeQuantity(ctx context.Context, userID, lineID uuid.UUID, delta int) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	return s.mutate(ctx, userID, "change_quantity", func(ctx context.Context) error {
		line, err := s.repo.FindLine(ctx, userID, lineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		next := line.Quantity + delta
		if err := s.checkQuantity(next); err != nil {
			return err
		}
		return s.optimistic(userID).Do(ctx,
			func(v View) View { return v.withQuantity(lineID, next) },
			func(ctx context.Context) error {
				if err := s.repo.UpdateQuantity(ctx, userID, lineID, next); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
				}
				return nil
			})
	})
}

func (s *service) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, "remove", func(ctx context.Context) error {
		return s.optimistic(userID).Do(ctx,
			func(v View) View { return v.without(lineID) },
			func(ctx context.Context) error {
				removed, err := s.repo.DeleteLine(ctx, userID, lineID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
				}
				if removed == 0 {
					return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
				}
				return nil
			})
	})
}

// Clear empties the cart and records a cart_cleared event in the same transaction.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		s.metrics.IncMutation("clear", resultFor(err))
		return err
	}
	defer unlock(context.WithoutCancel(ctx))

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		removed, err := s.repo.WithTx(tx).ClearAll(ctx, userID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartCleared,
			AggregateType: enums.AggregateCart,
			AggregateID:   userID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data:          payloads.CartClearedEvent{UserID: userID, LinesRemoved: removed},
		})
	})
	if err != nil {
		s.metrics.IncMutation("clear", "error")
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.InvalidateView(ctx, userID)
	s.metrics.IncMutation("clear", "ok")
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "cart.cleared")
	return nil
}

// InvalidateView drops the cached cart view so the next read goes to the ledger.
func (s *service) InvalidateView(ctx context.Context, userID uuid.UUID) {
	if err := s.sessions.Delete(ctx, userID, session.KeyCartView); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to drop cart view cache")
	}
}

// mutate runs fn under the per-user cart lock and returns the refreshed view.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, op string, fn func(ctx context.Context) error) (*View, error) {
	ctx = s.logg.WithUserID(ctx, userID.String())
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		s.metrics.IncMutation(op, resultFor(err))
		return nil, err
	}
	defer unlock(context.WithoutCancel(ctx))

	if err := fn(ctx); err != nil {
		s.metrics.IncMutation(op, resultFor(err))
		return nil, err
	}
	s.metrics.IncMutation(op, "ok")

	view, err := s.refreshView(ctx, userID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) refreshView(ctx context.Context, userID uuid.UUID) (*View, error) {
	lines, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	return s.cacheView(ctx, userID, lines), nil
}

// cacheView annotates lines with catalog pricing and stores the result as the session view.
func (s *service) cacheView(ctx context.Context, userID uuid.UUID, lines []models.CartLine) *View {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	pricing, err := s.catalog.PricingFor(ctx, ids)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart pricing annotations unavailable")
		pricing = nil
	}
	view := buildView(lines, pricing)
	if err := session.SetJSON(ctx, s.sessions, userID, session.KeyCartView, view); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to cache cart view")
	}
	return &view
}

func (s *service) optimistic(userID uuid.UUID) Transactional[View] {
	return Transactional[View]{
		Load: func(ctx context.Context) (View, bool, error) {
			var view View
			ok, err := session.GetJSON(ctx, s.sessions, userID, session.KeyCartView, &view)
			return view, ok, err
		},
		Store: func(ctx context.Context, view View) error {
			return session.SetJSON(ctx, s.sessions, userID, session.KeyCartView, view)
		},
	}
}

func (s *service) checkQuantity(quantity int) error {
	if quantity < MinQuantity || quantity > s.maxQty {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between %d and %d", MinQuantity, s.maxQty)).
			WithDetails(map[string]any{"min": MinQuantity, "max": s.maxQty, "requested": quantity})
	}
	return nil
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return nil
}

func resultFor(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation:
		return "rejected"
	case pkgerrors.CodeConflict:
		return "busy"
	case pkgerrors.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
