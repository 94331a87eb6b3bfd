package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/internal/checkout"
	"github.com/pawcircle/pawcircle-backend/internal/session"
	"github.com/pawcircle/pawcircle-backend/pkg/db"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
)

// Service serves the confirmation page and the order history.
type Service interface {
	LastOrder(ctx context.Context, userID uuid.UUID) (*checkout.Snapshot, error)
	Get(ctx context.Context, userID uuid.UUID, orderID string) (*checkout.Snapshot, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo     Repository
	sessions session.Store
	logg     *logger.Logger
}

// NewService builds the orders read service.
func NewService(repo Repository, sessions session.Store, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &service{repo: repo, sessions: sessions, logg: logg}, nil
}

// LastOrder returns the snapshot stored at commit time. An expired session falls back to the
// newest persisted order.
func (s *service) LastOrder(ctx context.Context, userID uuid.UUID) (*checkout.Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}

	var snap checkout.Snapshot
	ok, err := session.GetJSON(ctx, s.sessions, userID, session.KeyLastOrder, &snap)
	if err != nil {
		// an unreadable session entry is not fatal while the database still has the order
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orders.last_order_session_read_failed")
	}
	if ok {
		return &snap, nil
	}

	order, err := s.repo.Latest(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order placed yet")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest order")
	}
	out := checkout.SnapshotFromOrder(*order)
	return &out, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, orderID string) (*checkout.Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByOrderID(ctx, userID, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	out := checkout.SnapshotFromOrder(*order)
	return &out, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, summaryFor(row))
	}
	return list, nil
}
