package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/internal/session"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

// Service manages the single promo a user may have applied to their cart.
type Service interface {
	Apply(ctx context.Context, userID uuid.UUID, code string) (Promo, error)
	Active(ctx context.Context, userID uuid.UUID) (*Promo, error)
	Remove(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	table *Table
	store session.Store
	logg  *logger.Logger
}

func NewService(table *Table, store session.Store, logg *logger.Logger) (Service, error) {
	if table == nil {
		return nil, fmt.Errorf("promo table required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &service{table: table, store: store, logg: logg}, nil
}

// Apply resolves code and replaces any promo already stored for the user.
func (s *service) Apply(ctx context.Context, userID uuid.UUID, code string) (Promo, error) {
	if userID == uuid.Nil {
		return Promo{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	promo, err := s.table.Resolve(code)
	if err != nil {
		return Promo{}, err
	}
	if err := s.store.Set(ctx, userID, session.KeyAppliedPromo, promo.Code); err != nil {
		return Promo{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store applied promo")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "promo_code": promo.Code})
	s.logg.Info(ctx, "promo.applied")
	return promo, nil
}

// Active returns the applied promo, or nil when none is stored. A stored code that
// no longer resolves is dropped.
func (s *service) Active(ctx context.Context, userID uuid.UUID) (*Promo, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	code, ok, err := s.store.Get(ctx, userID, session.KeyAppliedPromo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read applied promo")
	}
	if !ok {
		return nil, nil
	}
	promo, err := s.table.Resolve(code)
	if err != nil {
		if errors.Is(err, ErrUnknownCode) || errors.Is(err, ErrNoCode) {
			if delErr := s.store.Delete(ctx, userID, session.KeyAppliedPromo); delErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", delErr.Error()), "failed to drop stale promo")
			}
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

func (s *service) Remove(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	if err := s.store.Delete(ctx, userID, session.KeyAppliedPromo); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove applied promo")
	}
	return nil
}
