package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByOrderID(ctx context.Context, userID uuid.UUID, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_id = ?", userID, orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser pages through a user's orders, newest first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	var rows []models.Order
	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Scopes(pagination.After(cursor, "placed_at")).
		Order("placed_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	rows, next := pagination.Page(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.PlacedAt, ID: o.ID}
	})
	return rows, next, nil
}

func (r *repository) Latest(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("placed_at DESC").Order("id DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
