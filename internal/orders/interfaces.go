package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
)

// Repository reads persisted orders. Rows are only ever written by checkout.
type Repository interface {
	FindByOrderID(ctx context.Context, userID uuid.UUID, orderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	Latest(ctx context.Context, userID uuid.UUID) (*models.Order, error)
}
