package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service.
// Every method is scoped to a single user.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	FindLine(ctx context.Context, userID, lineID uuid.UUID) (*models.CartLine, error)
	FindByUserProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartLine, error)
	Create(ctx context.Context, line *models.CartLine) error
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, userID, lineID uuid.UUID) (int64, error)
	ClearAll(ctx context.Context, userID uuid.UUID) (int64, error)
}
