package cart

import "github.com/google/uuid"

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta" validate:"required,min=-5,max=5"`
}
