package product

import (
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
)

// ListProductsInput captures browse filters and the cursor page.
type ListProductsInput struct {
	Category   *enums.ProductCategory
	Query      string
	Pagination pagination.Params
}
