package cart

import (
	"time"

	"github.com/google/uuid"
	product "github.com/pawcircle/pawcircle-backend/internal/products"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

const (
	MinQuantity        = 1
	DefaultMaxQuantity = 5
)

// LineView is a cart line with its catalog annotations.
type LineView struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      uuid.UUID        `json:"productId"`
	Name           string           `json:"name"`
	ImageURL       string           `json:"imageUrl"`
	UnitPrice      decimal.Decimal  `json:"unitPrice"`
	Quantity       int              `json:"quantity"`
	LineTotal      decimal.Decimal  `json:"lineTotal"`
	OldPrice       *decimal.Decimal `json:"oldPrice,omitempty"`
	DiscountPrice  *decimal.Decimal `json:"discountPrice,omitempty"`
	Rating         *decimal.Decimal `json:"rating,omitempty"`
	SavingsPercent *decimal.Decimal `json:"savingsPercent,omitempty"`
	AddedAt        time.Time        `json:"addedAt"`
}

// View is the cart as shown on the cart and checkout pages.
type View struct {
	Lines     []LineView `json:"lines"`
	ItemCount int        `json:"itemCount"`
}

func buildView(lines []models.CartLine, pricing map[uuid.UUID]product.Pricing) View {
	view := View{Lines: make([]LineView, 0, len(lines))}
	for _, line := range lines {
		lv := LineView{
			ID:        line.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			ImageURL:  line.ImageURL,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			AddedAt:   line.CreatedAt,
		}
		if p, ok := pricing[line.ProductID]; ok {
			lv.OldPrice = p.OldPrice
			lv.DiscountPrice = p.DiscountPrice
			lv.Rating = p.Rating
			lv.SavingsPercent = p.SavingsPercent
		}
		view.Lines = append(view.Lines, lv)
		view.ItemCount += line.Quantity
	}
	return view
}

// matches reports whether v shows exactly the given ledger lines, in order.
func (v View) matches(lines []models.CartLine) bool {
	if len(v.Lines) != len(lines) {
		return false
	}
	for i, line := range lines {
		got := v.Lines[i]
		if got.ID != line.ID || got.Quantity != line.Quantity || !got.UnitPrice.Equal(line.UnitPrice) {
			return false
		}
	}
	return true
}

// withQuantity returns a copy of v with lineID set to quantity.
func (v View) withQuantity(lineID uuid.UUID, quantity int) View {
	out := View{Lines: make([]LineView, 0, len(v.Lines))}
	for _, line := range v.Lines {
		if line.ID == lineID {
			line.Quantity = quantity
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		}
		out.Lines = append(out.Lines, line)
		out.ItemCount += line.Quantity
	}
	return out
}

// without returns a copy of v with lineID dropped.
func (v View) without(lineID uuid.UUID) View {
	out := View{Lines: make([]LineView, 0, len(v.Lines))}
	for _, line := range v.Lines {
		if line.ID == lineID {
			continue
		}
		out.Lines = append(out.Lines, line)
		out.ItemCount += line.Quantity
	}
	return out
}
