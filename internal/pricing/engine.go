package pricing

import (
	"fmt"

	"github.com/pawcircle/pawcircle-backend/internal/promo"
	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Line is the pricing view of a cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown is the full set of amounts shown at cart, checkout and on the invoice.
// Subtotal is the exact line sum; the tax lines and the discount are rounded to whole units.
type Breakdown struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	PromoDiscount decimal.Decimal `json:"promoDiscount"`
	Total         decimal.Decimal `json:"total"`
}

// Equal reports whether every amount matches.
func (b Breakdown) Equal(other Breakdown) bool {
	return b.Subtotal.Equal(other.Subtotal) &&
		b.CGST.Equal(other.CGST) &&
		b.SGST.Equal(other.SGST) &&
		b.DeliveryFee.Equal(other.DeliveryFee) &&
		b.PromoDiscount.Equal(other.PromoDiscount) &&
		b.Total.Equal(other.Total)
}

// Rules are the rates and fees a breakdown is computed with.
type Rules struct {
	CGSTRate   decimal.Decimal
	SGSTRate   decimal.Decimal
	ExpressFee decimal.Decimal
	Currency   string
}

func DefaultRules() Rules {
	return Rules{
		CGSTRate:   decimal.RequireFromString("0.09"),
		SGSTRate:   decimal.RequireFromString("0.09"),
		ExpressFee: decimal.NewFromInt(99),
		Currency:   "INR",
	}
}

// RulesFromConfig parses the decimal strings carried by the pricing config.
func RulesFromConfig(cfg config.PricingConfig) (Rules, error) {
	rules := DefaultRules()
	var err error
	if cfg.CGSTRate != "" {
		if rules.CGSTRate, err = decimal.NewFromString(cfg.CGSTRate); err != nil {
			return Rules{}, fmt.Errorf("parse cgst rate: %w", err)
		}
	}
	if cfg.SGSTRate != "" {
		if rules.SGSTRate, err = decimal.NewFromString(cfg.SGSTRate); err != nil {
			return Rules{}, fmt.Errorf("parse sgst rate: %w", err)
		}
	}
	if cfg.ExpressFee != "" {
		if rules.ExpressFee, err = decimal.NewFromString(cfg.ExpressFee); err != nil {
			return Rules{}, fmt.Errorf("parse express fee: %w", err)
		}
	}
	if cfg.Currency != "" {
		rules.Currency = cfg.Currency
	}
	return rules, nil
}

// Engine computes breakdowns. It holds no state beyond its rules and is safe for concurrent use.
type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) (*Engine, error) {
	if rules.CGSTRate.IsNegative() || rules.SGSTRate.IsNegative() {
		return nil, fmt.Errorf("tax rates must be non-negative")
	}
	if rules.ExpressFee.IsNegative() {
		return nil, fmt.Errorf("express fee must be non-negative")
	}
	return &Engine{rules: rules}, nil
}

func (e *Engine) Rules() Rules {
	return e.rules
}

// ComputeBreakdown prices lines for the delivery method with an optional promo.
// A cart with nothing billable yields an all-zero breakdown, delivery fee included.
func (e *Engine) ComputeBreakdown(lines []Line, delivery enums.DeliveryMethod, applied *promo.Promo) Breakdown {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if !subtotal.IsPositive() {
		return Breakdown{
			Subtotal:      decimal.Zero,
			CGST:          decimal.Zero,
			SGST:          decimal.Zero,
			DeliveryFee:   decimal.Zero,
			PromoDiscount: decimal.Zero,
			Total:         decimal.Zero,
		}
	}

	cgst := subtotal.Mul(e.rules.CGSTRate).Round(0)
	sgst := subtotal.Mul(e.rules.SGSTRate).Round(0)

	fee := decimal.Zero
	if delivery == enums.DeliveryExpress {
		fee = e.rules.ExpressFee
	}

	discount := decimal.Zero
	if applied != nil {
		base := subtotal.Add(cgst).Add(sgst)
		discount = base.Mul(applied.Percent).Round(0)
		if discount.IsNegative() {
			discount = decimal.Zero
		}
		if discount.GreaterThan(base) {
			discount = base
		}
	}

	total := subtotal.Add(cgst).Add(sgst).Add(fee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal:      subtotal,
		CGST:          cgst,
		SGST:          sgst,
		DeliveryFee:   fee,
		PromoDiscount: discount,
		Total:         total,
	}
}
