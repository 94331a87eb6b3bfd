package pricing

import (
	"testing"

	"github.com/pawcircle/pawcircle-backend/internal/promo"
	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

func TestComputeBreakdown(t *testing.T) {
	engine := newTestEngine(t)
	welcome := &promo.Promo{Code: "WELCOME10", Percent: d("0.10")}

	tests := []struct {
		name     string
		lines    []Line
		delivery enums.DeliveryMethod
		promo    *promo.Promo
		want     [6]string // subtotal, cgst, sgst, fee, discount, total
	}{
		{
			name:     "standard no promo",
			lines:    []Line{{UnitPrice: d("500"), Quantity: 2}},
			delivery: enums.DeliveryStandard,
			want:     [6]string{"1000", "90", "90", "0", "0", "1180"},
		},
		{
			name:     "welcome10 on standard",
			lines:    []Line{{UnitPrice: d("500"), Quantity: 2}},
			delivery: enums.DeliveryStandard,
			promo:    welcome,
			want:     [6]string{"1000", "90", "90", "0", "118", "1062"},
		},
		{
			name:     "express no promo",
			lines:    []Line{{UnitPrice: d("500"), Quantity: 2}},
			delivery: enums.DeliveryExpress,
			want:     [6]string{"1000", "90", "90", "99", "0", "1279"},
		},
		{
			name:     "express with promo excludes fee from base",
			lines:    []Line{{UnitPrice: d("500"), Quantity: 2}},
			delivery: enums.DeliveryExpress,
			promo:    welcome,
			want:     [6]string{"1000", "90", "90", "99", "118", "1161"},
		},
		{
			name:     "empty cart is all zeros even for express with promo",
			lines:    nil,
			delivery: enums.DeliveryExpress,
			promo:    welcome,
			want:     [6]string{"0", "0", "0", "0", "0", "0"},
		},
		{
			name:     "taxes rounded half away from zero",
			lines:    []Line{{UnitPrice: d("149"), Quantity: 1}, {UnitPrice: d("201"), Quantity: 1}},
			delivery: enums.DeliveryStandard,
			want:     [6]string{"350", "32", "32", "0", "0", "414"},
		},
		{
			name:     "fractional price keeps exact subtotal",
			lines:    []Line{{UnitPrice: d("99.50"), Quantity: 1}},
			delivery: enums.DeliveryStandard,
			want:     [6]string{"99.50", "9", "9", "0", "0", "117.50"},
		},
		{
			name:     "fractional prices across lines",
			lines:    []Line{{UnitPrice: d("10.25"), Quantity: 2}, {UnitPrice: d("0.30"), Quantity: 1}},
			delivery: enums.DeliveryStandard,
			promo:    welcome,
			want:     [6]string{"20.80", "2", "2", "0", "2", "22.80"},
		},
		{
			name:     "sub unit cart is still billable",
			lines:    []Line{{UnitPrice: d("0.49"), Quantity: 1}},
			delivery: enums.DeliveryExpress,
			promo:    welcome,
			want:     [6]string{"0.49", "0", "0", "99", "0", "99.49"},
		},
		{
			name:     "non positive quantities are ignored",
			lines:    []Line{{UnitPrice: d("250"), Quantity: 0}, {UnitPrice: d("250"), Quantity: -1}},
			delivery: enums.DeliveryExpress,
			want:     [6]string{"0", "0", "0", "0", "0", "0"},
		},
		{
			name:     "multi line with promo",
			lines:    []Line{{UnitPrice: d("249"), Quantity: 3}, {UnitPrice: d("1299"), Quantity: 1}},
			delivery: enums.DeliveryStandard,
			promo:    welcome,
			want:     [6]string{"2046", "184", "184", "0", "241", "2173"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.ComputeBreakdown(tt.lines, tt.delivery, tt.promo)
			fields := []decimal.Decimal{got.Subtotal, got.CGST, got.SGST, got.DeliveryFee, got.PromoDiscount, got.Total}
			for i, want := range tt.want {
				if !fields[i].Equal(d(want)) {
					t.Fatalf("field %d: expected %s got %s (%+v)", i, want, fields[i], got)
				}
			}
		})
	}
}

func TestComputeBreakdownInvariants(t *testing.T) {
	engine := newTestEngine(t)
	full := &promo.Promo{Code: "ALL", Percent: d("1")}

	carts := [][]Line{
		{{UnitPrice: d("1"), Quantity: 1}},
		{{UnitPrice: d("5"), Quantity: 5}},
		{{UnitPrice: d("333.33"), Quantity: 3}},
		{{UnitPrice: d("89"), Quantity: 4}, {UnitPrice: d("1249"), Quantity: 2}},
	}
	for _, lines := range carts {
		for _, delivery := range []enums.DeliveryMethod{enums.DeliveryStandard, enums.DeliveryExpress} {
			for _, p := range []*promo.Promo{nil, {Code: "WELCOME10", Percent: d("0.1")}, full} {
				got := engine.ComputeBreakdown(lines, delivery, p)
				if !got.CGST.Equal(got.SGST) {
					t.Fatalf("cgst %s != sgst %s", got.CGST, got.SGST)
				}
				if got.Total.IsNegative() {
					t.Fatalf("negative total %s", got.Total)
				}
				base := got.Subtotal.Add(got.CGST).Add(got.SGST)
				if got.PromoDiscount.GreaterThan(base) {
					t.Fatalf("discount %s exceeds base %s", got.PromoDiscount, base)
				}
				want := base.Add(got.DeliveryFee).Sub(got.PromoDiscount)
				if !got.Total.Equal(want) {
					t.Fatalf("total %s does not reconcile to %s", got.Total, want)
				}
				if p == nil && !got.PromoDiscount.IsZero() {
					t.Fatalf("discount without promo: %s", got.PromoDiscount)
				}
			}
		}
	}
}

func TestComputeBreakdownFullPromoLeavesOnlyDelivery(t *testing.T) {
	engine := newTestEngine(t)
	got := engine.ComputeBreakdown([]Line{{UnitPrice: d("500"), Quantity: 2}}, enums.DeliveryExpress, &promo.Promo{Code: "ALL", Percent: d("1")})
	if !got.Total.Equal(d("99")) {
		t.Fatalf("expected only the delivery fee to remain, got %s", got.Total)
	}
}

func TestComputeBreakdownIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	lines := []Line{{UnitPrice: d("349.50"), Quantity: 3}}
	applied := &promo.Promo{Code: "WELCOME10", Percent: d("0.1")}

	first := engine.ComputeBreakdown(lines, enums.DeliveryExpress, applied)
	second := engine.ComputeBreakdown(lines, enums.DeliveryExpress, applied)
	if !first.Equal(second) {
		t.Fatalf("expected identical breakdowns, got %+v and %+v", first, second)
	}
	if !lines[0].UnitPrice.Equal(d("349.50")) || lines[0].Quantity != 3 {
		t.Fatal("input lines must not be mutated")
	}
}

func TestRulesFromConfig(t *testing.T) {
	rules, err := RulesFromConfig(config.PricingConfig{CGSTRate: "0.06", SGSTRate: "0.06", ExpressFee: "49", Currency: "INR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rules.ExpressFee.Equal(d("49")) || !rules.CGSTRate.Equal(d("0.06")) {
		t.Fatalf("unexpected rules %+v", rules)
	}

	if _, err := RulesFromConfig(config.PricingConfig{ExpressFee: "ninety-nine"}); err == nil {
		t.Fatal("expected parse error")
	}

	if _, err := NewEngine(Rules{CGSTRate: d("-0.1")}); err == nil {
		t.Fatal("expected error for negative rate")
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultRules())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
