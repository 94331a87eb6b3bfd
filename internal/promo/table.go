package promo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrNoCode      = pkgerrors.New(pkgerrors.CodeValidation, "enter a promo code")
	ErrUnknownCode = pkgerrors.New(pkgerrors.CodeValidation, "promo code not recognised")
)

// Rule is one entry of the promo allow-list. Percent is a fraction, 0.10 for ten percent.
type Rule struct {
	Code        string          `json:"code"`
	Percent     decimal.Decimal `json:"percent"`
	Description string          `json:"description,omitempty"`
}

// Promo is a resolved, canonical promo code ready to be priced.
type Promo struct {
	Code        string          `json:"code"`
	Percent     decimal.Decimal `json:"percent"`
	Description string          `json:"description,omitempty"`
}

// DefaultRules is the allow-list shipped with the service.
func DefaultRules() []Rule {
	return []Rule{
		{Code: "WELCOME10", Percent: decimal.RequireFromString("0.10"), Description: "10% off your order"},
	}
}

// Table is the static allow-list promos resolve against.
type Table struct {
	rules map[string]Rule
}

// NewTable validates rules and indexes them by canonical code.
func NewTable(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("promo table requires at least one rule")
	}
	indexed := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		code := canonical(rule.Code)
		if code == "" {
			return nil, fmt.Errorf("promo rule code is required")
		}
		if rule.Percent.LessThanOrEqual(decimal.Zero) || rule.Percent.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("promo %s percent %s must be within (0, 1]", code, rule.Percent)
		}
		if _, dup := indexed[code]; dup {
			return nil, fmt.Errorf("duplicate promo code %s", code)
		}
		rule.Code = code
		indexed[code] = rule
	}
	return &Table{rules: indexed}, nil
}

// DefaultTable returns the built-in allow-list.
func DefaultTable() *Table {
	table, err := NewTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return table
}

// LoadTable reads a JSON array of rules from path, or returns the default table when path is empty.
func LoadTable(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read promo table %q: %w", path, err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decode promo table %q: %w", path, err)
	}
	return NewTable(rules)
}

// Resolve matches input against the allow-list, ignoring case and surrounding whitespace.
func (t *Table) Resolve(input string) (Promo, error) {
	code := canonical(input)
	if code == "" {
		return Promo{}, ErrNoCode
	}
	rule, ok := t.rules[code]
	if !ok {
		return Promo{}, ErrUnknownCode
	}
	return Promo{Code: rule.Code, Percent: rule.Percent, Description: rule.Description}, nil
}

func canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
