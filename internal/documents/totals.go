package documents

import (
	"fmt"
	"strings"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultVATRate is the Algerian standard TVA rate
var DefaultVATRate = decimal.RequireFromString("0.19")

// LineItem is one row of the document table
type LineItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Amount returns quantity × unit price
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals are the amounts printed at the bottom of a document
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals returns subtotal, tax and total. Tax is the subtotal times the
// VAT rate rounded to the dinar (half away from zero), or zero when exempt.
// Shipping is not taxed.
func ComputeTotals(items []LineItem, shipping, vatRate decimal.Decimal, taxExempt bool) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, fmt.Errorf("%w: a document needs at least one line", domain.ErrValidation)
	}
	if shipping.IsNegative() {
		return Totals{}, fmt.Errorf("%w: shipping cannot be negative", domain.ErrValidation)
	}
	if vatRate.IsNegative() || vatRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Totals{}, fmt.Errorf("%w: VAT rate must be in [0, 1)", domain.ErrValidation)
	}

	subtotal := decimal.Zero
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return Totals{}, fmt.Errorf("%w: line %d has no description", domain.ErrValidation, i+1)
		}
		if item.Quantity < 1 {
			return Totals{}, fmt.Errorf("%w: line %d quantity must be at least 1", domain.ErrValidation, i+1)
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, fmt.Errorf("%w: line %d has a negative price", domain.ErrValidation, i+1)
		}
		subtotal = subtotal.Add(item.Amount())
	}

	tax := decimal.Zero
	if !taxExempt {
		tax = subtotal.Mul(vatRate).Round(0)
	}

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}, nil
}

// FormatAmount prints an amount the French way: "45 000,00"
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	out := b.String() + "," + frac
	if negative {
		out = "-" + out
	}
	return out
}
