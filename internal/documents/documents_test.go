package documents

import (
	"bytes"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []LineItem
		shipping string
		exempt   bool
		subtotal string
		tax      string
		total    string
	}{
		{
			name:     "single line",
			items:    []LineItem{{Description: "Support aluminium", Quantity: 1, UnitPrice: d("45000")}},
			shipping: "500",
			subtotal: "45000", tax: "8550", total: "54050",
		},
		{
			name:     "tax rounds half away from zero",
			items:    []LineItem{{Description: "Axe", Quantity: 3, UnitPrice: d("50")}},
			shipping: "0",
			subtotal: "150", tax: "29", total: "179",
		},
		{
			name:     "tax rounds down below half",
			items:    []LineItem{{Description: "Entretoise", Quantity: 1, UnitPrice: d("101")}},
			shipping: "0",
			subtotal: "101", tax: "19", total: "120",
		},
		{
			name:     "exempt",
			items:    []LineItem{{Description: "Bride", Quantity: 2, UnitPrice: d("1250.50")}},
			shipping: "700",
			exempt:   true,
			subtotal: "2501", tax: "0", total: "3201",
		},
		{
			name: "several lines",
			items: []LineItem{
				{Description: "Usinage", Quantity: 10, UnitPrice: d("1200")},
				{Description: "Traitement de surface", Quantity: 10, UnitPrice: d("300")},
			},
			shipping: "1200",
			subtotal: "15000", tax: "2850", total: "19050",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := ComputeTotals(tt.items, d(tt.shipping), DefaultVATRate, tt.exempt)
			require.NoError(t, err)
			assert.True(t, d(tt.subtotal).Equal(totals.Subtotal), "subtotal %s", totals.Subtotal)
			assert.True(t, d(tt.tax).Equal(totals.Tax), "tax %s", totals.Tax)
			assert.True(t, d(tt.total).Equal(totals.Total), "total %s", totals.Total)
			assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Shipping).Add(totals.Tax)))
		})
	}
}

func TestComputeTotals_Validation(t *testing.T) {
	valid := []LineItem{{Description: "Pièce", Quantity: 1, UnitPrice: d("10")}}

	_, err := ComputeTotals(nil, decimal.Zero, DefaultVATRate, false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ComputeTotals(valid, d("-1"), DefaultVATRate, false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ComputeTotals(valid, decimal.Zero, d("1.5"), false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ComputeTotals([]LineItem{{Description: "Pièce", Quantity: 0, UnitPrice: d("10")}}, decimal.Zero, DefaultVATRate, false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ComputeTotals([]LineItem{{Description: " ", Quantity: 1, UnitPrice: d("10")}}, decimal.Zero, DefaultVATRate, false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ComputeTotals([]LineItem{{Description: "Pièce", Quantity: 1, UnitPrice: d("-10")}}, decimal.Zero, DefaultVATRate, false)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0,00", FormatAmount(decimal.Zero))
	assert.Equal(t, "950,50", FormatAmount(d("950.5")))
	assert.Equal(t, "45 000,00", FormatAmount(d("45000")))
	assert.Equal(t, "1 234 567,89", FormatAmount(d("1234567.89")))
	assert.Equal(t, "-1 000,00", FormatAmount(d("-1000")))
}

func sampleDocument(kind domain.DocumentKind) Document {
	return Document{
		Kind:      kind,
		Number:    "FAC-2026-000001",
		IssuedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Issuer:    Party{Name: "Usinage DZ SARL", Address: "Zone industrielle, Rouiba", NIF: "000016001234567"},
		Client:    Party{Name: "Société Béjaïa Méca", Wilaya: "Béjaïa", Email: "achats@bejaia-meca.dz"},
		Supplier:  Party{Name: "Atelier Sétif Précision", Wilaya: "Sétif"},
		Reference: "Support moteur - aluminium 6061",
		Items: []LineItem{
			{Description: "Support moteur - aluminium 6061", Quantity: 50, UnitPrice: d("900")},
		},
		Shipping:     d("700"),
		VATRate:      DefaultVATRate,
		DeliveryDays: 5,
	}
}

func TestRender(t *testing.T) {
	for _, kind := range []domain.DocumentKind{domain.DocumentKindQuote, domain.DocumentKindInvoice} {
		t.Run(string(kind), func(t *testing.T) {
			pdf, totals, err := Render(sampleDocument(kind))
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
			assert.True(t, d("45000").Equal(totals.Subtotal))
			assert.True(t, d("8550").Equal(totals.Tax))
			assert.True(t, d("54250").Equal(totals.Total))
		})
	}
}

func TestRender_Validation(t *testing.T) {
	doc := sampleDocument(domain.DocumentKindInvoice)
	doc.Number = ""
	_, _, err := Render(doc)
	assert.ErrorIs(t, err, domain.ErrValidation)

	doc = sampleDocument(domain.DocumentKind("receipt"))
	_, _, err = Render(doc)
	assert.ErrorIs(t, err, domain.ErrValidation)

	doc = sampleDocument(domain.DocumentKindInvoice)
	doc.Items = nil
	_, _, err = Render(doc)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
