// Package documents renders the devis (quote) and facture (invoice) PDFs.
package documents

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Party is a named participant printed on a document
type Party struct {
	Name    string
	Address string
	Wilaya  string
	Email   string
	Phone   string
	NIF     string
	RC      string
}

// Document is everything needed to render one PDF
type Document struct {
	Kind         domain.DocumentKind
	Number       string
	IssuedAt     time.Time
	Issuer       Party
	Client       Party
	Supplier     Party
	Reference    string
	Items        []LineItem
	Shipping     decimal.Decimal
	VATRate      decimal.Decimal
	TaxExempt    bool
	Currency     string
	DeliveryDays int
	Notes        string
}

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

var tableColumns = []struct {
	title string
	width float64
	align string
}{
	{"Désignation", 95, "L"},
	{"Qté", 20, "C"},
	{"P.U. HT", 32.5, "R"},
	{"Montant HT", 32.5, "R"},
}

// Render validates the document, computes its totals and returns the PDF bytes
func Render(doc Document) ([]byte, Totals, error) {
	if strings.TrimSpace(doc.Number) == "" {
		return nil, Totals{}, fmt.Errorf("%w: document number is required", domain.ErrValidation)
	}
	if doc.Kind != domain.DocumentKindQuote && doc.Kind != domain.DocumentKindInvoice {
		return nil, Totals{}, fmt.Errorf("%w: unknown document kind %q", domain.ErrValidation, doc.Kind)
	}
	totals, err := ComputeTotals(doc.Items, doc.Shipping, doc.VATRate, doc.TaxExempt)
	if err != nil {
		return nil, Totals{}, err
	}
	if doc.Currency == "" {
		doc.Currency = "DZD"
	}
	if doc.IssuedAt.IsZero() {
		doc.IssuedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(fmt.Sprintf("%s %s", title(doc.Kind), doc.Number), true)
	pdf.SetAuthor(doc.Issuer.Name, true)
	pdf.SetCreator("cnc-marketplace-api", true)
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetModificationDate(doc.IssuedAt)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s - %s - page %d", doc.Issuer.Name, doc.Number, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// Issuer
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(doc.Issuer.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range partyLines(doc.Issuer) {
		pdf.CellFormat(0, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s N° %s", strings.ToUpper(title(doc.Kind)), doc.Number)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, lineHeight, tr("Date : "+doc.IssuedAt.Format("02/01/2006")), "", 1, "L", false, 0, "")
	if doc.Reference != "" {
		pdf.CellFormat(0, lineHeight, tr("Référence : "+doc.Reference), "", 1, "L", false, 0, "")
	}
	if doc.Kind == domain.DocumentKindQuote && doc.DeliveryDays > 0 {
		pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Délai de réalisation : %d jours", doc.DeliveryDays)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Parties side by side
	top := pdf.GetY()
	writePartyBox(pdf, tr, "Client", doc.Client, pageMargin, top)
	writePartyBox(pdf, tr, "Atelier", doc.Supplier, pageMargin+92.5, top)
	pdf.SetY(top + 36)

	// Line items
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 236, 245)
	for _, col := range tableColumns {
		pdf.CellFormat(col.width, 8, tr(col.title), "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range doc.Items {
		pdf.CellFormat(tableColumns[0].width, 7, tr(item.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(tableColumns[1].width, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(tableColumns[2].width, 7, FormatAmount(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(tableColumns[3].width, 7, FormatAmount(item.Amount()), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals
	taxLabel := "TVA " + doc.VATRate.Mul(decimal.NewFromInt(100)).String() + " %"
	if doc.TaxExempt {
		taxLabel = "TVA (exonéré)"
	}
	rows := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Sous-total HT", totals.Subtotal, false},
		{"Frais de livraison", totals.Shipping, false},
		{taxLabel, totals.Tax, false},
		{"Total TTC", totals.Total, true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(115, 7, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(32.5, 7, tr(row.label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(32.5, 7, FormatAmount(row.value)+" "+doc.Currency, "1", 1, "R", false, 0, "")
	}

	if doc.TaxExempt {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr("Exonération de TVA appliquée conformément à la législation en vigueur."), "", "L", false)
	}
	if doc.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(doc.Notes), "", "L", false)
	}
	if doc.Kind == domain.DocumentKindQuote {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr("Devis valable 30 jours à compter de sa date d'émission."), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Totals{}, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), totals, nil
}

func title(kind domain.DocumentKind) string {
	if kind == domain.DocumentKindInvoice {
		return "Facture"
	}
	return "Devis"
}

func partyLines(p Party) []string {
	var lines []string
	if p.Address != "" {
		lines = append(lines, p.Address)
	}
	if p.Wilaya != "" {
		lines = append(lines, p.Wilaya)
	}
	if p.Email != "" {
		lines = append(lines, p.Email)
	}
	if p.Phone != "" {
		lines = append(lines, "Tél. "+p.Phone)
	}
	if p.NIF != "" {
		lines = append(lines, "NIF : "+p.NIF)
	}
	if p.RC != "" {
		lines = append(lines, "RC : "+p.RC)
	}
	return lines
}

func writePartyBox(pdf *fpdf.Fpdf, tr func(string) string, label string, p Party, x, y float64) {
	const width = 87.5
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(width, 6, tr(label), "LTR", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(width, 5, tr(p.Name), "LR", 2, "L", false, 0, "")
	lines := partyLines(p)
	for len(lines) < 4 {
		lines = append(lines, "")
	}
	for i, line := range lines[:4] {
		border := "LR"
		if i == 3 {
			border = "LRB"
		}
		pdf.CellFormat(width, 5, tr(line), border, 2, "L", false, 0, "")
	}
}
