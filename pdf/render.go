package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/invoicestream/invoicing_backend/models"
	"github.com/invoicestream/invoicing_backend/utils"
)

// Rendering is deterministic: the same document and style produce the same
// bytes. gofpdf stamps a creation date into the file, so we pin it.
var pinnedCreationDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	pageWidth  = 210.0
	marginLeft = 10.0
	bodyWidth  = pageWidth - 2*marginLeft
)

// Render draws the document in the requested style and returns the PDF bytes.
// Both styles draw the same fields; they differ only in geometry and ordering.
func Render(doc *InvoiceDocument, style Style) ([]byte, error) {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetCreationDate(pinnedCreationDate)
	// gofpdf emits resource catalogs in map order unless told to sort them,
	// which would make repeated renders differ byte-for-byte.
	p.SetCatalogSort(true)
	p.SetTitle(doc.Title(), false)
	p.AddPage()

	// The core fonts are cp1252; text must be translated or separators like
	// the middle dot come out as mojibake.
	tr := p.UnicodeTranslatorFromDescriptor("")

	switch style {
	case StyleBusiness:
		renderBusiness(p, tr, doc)
	default:
		renderMinimal(p, tr, doc)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderMinimal is a spare single-column layout: every block the business
// template shows, stacked without borders, rules or letterhead styling.
func renderMinimal(p *gofpdf.Fpdf, tr func(string) string, doc *InvoiceDocument) {
	p.SetFont("Helvetica", "B", 18)
	p.Cell(120, 10, doc.Title())
	r, g, b := statusColor(doc.Status)
	p.SetTextColor(r, g, b)
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(70, 10, string(doc.Status), "", 1, "R", false, 0, "")
	p.SetTextColor(0, 0, 0)
	p.Ln(2)

	p.SetFont("Helvetica", "", 9)
	p.Cell(bodyWidth, 4.5, tr(doc.BusinessName))
	p.Ln(4.5)
	if doc.BusinessLegalName != "" {
		p.Cell(bodyWidth, 4.5, tr(doc.BusinessLegalName))
		p.Ln(4.5)
	}
	for _, line := range doc.BusinessAddress {
		p.Cell(bodyWidth, 4.5, tr(line))
		p.Ln(4.5)
	}
	if contact := businessContactLine(doc); contact != "" {
		p.Cell(bodyWidth, 4.5, tr(contact))
		p.Ln(4.5)
	}
	if doc.BusinessTaxNumber != "" {
		p.Cell(bodyWidth, 4.5, tr("Tax #: "+doc.BusinessTaxNumber))
		p.Ln(4.5)
	}
	p.Ln(3)

	p.Cell(bodyWidth, 4.5, "Issued: "+doc.IssueDate.Format("2006-01-02"))
	p.Ln(4.5)
	p.Cell(bodyWidth, 4.5, "Due: "+doc.DueDate.Format("2006-01-02"))
	p.Ln(4.5)
	p.Cell(bodyWidth, 4.5, tr("Currency: "+doc.Currency))
	p.Ln(7)

	p.SetFont("Helvetica", "B", 9)
	p.Cell(bodyWidth, 4.5, "Bill to:")
	p.Ln(4.5)
	p.SetFont("Helvetica", "", 9)
	p.Cell(bodyWidth, 4.5, tr(doc.ClientName))
	p.Ln(4.5)
	for _, line := range doc.ClientAddress {
		p.Cell(bodyWidth, 4.5, tr(line))
		p.Ln(4.5)
	}
	if doc.ClientContact != "" {
		p.Cell(bodyWidth, 4.5, tr(doc.ClientContact))
		p.Ln(4.5)
	}
	p.Ln(6)

	renderItemTable(p, tr, doc, false)
	renderTotals(p, doc)

	if doc.Notes != "" {
		p.Ln(6)
		p.SetFont("Helvetica", "I", 9)
		p.MultiCell(bodyWidth, 5, tr(doc.Notes), "", "L", false)
	}

	if doc.PaymentInstructions != "" {
		p.Ln(4)
		p.SetFont("Helvetica", "", 9)
		p.MultiCell(bodyWidth, 5, tr("Payment: "+doc.PaymentInstructions), "", "L", false)
	}

	p.Ln(8)
	p.SetFont("Helvetica", "", 8)
	p.Cell(bodyWidth, 5, "Thank you for your business.")
}

// renderBusiness is the letterhead layout: issuer block up top, two-column
// bill-to and dates, bordered item table.
func renderBusiness(p *gofpdf.Fpdf, tr func(string) string, doc *InvoiceDocument) {
	p.SetFont("Helvetica", "B", 14)
	p.Cell(120, 8, tr(doc.BusinessName))

	r, g, b := statusColor(doc.Status)
	p.SetTextColor(r, g, b)
	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(70, 8, string(doc.Status), "", 1, "R", false, 0, "")
	p.SetTextColor(0, 0, 0)

	p.SetFont("Helvetica", "", 9)
	if doc.BusinessLegalName != "" {
		p.Cell(bodyWidth, 4.5, tr(doc.BusinessLegalName))
		p.Ln(4.5)
	}
	for _, line := range doc.BusinessAddress {
		p.Cell(bodyWidth, 4.5, tr(line))
		p.Ln(4.5)
	}
	if contact := businessContactLine(doc); contact != "" {
		p.Cell(bodyWidth, 4.5, tr(contact))
		p.Ln(4.5)
	}
	if doc.BusinessTaxNumber != "" {
		p.Cell(bodyWidth, 4.5, tr("Tax #: "+doc.BusinessTaxNumber))
		p.Ln(4.5)
	}
	p.Ln(6)

	p.SetFont("Helvetica", "B", 16)
	p.Cell(bodyWidth, 9, doc.Title())
	p.Ln(11)

	// Two columns: bill-to on the left, dates on the right.
	topY := p.GetY()
	p.SetFont("Helvetica", "B", 10)
	p.Cell(95, 5, "Bill To:")
	p.Ln(5)
	p.SetFont("Helvetica", "", 10)
	p.Cell(95, 5, tr(doc.ClientName))
	p.Ln(5)
	for _, line := range doc.ClientAddress {
		p.Cell(95, 5, tr(line))
		p.Ln(5)
	}
	if doc.ClientContact != "" {
		p.SetFont("Helvetica", "", 9)
		p.Cell(95, 5, tr(doc.ClientContact))
		p.Ln(5)
	}
	leftEndY := p.GetY()

	p.SetXY(marginLeft+105, topY)
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(85, 5, "Issue Date: "+doc.IssueDate.Format("2006-01-02"), "", 0, "R", false, 0, "")
	p.SetXY(marginLeft+105, topY+5)
	p.CellFormat(85, 5, "Due Date: "+doc.DueDate.Format("2006-01-02"), "", 0, "R", false, 0, "")
	p.SetXY(marginLeft+105, topY+10)
	p.CellFormat(85, 5, tr("Currency: "+doc.Currency), "", 0, "R", false, 0, "")
	rightEndY := topY + 15

	maxY := leftEndY
	if rightEndY > maxY {
		maxY = rightEndY
	}
	p.SetXY(marginLeft, maxY)
	p.Ln(6)

	renderItemTable(p, tr, doc, true)
	renderTotals(p, doc)

	if doc.Notes != "" {
		p.Ln(6)
		p.SetFont("Helvetica", "B", 10)
		p.Cell(bodyWidth, 5, "Notes")
		p.Ln(5)
		p.SetFont("Helvetica", "", 9)
		p.MultiCell(bodyWidth, 5, tr(doc.Notes), "", "L", false)
	}

	if doc.PaymentInstructions != "" {
		p.Ln(4)
		p.SetFont("Helvetica", "B", 10)
		p.Cell(bodyWidth, 5, "Payment Instructions")
		p.Ln(5)
		p.SetFont("Helvetica", "", 9)
		p.MultiCell(bodyWidth, 5, tr(doc.PaymentInstructions), "", "L", false)
	}

	p.Ln(8)
	p.SetFont("Helvetica", "", 8)
	p.Cell(bodyWidth, 5, "If you have any questions about this invoice, please contact us.")
}

func businessContactLine(doc *InvoiceDocument) string {
	return utils.JoinNonEmpty(" · ", doc.BusinessEmail, doc.BusinessPhone, doc.BusinessWebsite)
}

func renderItemTable(p *gofpdf.Fpdf, tr func(string) string, doc *InvoiceDocument, bordered bool) {
	border := ""
	if bordered {
		border = "1"
	}

	p.SetFont("Helvetica", "B", 9)
	if bordered {
		p.SetFillColor(235, 235, 235)
	}
	p.CellFormat(90, 7, "Description", border, 0, "L", bordered, 0, "")
	p.CellFormat(22, 7, "Qty", border, 0, "R", bordered, 0, "")
	p.CellFormat(30, 7, "Unit Price", border, 0, "R", bordered, 0, "")
	p.CellFormat(18, 7, "Tax", border, 0, "R", bordered, 0, "")
	p.CellFormat(30, 7, "Amount", border, 1, "R", bordered, 0, "")

	p.SetFont("Helvetica", "", 9)
	for _, item := range doc.LineItems {
		p.CellFormat(90, 6, tr(item.Description), border, 0, "L", false, 0, "")
		p.CellFormat(22, 6, item.Quantity.String(), border, 0, "R", false, 0, "")
		p.CellFormat(30, 6, item.UnitPrice.StringFixed(2), border, 0, "R", false, 0, "")
		p.CellFormat(18, 6, formatTaxRate(item.TaxRate), border, 0, "R", false, 0, "")
		p.CellFormat(30, 6, item.LineTotal.StringFixed(2), border, 1, "R", false, 0, "")
	}
	p.Ln(4)
}

func renderTotals(p *gofpdf.Fpdf, doc *InvoiceDocument) {
	p.SetFont("Helvetica", "", 10)
	p.Cell(160, 6, "Subtotal:")
	p.CellFormat(30, 6, doc.FormatMoney(doc.SubTotal), "", 1, "R", false, 0, "")
	p.Cell(160, 6, "Tax:")
	p.CellFormat(30, 6, doc.FormatMoney(doc.Tax), "", 1, "R", false, 0, "")
	p.SetFont("Helvetica", "B", 11)
	p.Cell(160, 8, "Total:")
	p.CellFormat(30, 8, doc.FormatMoney(doc.GrandTotal), "", 1, "R", false, 0, "")
}

func formatTaxRate(rate decimal.Decimal) string {
	return fmt.Sprintf("%.1f%%", rate.InexactFloat64()*100)
}

func statusColor(status models.InvoiceStatus) (int, int, int) {
	switch status {
	case models.InvoiceStatusPaid:
		return 0, 128, 0
	case models.InvoiceStatusSent:
		return 0, 90, 180
	case models.InvoiceStatusOverdue:
		return 200, 0, 0
	case models.InvoiceStatusVoid:
		return 90, 90, 90
	default:
		return 120, 120, 120
	}
}
