package pdf

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicestream/invoicing_backend/models"
	"github.com/invoicestream/invoicing_backend/utils"
)

// Style selects which invoice layout to render.
type Style string

const (
	StyleMinimal  Style = "minimal"
	StyleBusiness Style = "business"
)

func ParseStyle(s string) (Style, error) {
	switch s {
	case "", string(StyleMinimal):
		return StyleMinimal, nil
	case string(StyleBusiness):
		return StyleBusiness, nil
	}
	return "", utils.NewValidationError("unknown pdf style %q", s)
}

// LineItem is one priced row of the rendered document.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	LineTotal   decimal.Decimal
}

// InvoiceDocument is the flattened snapshot a template renders from. It
// carries everything the page shows so rendering needs no database access.
type InvoiceDocument struct {
	InvoiceNumber int64
	Type          models.InvoiceType
	Status        models.InvoiceStatus
	Currency      string
	IssueDate     time.Time
	DueDate       time.Time

	BusinessName        string
	BusinessLegalName   string
	BusinessTaxNumber   string
	BusinessAddress     []string
	BusinessEmail       string
	BusinessPhone       string
	BusinessWebsite     string
	PaymentInstructions string

	ClientName    string
	ClientAddress []string
	ClientContact string

	LineItems  []LineItem
	SubTotal   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
	Notes      string
}

// BuildInvoiceDocument flattens an invoice with its client and the issuer
// profile into a render-ready snapshot. The client may be nil when it was
// deleted after the invoice was issued.
func BuildInvoiceDocument(invoice *models.Invoice, client *models.Client, profile *models.BusinessProfile) *InvoiceDocument {
	doc := InvoiceDocument{
		InvoiceNumber: invoice.InvoiceNumber,
		Type:          invoice.Type,
		Status:        invoice.Status,
		Currency:      invoice.Currency,
		IssueDate:     invoice.IssueDate,
		DueDate:       invoice.DueDate,
		SubTotal:      invoice.SubTotal,
		Tax:           invoice.Tax,
		GrandTotal:    invoice.GrandTotal,
		Notes:         invoice.Notes,
	}

	if profile != nil {
		doc.BusinessName = profile.BusinessName
		doc.BusinessLegalName = profile.LegalName
		doc.BusinessTaxNumber = profile.TaxNumber
		doc.BusinessAddress = profile.Address.Lines()
		doc.BusinessEmail = profile.Email
		doc.BusinessPhone = profile.Phone
		doc.BusinessWebsite = profile.Website
		doc.PaymentInstructions = profile.PaymentInstructions
		if doc.Notes == "" {
			doc.Notes = profile.DefaultInvoiceNotes
		}
	}

	if client != nil {
		doc.ClientName = client.Name
		doc.ClientAddress = client.Address.Lines()
		doc.ClientContact = utils.JoinNonEmpty(" · ",
			client.ContactName, client.Email, client.Phone)
	} else {
		doc.ClientName = "(Unknown client)"
	}

	for _, item := range invoice.LineItems {
		base := item.Quantity.Mul(item.UnitPrice)
		doc.LineItems = append(doc.LineItems, LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			LineTotal:   base.Add(base.Mul(item.TaxRate)),
		})
	}

	return &doc
}

// Title is the document heading, e.g. "INVOICE #42" or "CREDIT NOTE #7".
func (d *InvoiceDocument) Title() string {
	kind := "INVOICE"
	if d.Type == models.InvoiceTypeCreditNote {
		kind = "CREDIT NOTE"
	}
	return fmt.Sprintf("%s #%d", kind, d.InvoiceNumber)
}

// FormatMoney renders an amount as "CAD 123.45".
func (d *InvoiceDocument) FormatMoney(amount decimal.Decimal) string {
	return fmt.Sprintf("%s %s", d.Currency, amount.StringFixed(2))
}

// FileName is the download name for the rendered document.
func FileName(invoiceId string, style Style) string {
	return fmt.Sprintf("invoice-%s-%s.pdf", invoiceId, style)
}
