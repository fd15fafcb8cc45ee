package pdf_test

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicestream/invoicing_backend/models"
	"github.com/invoicestream/invoicing_backend/pdf"
)

func sampleInvoice() *models.Invoice {
	issue := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &models.Invoice{
		ID:            "a0b1c2d3e4f50617a0b1c2d3e4f50617",
		UserId:        "user-1",
		InvoiceNumber: 42,
		ClientId:      "client-1",
		Type:          models.InvoiceTypeInvoice,
		Status:        models.InvoiceStatusSent,
		Currency:      "CAD",
		IssueDate:     issue,
		DueDate:       issue.AddDate(0, 0, 14),
		LineItems: []models.InvoiceLineItem{
			{Description: "Design work", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(95), TaxRate: decimal.NewFromFloat(0.13)},
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25), TaxRate: decimal.NewFromFloat(0.13)},
		},
		SubTotal:   decimal.NewFromInt(975),
		Tax:        decimal.RequireFromString("126.75"),
		GrandTotal: decimal.RequireFromString("1101.75"),
		Notes:      "Net 14. Thanks!",
	}
}

func sampleClient() *models.Client {
	return &models.Client{
		ID:          "client-1",
		Name:        "Acme Corp",
		ContactName: "Jo Smith",
		Email:       "jo@acme.test",
		Phone:       "555-0100",
		Address: models.Address{
			Line1:      "1 Main St",
			City:       "Toronto",
			Province:   "ON",
			PostalCode: "M5V 1A1",
			Country:    "Canada",
		},
	}
}

func sampleProfile() *models.BusinessProfile {
	return &models.BusinessProfile{
		UserId:          "user-1",
		BusinessName:    "North Studio",
		LegalName:       "North Studio Design Inc.",
		TaxNumber:       "HST-123456",
		DefaultCurrency: "CAD",
		Email:           "billing@north.test",
		Phone:           "555-0199",
		Website:         "north.test",
		Address: models.Address{
			Line1:      "9 King St",
			City:       "Toronto",
			Province:   "ON",
			PostalCode: "M5H 1A1",
			Country:    "Canada",
		},
		PaymentInstructions: "e-Transfer to billing@north.test",
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())

	for _, style := range []pdf.Style{pdf.StyleMinimal, pdf.StyleBusiness} {
		first, err := pdf.Render(doc, style)
		if err != nil {
			t.Fatalf("render %s: %v", style, err)
		}
		second, err := pdf.Render(doc, style)
		if err != nil {
			t.Fatalf("render %s again: %v", style, err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("style %s: repeated renders differ", style)
		}
		if len(first) == 0 {
			t.Fatalf("style %s: empty output", style)
		}
	}
}

func TestRenderStylesDiffer(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())

	minimal, err := pdf.Render(doc, pdf.StyleMinimal)
	if err != nil {
		t.Fatalf("render minimal: %v", err)
	}
	business, err := pdf.Render(doc, pdf.StyleBusiness)
	if err != nil {
		t.Fatalf("render business: %v", err)
	}
	if bytes.Equal(minimal, business) {
		t.Fatal("minimal and business layouts produced identical bytes")
	}
}

func TestBuildInvoiceDocumentMissingClient(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), nil, sampleProfile())

	if doc.ClientName != "(Unknown client)" {
		t.Fatalf("client name = %q, want placeholder", doc.ClientName)
	}
	if _, err := pdf.Render(doc, pdf.StyleBusiness); err != nil {
		t.Fatalf("render with missing client: %v", err)
	}
}

func TestBuildInvoiceDocumentContactLine(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())

	want := "Jo Smith · jo@acme.test · 555-0100"
	if doc.ClientContact != want {
		t.Fatalf("contact line = %q, want %q", doc.ClientContact, want)
	}
}

// contentText inflates the PDF's compressed stream objects and returns the
// concatenated page content, so tests can assert on the drawn text.
func contentText(t *testing.T, raw []byte) []byte {
	t.Helper()

	var out bytes.Buffer
	rest := raw
	for {
		i := bytes.Index(rest, []byte("stream"))
		if i < 0 {
			break
		}
		rest = rest[i+len("stream"):]
		rest = bytes.TrimPrefix(rest, []byte("\r\n"))
		rest = bytes.TrimPrefix(rest, []byte("\n"))

		end := bytes.Index(rest, []byte("endstream"))
		if end < 0 {
			break
		}
		segment := rest[:end]
		rest = rest[end+len("endstream"):]

		zr, err := zlib.NewReader(bytes.NewReader(segment))
		if err != nil {
			continue
		}
		io.Copy(&out, zr) //nolint:errcheck
		zr.Close()
	}
	return out.Bytes()
}

// The minimal layout must draw the same block set as the business layout:
// issuer identity with tax number and address, contact lines, currency,
// client address and payment instructions.
func TestMinimalLayoutShowsAllBlocks(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())

	out, err := pdf.Render(doc, pdf.StyleMinimal)
	if err != nil {
		t.Fatalf("render minimal: %v", err)
	}
	text := contentText(t, out)
	if len(text) == 0 {
		t.Fatal("no content streams decoded")
	}

	for _, want := range []string{
		"North Studio Design Inc.",
		"HST-123456",
		"9 King St",
		"billing@north.test",
		"Currency: CAD",
		"Acme Corp",
		"1 Main St",
		"Jo Smith",
		"e-Transfer to billing@north.test",
	} {
		if !bytes.Contains(text, []byte(want)) {
			t.Errorf("minimal layout missing %q", want)
		}
	}
}

// The middle-dot separator must go through the cp1252 translator; raw UTF-8
// shows up as mojibake in the rendered page.
func TestRenderEncodesContactSeparator(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())

	for _, style := range []pdf.Style{pdf.StyleMinimal, pdf.StyleBusiness} {
		out, err := pdf.Render(doc, style)
		if err != nil {
			t.Fatalf("render %s: %v", style, err)
		}
		text := contentText(t, out)
		if len(text) == 0 {
			t.Fatalf("style %s: no content streams decoded", style)
		}
		if bytes.Contains(text, []byte{0xC2, 0xB7}) {
			t.Fatalf("style %s: separator written as raw UTF-8", style)
		}
		if !bytes.Contains(text, []byte{0xB7}) {
			t.Fatalf("style %s: separator missing from contact lines", style)
		}
	}
}

// Both layouts must draw every snapshot field: editing any field has to
// change the output of both styles, not just one.
func TestStylesConsumeSameFields(t *testing.T) {
	render := func(t *testing.T, doc *pdf.InvoiceDocument) ([]byte, []byte) {
		t.Helper()
		minimal, err := pdf.Render(doc, pdf.StyleMinimal)
		if err != nil {
			t.Fatalf("render minimal: %v", err)
		}
		business, err := pdf.Render(doc, pdf.StyleBusiness)
		if err != nil {
			t.Fatalf("render business: %v", err)
		}
		return minimal, business
	}

	baseMinimal, baseBusiness := render(t, pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile()))

	mutations := []struct {
		name   string
		mutate func(*pdf.InvoiceDocument)
	}{
		{"business name", func(d *pdf.InvoiceDocument) { d.BusinessName = "Other Studio" }},
		{"legal name", func(d *pdf.InvoiceDocument) { d.BusinessLegalName = "Other Inc." }},
		{"tax number", func(d *pdf.InvoiceDocument) { d.BusinessTaxNumber = "GST-999999" }},
		{"business address", func(d *pdf.InvoiceDocument) { d.BusinessAddress = []string{"1 Elsewhere Rd"} }},
		{"business email", func(d *pdf.InvoiceDocument) { d.BusinessEmail = "other@north.test" }},
		{"business phone", func(d *pdf.InvoiceDocument) { d.BusinessPhone = "555-0000" }},
		{"business website", func(d *pdf.InvoiceDocument) { d.BusinessWebsite = "other.test" }},
		{"payment instructions", func(d *pdf.InvoiceDocument) { d.PaymentInstructions = "Cheque only" }},
		{"client name", func(d *pdf.InvoiceDocument) { d.ClientName = "Globex" }},
		{"client address", func(d *pdf.InvoiceDocument) { d.ClientAddress = []string{"2 Side St"} }},
		{"client contact", func(d *pdf.InvoiceDocument) { d.ClientContact = "Pat Lee" }},
		{"currency", func(d *pdf.InvoiceDocument) { d.Currency = "USD" }},
		{"status", func(d *pdf.InvoiceDocument) { d.Status = models.InvoiceStatusOverdue }},
		{"issue date", func(d *pdf.InvoiceDocument) { d.IssueDate = d.IssueDate.AddDate(0, 1, 0) }},
		{"due date", func(d *pdf.InvoiceDocument) { d.DueDate = d.DueDate.AddDate(0, 1, 0) }},
		{"notes", func(d *pdf.InvoiceDocument) { d.Notes = "Different terms" }},
		{"line description", func(d *pdf.InvoiceDocument) { d.LineItems[0].Description = "Other work" }},
		{"grand total", func(d *pdf.InvoiceDocument) { d.GrandTotal = decimal.NewFromInt(9999) }},
	}

	for _, m := range mutations {
		doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())
		m.mutate(doc)
		minimal, business := render(t, doc)
		if bytes.Equal(minimal, baseMinimal) {
			t.Errorf("%s: minimal layout does not reflect the field", m.name)
		}
		if bytes.Equal(business, baseBusiness) {
			t.Errorf("%s: business layout does not reflect the field", m.name)
		}
	}
}

func TestBuildInvoiceDocumentLineTotals(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())

	// 10 x 95.00 at 13% tax.
	if !doc.LineItems[0].LineTotal.Equal(decimal.RequireFromString("1073.5")) {
		t.Fatalf("line total = %s, want 1073.5", doc.LineItems[0].LineTotal)
	}
}

func TestDocumentTitleAndMoney(t *testing.T) {
	doc := pdf.BuildInvoiceDocument(sampleInvoice(), sampleClient(), sampleProfile())
	if doc.Title() != "INVOICE #42" {
		t.Fatalf("title = %q", doc.Title())
	}
	if got := doc.FormatMoney(decimal.RequireFromString("1101.75")); got != "CAD 1101.75" {
		t.Fatalf("money = %q", got)
	}

	credit := sampleInvoice()
	credit.Type = models.InvoiceTypeCreditNote
	creditDoc := pdf.BuildInvoiceDocument(credit, nil, nil)
	if creditDoc.Title() != "CREDIT NOTE #42" {
		t.Fatalf("credit title = %q", creditDoc.Title())
	}
}

func TestParseStyle(t *testing.T) {
	if s, err := pdf.ParseStyle(""); err != nil || s != pdf.StyleMinimal {
		t.Fatalf("empty style: %v %v", s, err)
	}
	if s, err := pdf.ParseStyle("business"); err != nil || s != pdf.StyleBusiness {
		t.Fatalf("business style: %v %v", s, err)
	}
	if _, err := pdf.ParseStyle("fancy"); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestFileName(t *testing.T) {
	got := pdf.FileName("abc123", pdf.StyleBusiness)
	if got != "invoice-abc123-business.pdf" {
		t.Fatalf("file name = %q", got)
	}
}
