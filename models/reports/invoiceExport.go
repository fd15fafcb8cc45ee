package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/utils"
)

type InvoiceExportRow struct {
	InvoiceNumber int64           `json:"InvoiceNumber"`
	ClientName    *string         `json:"ClientName,omitempty"`
	Type          string          `json:"Type"`
	Status        string          `json:"Status"`
	Currency      string          `json:"Currency"`
	IssueDate     time.Time       `json:"IssueDate"`
	DueDate       time.Time       `json:"DueDate"`
	SubTotal      decimal.Decimal `json:"SubTotal"`
	Tax           decimal.Decimal `json:"Tax"`
	GrandTotal    decimal.Decimal `json:"GrandTotal"`
}

func GetInvoiceExportRows(ctx context.Context) ([]*InvoiceExportRow, error) {

	sql := `
SELECT
    invoices.invoice_number,
    invoices.type,
    invoices.status,
    invoices.currency,
    invoices.issue_date,
    invoices.due_date,
    invoices.sub_total,
    invoices.tax,
    invoices.grand_total,
    clients.name AS client_name
FROM
    invoices
        LEFT JOIN
    clients ON clients.id = invoices.client_id
WHERE
    invoices.user_id = @userId
ORDER BY invoices.issue_date DESC , invoices.invoice_number DESC;
`

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	var records []*InvoiceExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"userId": userId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// WriteInvoiceExportXlsx streams the user's invoice list as a spreadsheet.
func WriteInvoiceExportXlsx(w io.Writer, rows []*InvoiceExportRow) error {

	f := excelize.NewFile()
	sheetName := "Invoices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headings := []string{
		"Invoice #", "Client", "Type", "Status", "Currency",
		"Issue Date", "Due Date", "Subtotal", "Tax", "Total",
	}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	for i, r := range rows {
		rowNo := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+rowNo, r.InvoiceNumber)
		f.SetCellValue(sheetName, "B"+rowNo, utils.DereferencePtr(r.ClientName, "(Unknown client)"))
		f.SetCellValue(sheetName, "C"+rowNo, r.Type)
		f.SetCellValue(sheetName, "D"+rowNo, r.Status)
		f.SetCellValue(sheetName, "E"+rowNo, r.Currency)
		f.SetCellValue(sheetName, "F"+rowNo, r.IssueDate.Format("2006-01-02"))
		f.SetCellValue(sheetName, "G"+rowNo, r.DueDate.Format("2006-01-02"))
		f.SetCellValue(sheetName, "H"+rowNo, r.SubTotal.StringFixed(2))
		f.SetCellValue(sheetName, "I"+rowNo, r.Tax.StringFixed(2))
		f.SetCellValue(sheetName, "J"+rowNo, r.GrandTotal.StringFixed(2))
	}

	return f.Write(w)
}
