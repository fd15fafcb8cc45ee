package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/utils"
)

type InvoiceLineItem struct {
	ID          string          `gorm:"primary_key;size:32" json:"id"`
	InvoiceId   string          `gorm:"index;size:32;not null" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"size:512;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"tax_rate"`
}

type Invoice struct {
	ID               string            `gorm:"primary_key;size:32" json:"id"`
	UserId           string            `gorm:"size:64;not null;uniqueIndex:idx_invoice_user_number,priority:1" json:"user_id"`
	InvoiceNumber    int64             `gorm:"not null;uniqueIndex:idx_invoice_user_number,priority:2" json:"invoice_number"`
	ClientId         string            `gorm:"index;size:32;not null" json:"client_id"`
	Type             InvoiceType       `gorm:"size:20;not null" json:"type"`
	Status           InvoiceStatus     `gorm:"size:20;not null" json:"status"`
	Currency         string            `gorm:"size:10;not null" json:"currency"`
	IssueDate        time.Time         `gorm:"not null" json:"issue_date"`
	DueDate          time.Time         `gorm:"not null" json:"due_date"`
	LineItems        []InvoiceLineItem `gorm:"foreignKey:InvoiceId;references:ID" json:"line_items"`
	SubTotal         decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"sub_total"`
	Tax              decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"tax"`
	GrandTotal       decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"grand_total"`
	Notes            string            `gorm:"type:text" json:"notes"`
	Tags             []string          `gorm:"serializer:json" json:"tags"`
	PaymentMethod    PaymentMethod     `gorm:"size:20" json:"payment_method"`
	PaymentReference string            `gorm:"size:255" json:"payment_reference"`
	SentAt           *time.Time        `json:"sent_at"`
	PaidAt           *time.Time        `json:"paid_at"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoiceLineItem struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

type NewInvoice struct {
	ClientId  string               `json:"client_id" binding:"required"`
	Type      InvoiceType          `json:"type"`
	Status    InvoiceStatus        `json:"status"`
	Currency  string               `json:"currency"`
	IssueDate *time.Time           `json:"issue_date"`
	DueDate   *time.Time           `json:"due_date"`
	LineItems []NewInvoiceLineItem `json:"line_items" binding:"required"`
	Notes     string               `json:"notes"`
	Tags      []string             `json:"tags"`
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func (input *NewInvoice) validate() error {
	if strings.TrimSpace(input.ClientId) == "" {
		return utils.NewValidationError("client id is required")
	}
	if len(input.LineItems) == 0 {
		return utils.NewValidationError("an invoice needs at least one line item")
	}
	for i, item := range input.LineItems {
		if strings.TrimSpace(item.Description) == "" {
			return utils.NewValidationError("line item %d has an empty description", i+1)
		}
	}
	return nil
}

// buildLineItems materializes input rows, inheriting the profile tax rate
// where a row does not carry a positive rate of its own.
func buildLineItems(invoiceId string, inputs []NewInvoiceLineItem, defaultTaxRate decimal.Decimal) []InvoiceLineItem {
	items := make([]InvoiceLineItem, 0, len(inputs))
	for i, input := range inputs {
		taxRate := input.TaxRate
		if taxRate.Sign() <= 0 {
			taxRate = defaultTaxRate
		}
		items = append(items, InvoiceLineItem{
			ID:          newRecordId(),
			InvoiceId:   invoiceId,
			Position:    i + 1,
			Description: strings.TrimSpace(input.Description),
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			TaxRate:     taxRate,
		})
	}
	return items
}

func lineAmounts(items []InvoiceLineItem) []utils.LineAmount {
	amounts := make([]utils.LineAmount, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, utils.LineAmount{
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			TaxRate:   item.TaxRate,
		})
	}
	return amounts
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	profile, err := GetOrCreateBusinessProfile(ctx)
	if err != nil {
		return nil, err
	}

	invoiceType := input.Type
	if invoiceType == "" {
		invoiceType = InvoiceTypeInvoice
	}
	status := input.Status
	if status == "" {
		status = InvoiceStatusDraft
	}
	currency := input.Currency
	if currency == "" {
		currency = profile.DefaultCurrency
	}
	issueDate := time.Now().UTC().Truncate(24 * time.Hour)
	if input.IssueDate != nil {
		issueDate = input.IssueDate.UTC()
	}
	dueDate := issueDate.AddDate(0, 0, profile.DefaultPaymentTermsDays)
	if input.DueDate != nil {
		dueDate = input.DueDate.UTC()
	}

	invoiceNumber, err := NextInvoiceNumber(ctx, userId)
	if err != nil {
		return nil, err
	}

	invoice := Invoice{
		ID:        newRecordId(),
		UserId:    userId,
		ClientId:  strings.TrimSpace(input.ClientId),
		Type:      invoiceType,
		Status:    status,
		Currency:  currency,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Notes:     input.Notes,
		Tags:      normalizeTags(input.Tags),
	}
	invoice.InvoiceNumber = invoiceNumber
	invoice.LineItems = buildLineItems(invoice.ID, input.LineItems, profile.DefaultTaxRate)

	totals := utils.CalculateInvoiceTotals(lineAmounts(invoice.LineItems))
	invoice.SubTotal = totals.SubTotal
	invoice.Tax = totals.Tax
	invoice.GrandTotal = totals.GrandTotal

	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Create(&invoice).Error; err != nil {
		config.LogError(logger, "invoice", "CreateInvoice", "create", invoice, err)
		return nil, err
	}

	if err := PublishInvoiceEvent(ctx, tx, userId, invoice.ID, EventActionCreate, &invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &invoice, nil
}

// UpdateInvoice replaces everything except the identity fields: id, owner,
// invoice number and creation timestamp survive, the rest (line items
// included) is rebuilt from the payload. Last write wins.
func UpdateInvoice(ctx context.Context, id string, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	existing, err := utils.FetchModel[Invoice](ctx, userId, id, "LineItems")
	if err != nil {
		return nil, err
	}

	profile, err := GetOrCreateBusinessProfile(ctx)
	if err != nil {
		return nil, err
	}

	invoiceType := input.Type
	if invoiceType == "" {
		invoiceType = InvoiceTypeInvoice
	}
	status := input.Status
	if status == "" {
		status = InvoiceStatusDraft
	}
	currency := input.Currency
	if currency == "" {
		currency = profile.DefaultCurrency
	}
	issueDate := existing.IssueDate
	if input.IssueDate != nil {
		issueDate = input.IssueDate.UTC()
	}
	dueDate := existing.DueDate
	if input.DueDate != nil {
		dueDate = input.DueDate.UTC()
	}

	invoice := Invoice{
		ID:               existing.ID,
		UserId:           existing.UserId,
		InvoiceNumber:    existing.InvoiceNumber,
		ClientId:         strings.TrimSpace(input.ClientId),
		Type:             invoiceType,
		Status:           status,
		Currency:         currency,
		IssueDate:        issueDate,
		DueDate:          dueDate,
		Notes:            input.Notes,
		Tags:             normalizeTags(input.Tags),
		PaymentMethod:    existing.PaymentMethod,
		PaymentReference: existing.PaymentReference,
		SentAt:           existing.SentAt,
		PaidAt:           existing.PaidAt,
		CreatedAt:        existing.CreatedAt,
		UpdatedAt:        time.Now().UTC(),
	}
	invoice.LineItems = buildLineItems(invoice.ID, input.LineItems, profile.DefaultTaxRate)

	totals := utils.CalculateInvoiceTotals(lineAmounts(invoice.LineItems))
	invoice.SubTotal = totals.SubTotal
	invoice.Tax = totals.Tax
	invoice.GrandTotal = totals.GrandTotal

	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	err = tx.Where("invoice_id = ?", invoice.ID).Delete(&InvoiceLineItem{}).Error
	if err != nil {
		config.LogError(logger, "invoice", "UpdateInvoice", "delete line items", invoice, err)
		return nil, err
	}

	err = tx.Session(&gorm.Session{FullSaveAssociations: true}).
		Where("user_id = ? AND id = ?", userId, id).
		Save(&invoice).Error
	if err != nil {
		config.LogError(logger, "invoice", "UpdateInvoice", "save", invoice, err)
		return nil, err
	}

	if err := PublishInvoiceEvent(ctx, tx, userId, invoice.ID, EventActionUpdate, &invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &invoice, nil
}

func GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return utils.FetchModel[Invoice](ctx, userId, id, "LineItems")
}

// GetInvoices lists the user's invoices, newest issue date first.
func GetInvoices(ctx context.Context) ([]*Invoice, error) {
	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return utils.FetchAllModels[Invoice](ctx, userId, "issue_date DESC, invoice_number DESC", "LineItems")
}

// DeleteInvoice removes the invoice and its line items. Returns false when
// nothing matched for this user.
func DeleteInvoice(ctx context.Context, id string) (bool, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return false, err
	}

	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	result := tx.Where("user_id = ? AND id = ?", userId, id).Delete(&Invoice{})
	if result.Error != nil {
		config.LogError(logger, "invoice", "DeleteInvoice", "delete", id, result.Error)
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	err = tx.Where("invoice_id = ?", id).Delete(&InvoiceLineItem{}).Error
	if err != nil {
		config.LogError(logger, "invoice", "DeleteInvoice", "delete line items", id, err)
		return false, err
	}

	if err := PublishInvoiceEvent(ctx, tx, userId, id, EventActionDelete, nil); err != nil {
		return false, err
	}

	if err := tx.Commit().Error; err != nil {
		return false, err
	}

	return true, nil
}

// MarkInvoiceSent stamps the invoice Sent at the current time. Re-sending an
// already sent (or paid) invoice is allowed and refreshes the timestamp.
func MarkInvoiceSent(ctx context.Context, id string) (*Invoice, error) {
	return markInvoice(ctx, id, func(invoice *Invoice, now time.Time) {
		invoice.Status = InvoiceStatusSent
		invoice.SentAt = &now
	}, EventActionSend)
}

type PayInvoiceInput struct {
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentReference string        `json:"payment_reference"`
}

// MarkInvoicePaid stamps the invoice Paid and records how the money arrived.
func MarkInvoicePaid(ctx context.Context, id string, input *PayInvoiceInput) (*Invoice, error) {
	return markInvoice(ctx, id, func(invoice *Invoice, now time.Time) {
		invoice.Status = InvoiceStatusPaid
		invoice.PaidAt = &now
		if input != nil {
			invoice.PaymentMethod = input.PaymentMethod
			invoice.PaymentReference = input.PaymentReference
		}
	}, EventActionPay)
}

func markInvoice(ctx context.Context, id string, mutate func(*Invoice, time.Time), action EventAction) (*Invoice, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[Invoice](ctx, userId, id, "LineItems")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	mutate(invoice, now)
	invoice.UpdatedAt = now

	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	err = tx.Omit("LineItems").
		Where("user_id = ? AND id = ?", userId, id).
		Save(invoice).Error
	if err != nil {
		config.LogError(logger, "invoice", "markInvoice", string(action), invoice, err)
		return nil, err
	}

	if err := PublishInvoiceEvent(ctx, tx, userId, invoice.ID, action, invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return invoice, nil
}
