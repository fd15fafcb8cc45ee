package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/utils"
)

type Client struct {
	ID                      string          `gorm:"primary_key;size:32" json:"id"`
	UserId                  string          `gorm:"index;size:64;not null" json:"user_id"`
	Name                    string          `gorm:"size:255;not null" json:"name" binding:"required"`
	LegalName               string          `gorm:"size:255" json:"legal_name"`
	TaxNumber               string          `gorm:"size:100" json:"tax_number"`
	Address                 Address         `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	ContactName             string          `gorm:"size:255" json:"contact_name"`
	ContactRole             string          `gorm:"size:100" json:"contact_role"`
	Email                   string          `gorm:"size:255" json:"email"`
	Phone                   string          `gorm:"size:50" json:"phone"`
	DefaultCurrency         string          `gorm:"size:10" json:"default_currency"`
	DefaultTaxRate          decimal.Decimal `gorm:"type:decimal(6,4);default:0" json:"default_tax_rate"`
	DefaultPaymentTermsDays int             `gorm:"default:0" json:"default_payment_terms_days"`
	Notes                   string          `gorm:"type:text" json:"notes"`
	CreatedAt               time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name                    string          `json:"name" binding:"required"`
	LegalName               string          `json:"legal_name"`
	TaxNumber               string          `json:"tax_number"`
	Address                 Address         `json:"address"`
	ContactName             string          `json:"contact_name"`
	ContactRole             string          `json:"contact_role"`
	Email                   string          `json:"email"`
	Phone                   string          `json:"phone"`
	DefaultCurrency         string          `json:"default_currency"`
	DefaultTaxRate          decimal.Decimal `json:"default_tax_rate"`
	DefaultPaymentTermsDays int             `json:"default_payment_terms_days"`
	Notes                   string          `json:"notes"`
}

func (input *NewClient) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewValidationError("client name is required")
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		if err := utils.ValidatePhoneNumber(phone, defaultPhoneRegion); err != nil {
			return utils.NewValidationError("client phone number is invalid")
		}
	}
	return nil
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {
	db := config.GetDB()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	client := Client{
		ID:                      newRecordId(),
		UserId:                  userId,
		Name:                    strings.TrimSpace(input.Name),
		LegalName:               input.LegalName,
		TaxNumber:               input.TaxNumber,
		Address:                 input.Address,
		ContactName:             input.ContactName,
		ContactRole:             input.ContactRole,
		Email:                   input.Email,
		Phone:                   input.Phone,
		DefaultCurrency:         input.DefaultCurrency,
		DefaultTaxRate:          input.DefaultTaxRate,
		DefaultPaymentTermsDays: input.DefaultPaymentTermsDays,
		Notes:                   input.Notes,
	}

	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}

	return &client, nil
}

func UpdateClient(ctx context.Context, id string, input *NewClient) (*Client, error) {
	db := config.GetDB()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	client, err := utils.FetchModel[Client](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	client.Name = strings.TrimSpace(input.Name)
	client.LegalName = input.LegalName
	client.TaxNumber = input.TaxNumber
	client.Address = input.Address
	client.ContactName = input.ContactName
	client.ContactRole = input.ContactRole
	client.Email = input.Email
	client.Phone = input.Phone
	client.DefaultCurrency = input.DefaultCurrency
	client.DefaultTaxRate = input.DefaultTaxRate
	client.DefaultPaymentTermsDays = input.DefaultPaymentTermsDays
	client.Notes = input.Notes
	client.UpdatedAt = time.Now().UTC()

	err = db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userId, id).
		Save(client).Error
	if err != nil {
		return nil, err
	}

	return client, nil
}

// DeleteClient hard-deletes the client. Returns false when no record matched
// (already absent or owned by another user).
func DeleteClient(ctx context.Context, id string) (bool, error) {
	db := config.GetDB()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userId, id).
		Delete(&Client{})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func GetClient(ctx context.Context, id string) (*Client, error) {
	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return utils.FetchModel[Client](ctx, userId, id)
}

// GetClients lists the user's clients ordered alphabetically by name.
func GetClients(ctx context.Context) ([]*Client, error) {
	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return utils.FetchAllModels[Client](ctx, userId, "name ASC")
}
