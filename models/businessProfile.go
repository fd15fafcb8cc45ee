package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/utils"
)

// BusinessProfile is the per-user issuer identity shown on invoices.
// Exactly one row exists per user; it is created lazily on first read.
type BusinessProfile struct {
	UserId                  string          `gorm:"primary_key;size:64" json:"user_id"`
	BusinessName            string          `gorm:"size:255;not null" json:"business_name"`
	LegalName               string          `gorm:"size:255" json:"legal_name"`
	TaxNumber               string          `gorm:"size:100" json:"tax_number"`
	Address                 Address         `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Email                   string          `gorm:"size:255" json:"email"`
	Phone                   string          `gorm:"size:50" json:"phone"`
	Website                 string          `gorm:"size:255" json:"website"`
	LogoUrl                 string          `gorm:"size:512" json:"logo_url"`
	DefaultCurrency         string          `gorm:"size:10;not null" json:"default_currency"`
	DefaultTaxRate          decimal.Decimal `gorm:"type:decimal(6,4)" json:"default_tax_rate"`
	DefaultPaymentTermsDays int             `json:"default_payment_terms_days"`
	DefaultInvoiceNotes     string          `gorm:"type:text" json:"default_invoice_notes"`
	PaymentInstructions     string          `gorm:"type:text" json:"payment_instructions"`
	CreatedAt               time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusinessProfile struct {
	BusinessName            string          `json:"business_name"`
	LegalName               string          `json:"legal_name"`
	TaxNumber               string          `json:"tax_number"`
	Address                 Address         `json:"address"`
	Email                   string          `json:"email"`
	Phone                   string          `json:"phone"`
	Website                 string          `json:"website"`
	LogoUrl                 string          `json:"logo_url"`
	DefaultCurrency         string          `json:"default_currency"`
	DefaultTaxRate          decimal.Decimal `json:"default_tax_rate"`
	DefaultPaymentTermsDays int             `json:"default_payment_terms_days"`
	DefaultInvoiceNotes     string          `json:"default_invoice_notes"`
	PaymentInstructions     string          `json:"payment_instructions"`
}

func (profile *BusinessProfile) storeRedis() error {
	return config.SetRedisObject("BusinessProfile:"+profile.UserId, profile, 0)
}

func defaultBusinessProfile(userId string) BusinessProfile {
	return BusinessProfile{
		UserId:                  userId,
		BusinessName:            "Your Business Name",
		DefaultCurrency:         "CAD",
		DefaultTaxRate:          decimal.NewFromFloat(0.13),
		DefaultPaymentTermsDays: 14,
	}
}

// GetOrCreateBusinessProfile returns the user's profile, inserting the
// default one on first access.
func GetOrCreateBusinessProfile(ctx context.Context) (*BusinessProfile, error) {
	db := config.GetDB()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var profile BusinessProfile
	exists, err := config.GetRedisObject("BusinessProfile:"+userId, &profile)
	if err != nil {
		return nil, err
	}
	if exists {
		return &profile, nil
	}

	err = db.WithContext(ctx).
		Where("user_id = ?", userId).
		First(&profile).Error
	if err == nil {
		// caching
		if err := profile.storeRedis(); err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile = defaultBusinessProfile(userId)
	// Concurrent first reads may race the insert; DoNothing keeps both
	// callers converging on the same row.
	err = db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&profile).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Where("user_id = ?", userId).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	if err := profile.storeRedis(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// UpdateBusinessProfile replaces the stored profile wholesale. The user id
// always comes from the caller's identity, never from the payload.
func UpdateBusinessProfile(ctx context.Context, input *NewBusinessProfile) (*BusinessProfile, error) {
	db := config.GetDB()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if phone := strings.TrimSpace(input.Phone); phone != "" {
		if err := utils.ValidatePhoneNumber(phone, defaultPhoneRegion); err != nil {
			return nil, utils.NewValidationError("business phone number is invalid")
		}
	}

	profile := BusinessProfile{
		UserId:                  userId,
		BusinessName:            input.BusinessName,
		LegalName:               input.LegalName,
		TaxNumber:               input.TaxNumber,
		Address:                 input.Address,
		Email:                   input.Email,
		Phone:                   input.Phone,
		Website:                 input.Website,
		LogoUrl:                 input.LogoUrl,
		DefaultCurrency:         input.DefaultCurrency,
		DefaultTaxRate:          input.DefaultTaxRate,
		DefaultPaymentTermsDays: input.DefaultPaymentTermsDays,
		DefaultInvoiceNotes:     input.DefaultInvoiceNotes,
		PaymentInstructions:     input.PaymentInstructions,
		UpdatedAt:               time.Now().UTC(),
	}
	if profile.BusinessName == "" {
		profile.BusinessName = "Your Business Name"
	}
	if profile.DefaultCurrency == "" {
		profile.DefaultCurrency = "CAD"
	}

	err = db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&profile).Error
	if err != nil {
		return nil, err
	}
	if err := profile.storeRedis(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// SetBusinessLogoUrl updates only the logo reference, used by the upload
// handler after the image lands in object storage.
func SetBusinessLogoUrl(ctx context.Context, logoUrl string) (*BusinessProfile, error) {
	db := config.GetDB()

	profile, err := GetOrCreateBusinessProfile(ctx)
	if err != nil {
		return nil, err
	}

	profile.LogoUrl = logoUrl
	profile.UpdatedAt = time.Now().UTC()

	err = db.WithContext(ctx).
		Model(&BusinessProfile{}).
		Where("user_id = ?", profile.UserId).
		Updates(map[string]interface{}{
			"logo_url":   profile.LogoUrl,
			"updated_at": profile.UpdatedAt,
		}).Error
	if err != nil {
		return nil, err
	}
	if err := profile.storeRedis(); err != nil {
		return nil, err
	}

	return profile, nil
}
