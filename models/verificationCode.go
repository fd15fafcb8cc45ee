package models

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/utils"
)

const verificationCodeTTL = 15 * time.Minute

// VerificationCode is a short-lived six digit code tied to a user and a
// purpose (for example confirming the email an invoice is sent to). Only the
// bcrypt hash is stored.
type VerificationCode struct {
	ID        string     `gorm:"primary_key;size:32" json:"id"`
	UserId    string     `gorm:"index;size:64;not null" json:"user_id"`
	Purpose   string     `gorm:"size:50;not null" json:"purpose"`
	CodeHash  string     `gorm:"size:100;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// GenerateVerificationCode mints a fresh code and returns the plaintext once.
// It is never retrievable afterwards.
func GenerateVerificationCode(ctx context.Context, purpose string) (string, error) {
	db := config.GetDB()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return "", err
	}
	if purpose == "" {
		return "", utils.NewValidationError("verification purpose is required")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	hash, err := utils.HashCode(code)
	if err != nil {
		return "", err
	}

	record := VerificationCode{
		ID:        newRecordId(),
		UserId:    userId,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().UTC().Add(verificationCodeTTL),
	}

	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", err
	}

	return code, nil
}

// ValidateVerificationCode checks the code against the user's live
// candidates, newest first, and burns the match.
func ValidateVerificationCode(ctx context.Context, purpose string, code string) (bool, error) {
	db := config.GetDB()

	userId, err := userIdFromContext(ctx)
	if err != nil {
		return false, err
	}

	var candidates []*VerificationCode
	err = db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?",
			userId, purpose, time.Now().UTC()).
		Order("created_at DESC").
		Find(&candidates).Error
	if err != nil {
		return false, err
	}

	for _, candidate := range candidates {
		if utils.CompareCode(candidate.CodeHash, code) != nil {
			continue
		}
		now := time.Now().UTC()
		err = db.WithContext(ctx).
			Model(&VerificationCode{}).
			Where("id = ?", candidate.ID).
			Update("used_at", now).Error
		if err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}
