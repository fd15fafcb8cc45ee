package models

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/invoicestream/invoicing_backend/utils"
)

// defaultPhoneRegion is the region phone numbers are parsed against when
// they carry no + country prefix. Matches the CAD profile defaults.
const defaultPhoneRegion = "CA"

// newRecordId returns a 32-char hex id (uuid without dashes).
func newRecordId() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// userIdFromContext extracts the caller identity set by the HTTP layer.
func userIdFromContext(ctx context.Context) (string, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return "", utils.NewValidationError("user id is required")
	}
	return userId, nil
}
