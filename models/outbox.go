package models

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/invoicestream/invoicing_backend/config"
)

// OutboxRecord is an invoice event written in the same transaction as the
// change it describes. The outbox dispatcher drains pending records to
// Pub/Sub, so a publish outage never loses an event.
type OutboxRecord struct {
	ID               string              `gorm:"primary_key;size:32" json:"id"`
	UserId           string              `gorm:"index;size:64;not null" json:"user_id"`
	ReferenceId      string              `gorm:"size:32;not null" json:"reference_id"`
	ReferenceType    EventReferenceType  `gorm:"size:20;not null" json:"reference_type"`
	Action           EventAction         `gorm:"size:20;not null" json:"action"`
	Payload          string              `gorm:"type:text" json:"payload"`
	CorrelationId    string              `gorm:"size:64" json:"correlation_id"`
	PublishStatus    OutboxPublishStatus `gorm:"size:20;not null;index" json:"publish_status"`
	PublishAttempts  int                 `gorm:"default:0" json:"publish_attempts"`
	LastPublishError *string             `gorm:"size:1024" json:"last_publish_error"`
	NextAttemptAt    *time.Time          `json:"next_attempt_at"`
	LockedAt         *time.Time          `json:"locked_at"`
	LockedBy         *string             `gorm:"size:64" json:"locked_by"`
	PubSubMessageId  *string             `gorm:"size:64" json:"pub_sub_message_id"`
	OccurredAt       time.Time           `gorm:"not null;index" json:"occurred_at"`
	PublishedAt      *time.Time          `json:"published_at"`
}

// PublishInvoiceEvent stages an invoice event inside the caller's transaction.
func PublishInvoiceEvent(ctx context.Context, tx *gorm.DB, userId string, referenceId string, action EventAction, payload interface{}) error {
	logger := config.GetLogger()

	var payloadJson string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			config.LogError(logger, "outbox", "PublishInvoiceEvent", "marshal payload", referenceId, err)
			return err
		}
		payloadJson = string(raw)
	}

	record := OutboxRecord{
		ID:            newRecordId(),
		UserId:        userId,
		ReferenceId:   referenceId,
		ReferenceType: EventReferenceTypeInvoice,
		Action:        action,
		Payload:       payloadJson,
		CorrelationId: correlationIdFromContextOrNew(ctx),
		PublishStatus: OutboxPublishStatusPending,
		OccurredAt:    time.Now().UTC(),
	}

	return tx.Create(&record).Error
}

// ConvertToPubSubMessage maps the stored record to the wire message.
func ConvertToPubSubMessage(rec OutboxRecord) config.PubSubMessage {
	return config.PubSubMessage{
		ID:            rec.ID,
		UserId:        rec.UserId,
		OccurredAt:    rec.OccurredAt,
		ReferenceId:   rec.ReferenceId,
		ReferenceType: string(rec.ReferenceType),
		Action:        string(rec.Action),
		Payload:       rec.Payload,
		CorrelationId: rec.CorrelationId,
	}
}
