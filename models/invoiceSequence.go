package models

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/invoicestream/invoicing_backend/config"
)

// InvoiceSequence is the durable high-water mark per user. Redis carries the
// hot counter; this row survives cache flushes and is the issuer of record
// when Redis is not connected.
type InvoiceSequence struct {
	UserId     string    `gorm:"primary_key;size:64" json:"user_id"`
	NextNumber int64     `gorm:"not null" json:"next_number"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func sequenceCacheKey(userId string) string {
	return "invoice_seq:" + userId
}

// NextInvoiceNumber hands out the next invoice number for the user, starting
// at 1. Every candidate comes from an atomic increment: Redis INCR on the hot
// path, or an increment-and-fetch upsert on the durable row when Redis is
// off. Read-then-write never issues a number.
func NextInvoiceNumber(ctx context.Context, userId string) (int64, error) {
	cacheKey := sequenceCacheKey(userId)

	for {
		seqNo, err := nextCandidate(ctx, userId, cacheKey)
		if err != nil {
			return 0, err
		}

		// Someone may have issued this number through a path that bypassed
		// the counter; skip forward rather than collide.
		taken, err := invoiceNumberTaken(ctx, userId, seqNo)
		if err != nil {
			return 0, err
		}
		if taken {
			continue
		}

		if err := advanceSequenceRow(ctx, userId, seqNo); err != nil {
			return 0, err
		}

		return seqNo, nil
	}
}

func nextCandidate(ctx context.Context, userId string, cacheKey string) (int64, error) {
	if !config.RedisEnabled() {
		return nextFromSequenceRow(ctx, userId)
	}

	seqNo, err := config.GetRedisCounter(ctx, cacheKey)
	if err != nil {
		return 0, err
	}

	// Our INCR created the key, so the counter is cold (first use, or the
	// cache was flushed) and the real floor may be higher than 1.
	if seqNo == 1 {
		return seedSequence(ctx, userId, cacheKey)
	}

	return seqNo, nil
}

// seedSequence raises a freshly created counter to the durable floor. The
// raise goes through INCRBY, never SET, so increments performed by concurrent
// callers in the meantime are kept and no number is handed out twice.
func seedSequence(ctx context.Context, userId string, cacheKey string) (int64, error) {
	locker := config.GetRedisLock()
	if locker != nil {
		lockKey := "lock:" + cacheKey
		for {
			lock, err := locker.Obtain(ctx, lockKey, 10*time.Second, nil)
			if err == redislock.ErrNotObtained {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			if err != nil {
				return 0, err
			}
			defer lock.Release(ctx)
			break
		}
	}

	db := config.GetDB()

	var row InvoiceSequence
	err := db.WithContext(ctx).Where("user_id = ?", userId).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var maxIssued *int64
	err = db.WithContext(ctx).Model(&Invoice{}).
		Select("max(invoice_number)").
		Where("user_id = ?", userId).
		Scan(&maxIssued).Error
	if err != nil {
		return 0, err
	}

	floor := row.NextNumber
	if maxIssued != nil && *maxIssued >= floor {
		floor = *maxIssued + 1
	}

	// Fresh user: the INCR result of 1 stands.
	if floor <= 1 {
		return 1, nil
	}

	return config.AddRedisCounter(ctx, cacheKey, floor-1)
}

// nextFromSequenceRow issues a number directly from the durable row with a
// single increment-and-fetch upsert. LAST_INSERT_ID captures the issued
// value on the same connection, so the read-back is race-free.
func nextFromSequenceRow(ctx context.Context, userId string) (int64, error) {
	db := config.GetDB()

	now := time.Now().UTC()
	var issued int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(
			"INSERT INTO invoice_sequences (user_id, next_number, updated_at) "+
				"VALUES (?, LAST_INSERT_ID(1) + 1, ?) "+
				"ON DUPLICATE KEY UPDATE next_number = LAST_INSERT_ID(next_number) + 1, updated_at = ?",
			userId, now, now,
		).Error
		if err != nil {
			return err
		}
		return tx.Raw("SELECT LAST_INSERT_ID()").Scan(&issued).Error
	})
	if err != nil {
		return 0, err
	}

	return issued, nil
}

func advanceSequenceRow(ctx context.Context, userId string, issued int64) error {
	db := config.GetDB()

	row := InvoiceSequence{UserId: userId, NextNumber: issued + 1, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"next_number": gorm.Expr("GREATEST(next_number, ?)", issued+1),
				"updated_at":  row.UpdatedAt,
			}),
		}).
		Create(&row).Error
}

func invoiceNumberTaken(ctx context.Context, userId string, number int64) (bool, error) {
	db := config.GetDB()

	var count int64
	err := db.WithContext(ctx).Model(&Invoice{}).
		Where("user_id = ? AND invoice_number = ?", userId, number).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
