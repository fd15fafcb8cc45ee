package models

import (
	"log"

	"github.com/invoicestream/invoicing_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Client{},
		&BusinessProfile{},
		&Invoice{},
		&InvoiceLineItem{},
		&InvoiceSequence{},
		&VerificationCode{},
		&OutboxRecord{},
	)
	if err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
}
