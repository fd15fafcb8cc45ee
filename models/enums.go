package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "Draft"
	InvoiceStatusSent    InvoiceStatus = "Sent"
	InvoiceStatusPaid    InvoiceStatus = "Paid"
	InvoiceStatusOverdue InvoiceStatus = "Overdue"
	InvoiceStatusVoid    InvoiceStatus = "Void"
)

// UnmarshalJSON rejects unknown statuses so an illegal status can never enter
// through the API.
func (s *InvoiceStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("invoice status must be a string")
	}
	switch InvoiceStatus(str) {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		*s = InvoiceStatus(str)
	case "":
		*s = ""
	default:
		return fmt.Errorf("invalid invoice status %q", str)
	}
	return nil
}

type InvoiceType string

const (
	InvoiceTypeInvoice    InvoiceType = "Invoice"
	InvoiceTypeCreditNote InvoiceType = "CreditNote"
)

func (t *InvoiceType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("invoice type must be a string")
	}
	switch InvoiceType(str) {
	case InvoiceTypeInvoice, InvoiceTypeCreditNote:
		*t = InvoiceType(str)
	case "":
		*t = ""
	default:
		return fmt.Errorf("invalid invoice type %q", str)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodNone       PaymentMethod = "None"
	PaymentMethodCash       PaymentMethod = "Cash"
	PaymentMethodETransfer  PaymentMethod = "ETransfer"
	PaymentMethodCreditCard PaymentMethod = "CreditCard"
	PaymentMethodDebit      PaymentMethod = "Debit"
	PaymentMethodCheque     PaymentMethod = "Cheque"
	PaymentMethodWire       PaymentMethod = "Wire"
)

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("payment method must be a string")
	}
	switch PaymentMethod(str) {
	case PaymentMethodNone, PaymentMethodCash, PaymentMethodETransfer, PaymentMethodCreditCard,
		PaymentMethodDebit, PaymentMethodCheque, PaymentMethodWire:
		*m = PaymentMethod(str)
	case "":
		*m = PaymentMethodNone
	default:
		return fmt.Errorf("invalid payment method %q", str)
	}
	return nil
}

type OutboxPublishStatus string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "Pending"
	OutboxPublishStatusProcessing OutboxPublishStatus = "Processing"
	OutboxPublishStatusSent       OutboxPublishStatus = "Sent"
	OutboxPublishStatusFailed     OutboxPublishStatus = "Failed"
	OutboxPublishStatusDead       OutboxPublishStatus = "Dead"
)

type EventAction string

const (
	EventActionCreate EventAction = "Create"
	EventActionUpdate EventAction = "Update"
	EventActionDelete EventAction = "Delete"
	EventActionSend   EventAction = "Send"
	EventActionPay    EventAction = "Pay"
)

type EventReferenceType string

const (
	EventReferenceTypeInvoice EventReferenceType = "Invoice"
)
