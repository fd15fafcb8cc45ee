package models_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/models"
	"github.com/invoicestream/invoicing_backend/utils"
)

func userContext(userId string) context.Context {
	return utils.SetUserIdInContext(context.Background(), userId)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createTestClient(t *testing.T, ctx context.Context, name string) *models.Client {
	t.Helper()
	client, err := models.CreateClient(ctx, &models.NewClient{Name: name})
	if err != nil {
		t.Fatalf("CreateClient(%s): %v", name, err)
	}
	return client
}

func TestInvoiceLifecycle(t *testing.T) {
	setupIntegration(t)

	ctx := userContext("lifecycle-user")
	client := createTestClient(t, ctx, "Acme Corp")

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientId: client.ID,
		Tags:     []string{" design ", "", "q3"},
		LineItems: []models.NewInvoiceLineItem{
			{Description: "  Design work  ", Quantity: dec("10"), UnitPrice: dec("95.00"), TaxRate: dec("0.13")},
			{Description: "Hosting", Quantity: dec("1"), UnitPrice: dec("25.00"), TaxRate: dec("0.13")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if invoice.InvoiceNumber != 1 {
		t.Fatalf("first invoice number = %d, want 1", invoice.InvoiceNumber)
	}
	if invoice.Status != models.InvoiceStatusDraft {
		t.Fatalf("status = %s, want Draft", invoice.Status)
	}
	// Profile defaults: CAD currency, 14 day terms.
	if invoice.Currency != "CAD" {
		t.Fatalf("currency = %s, want CAD", invoice.Currency)
	}
	if got := invoice.DueDate.Sub(invoice.IssueDate); got != 14*24*time.Hour {
		t.Fatalf("due date offset = %s, want 14 days", got)
	}
	if invoice.LineItems[0].Description != "Design work" {
		t.Fatalf("description not trimmed: %q", invoice.LineItems[0].Description)
	}
	if !reflect.DeepEqual(invoice.Tags, []string{"design", "q3"}) {
		t.Fatalf("tags = %v, want normalized [design q3]", invoice.Tags)
	}
	if !invoice.SubTotal.Equal(dec("975.00")) || !invoice.Tax.Equal(dec("126.75")) || !invoice.GrandTotal.Equal(dec("1101.75")) {
		t.Fatalf("totals = %s/%s/%s", invoice.SubTotal, invoice.Tax, invoice.GrandTotal)
	}

	// Update replaces line items wholesale but keeps identity fields.
	updated, err := models.UpdateInvoice(ctx, invoice.ID, &models.NewInvoice{
		ClientId: client.ID,
		Status:   models.InvoiceStatusDraft,
		LineItems: []models.NewInvoiceLineItem{
			{Description: "Consulting", Quantity: dec("2"), UnitPrice: dec("50.00"), TaxRate: dec("0.13")},
		},
	})
	if err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}
	if updated.InvoiceNumber != invoice.InvoiceNumber {
		t.Fatalf("invoice number changed on update: %d -> %d", invoice.InvoiceNumber, updated.InvoiceNumber)
	}
	if drift := updated.CreatedAt.Sub(invoice.CreatedAt); drift < -time.Second || drift > time.Second {
		t.Fatalf("created at changed on update: %s -> %s", invoice.CreatedAt, updated.CreatedAt)
	}
	if len(updated.LineItems) != 1 {
		t.Fatalf("line items = %d, want 1 after replacement", len(updated.LineItems))
	}
	if !updated.GrandTotal.Equal(dec("113.00")) {
		t.Fatalf("recomputed grand total = %s, want 113.00", updated.GrandTotal)
	}

	fetched, err := models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if len(fetched.LineItems) != 1 || fetched.LineItems[0].Description != "Consulting" {
		t.Fatalf("stale line items after update: %+v", fetched.LineItems)
	}

	// Send then pay; paying and then re-sending ends in Sent (last write wins).
	sent, err := models.MarkInvoiceSent(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("MarkInvoiceSent: %v", err)
	}
	if sent.Status != models.InvoiceStatusSent || sent.SentAt == nil {
		t.Fatalf("sent invoice: status=%s sentAt=%v", sent.Status, sent.SentAt)
	}

	paid, err := models.MarkInvoicePaid(ctx, invoice.ID, &models.PayInvoiceInput{
		PaymentMethod:    models.PaymentMethodETransfer,
		PaymentReference: "TX-1001",
	})
	if err != nil {
		t.Fatalf("MarkInvoicePaid: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid || paid.PaidAt == nil {
		t.Fatalf("paid invoice: status=%s paidAt=%v", paid.Status, paid.PaidAt)
	}
	if paid.PaymentMethod != models.PaymentMethodETransfer || paid.PaymentReference != "TX-1001" {
		t.Fatalf("payment details not recorded: %s %s", paid.PaymentMethod, paid.PaymentReference)
	}

	resent, err := models.MarkInvoiceSent(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("MarkInvoiceSent after paid: %v", err)
	}
	if resent.Status != models.InvoiceStatusSent {
		t.Fatalf("re-sent status = %s, want Sent", resent.Status)
	}
	if resent.PaidAt == nil {
		t.Fatalf("paid timestamp lost on re-send")
	}

	// Delete is idempotent-ish: true first, false after.
	deleted, err := models.DeleteInvoice(ctx, invoice.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteInvoice = %v, %v", deleted, err)
	}
	deleted, err = models.DeleteInvoice(ctx, invoice.ID)
	if err != nil || deleted {
		t.Fatalf("second DeleteInvoice = %v, %v; want false, nil", deleted, err)
	}
	if _, err := models.GetInvoice(ctx, invoice.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("GetInvoice after delete: %v", err)
	}
}

func TestInvoiceValidation(t *testing.T) {
	setupIntegration(t)

	ctx := userContext("validation-user")

	_, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientId:  "some-client",
		LineItems: nil,
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("zero line items: err = %v, want validation error", err)
	}

	_, err = models.CreateInvoice(ctx, &models.NewInvoice{
		ClientId: "",
		LineItems: []models.NewInvoiceLineItem{
			{Description: "x", Quantity: dec("1"), UnitPrice: dec("1")},
		},
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("empty client id: err = %v, want validation error", err)
	}
}

func TestInvoiceOwnershipScoping(t *testing.T) {
	setupIntegration(t)

	ownerCtx := userContext("owner-user")
	otherCtx := userContext("other-user")

	client := createTestClient(t, ownerCtx, "Scoped Inc")
	invoice, err := models.CreateInvoice(ownerCtx, &models.NewInvoice{
		ClientId: client.ID,
		LineItems: []models.NewInvoiceLineItem{
			{Description: "Work", Quantity: dec("1"), UnitPrice: dec("100.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if _, err := models.GetInvoice(otherCtx, invoice.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("cross-user read: err = %v, want not found", err)
	}
	if _, err := models.MarkInvoicePaid(otherCtx, invoice.ID, nil); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("cross-user pay: err = %v, want not found", err)
	}
	deleted, err := models.DeleteInvoice(otherCtx, invoice.ID)
	if err != nil || deleted {
		t.Fatalf("cross-user delete = %v, %v; want false", deleted, err)
	}

	// Still intact for the owner.
	if _, err := models.GetInvoice(ownerCtx, invoice.ID); err != nil {
		t.Fatalf("owner read after cross-user attempts: %v", err)
	}
}

func TestInvoiceLineItemInheritsProfileTaxRate(t *testing.T) {
	setupIntegration(t)

	ctx := userContext("taxrate-user")
	client := createTestClient(t, ctx, "Tax Co")

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientId: client.ID,
		LineItems: []models.NewInvoiceLineItem{
			{Description: "Inherits", Quantity: dec("1"), UnitPrice: dec("100.00")},
			{Description: "Explicit", Quantity: dec("1"), UnitPrice: dec("100.00"), TaxRate: dec("0.05")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// Default profile rate is 13%.
	if !invoice.LineItems[0].TaxRate.Equal(dec("0.13")) {
		t.Fatalf("inherited tax rate = %s, want 0.13", invoice.LineItems[0].TaxRate)
	}
	if !invoice.LineItems[1].TaxRate.Equal(dec("0.05")) {
		t.Fatalf("explicit tax rate = %s, want 0.05", invoice.LineItems[1].TaxRate)
	}
	if !invoice.Tax.Equal(dec("18.00")) {
		t.Fatalf("tax = %s, want 18.00", invoice.Tax)
	}
}

func TestInvoiceNumbersConcurrent(t *testing.T) {
	setupIntegration(t)

	const n = 20
	ctx := userContext("concurrent-user")
	client := createTestClient(t, ctx, "Parallel Ltd")

	var wg sync.WaitGroup
	numbers := make(chan int64, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
				ClientId: client.ID,
				LineItems: []models.NewInvoiceLineItem{
					{Description: fmt.Sprintf("Job %d", i), Quantity: dec("1"), UnitPrice: dec("10.00")},
				},
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- invoice.InvoiceNumber
		}(i)
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent CreateInvoice: %v", err)
	}

	var got []int64
	for num := range numbers {
		got = append(got, num)
	}
	if len(got) != n {
		t.Fatalf("created %d invoices, want %d", len(got), n)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, num := range got {
		if num != int64(i+1) {
			t.Fatalf("invoice numbers not dense 1..%d: %v", n, got)
		}
	}
}

func TestInvoiceNumbersSurviveCacheFlush(t *testing.T) {
	setupIntegration(t)

	const userId = "flush-user"
	ctx := userContext(userId)
	client := createTestClient(t, ctx, "Flush Co")

	newInvoice := func(desc string) *models.NewInvoice {
		return &models.NewInvoice{
			ClientId: client.ID,
			LineItems: []models.NewInvoiceLineItem{
				{Description: desc, Quantity: dec("1"), UnitPrice: dec("10.00")},
			},
		}
	}

	for i := 1; i <= 3; i++ {
		invoice, err := models.CreateInvoice(ctx, newInvoice(fmt.Sprintf("Before %d", i)))
		if err != nil {
			t.Fatalf("CreateInvoice %d: %v", i, err)
		}
		if invoice.InvoiceNumber != int64(i) {
			t.Fatalf("invoice number = %d, want %d", invoice.InvoiceNumber, i)
		}
	}

	// Simulate a Redis flush: numbering must reseed from the durable state
	// and never reissue 1..3, even under concurrent cold starts.
	if err := config.RemoveRedisKey("invoice_seq:" + userId); err != nil {
		t.Fatalf("flush counter: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	numbers := make(chan int64, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			invoice, err := models.CreateInvoice(ctx, newInvoice(fmt.Sprintf("After %d", i)))
			if err != nil {
				errs <- err
				return
			}
			numbers <- invoice.InvoiceNumber
		}(i)
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("CreateInvoice after flush: %v", err)
	}

	seen := make(map[int64]bool)
	for num := range numbers {
		if num <= 3 {
			t.Fatalf("number %d reissued after cache flush", num)
		}
		if seen[num] {
			t.Fatalf("duplicate invoice number %d after cache flush", num)
		}
		seen[num] = true
	}
	if len(seen) != n {
		t.Fatalf("issued %d numbers, want %d", len(seen), n)
	}
}

func TestClientRegistry(t *testing.T) {
	setupIntegration(t)

	ctx := userContext("client-user")

	if _, err := models.CreateClient(ctx, &models.NewClient{Name: "   "}); !utils.IsValidationError(err) {
		t.Fatalf("blank name: err = %v, want validation error", err)
	}
	if _, err := models.CreateClient(ctx, &models.NewClient{Name: "Bad Phone", Phone: "not-a-phone"}); !utils.IsValidationError(err) {
		t.Fatalf("bad phone: err = %v, want validation error", err)
	}
	if _, err := models.CreateClient(ctx, &models.NewClient{Name: "Good Phone", Phone: "+1 416-967-1111"}); err != nil {
		t.Fatalf("valid phone rejected: %v", err)
	}

	createTestClient(t, ctx, "Zeta")
	createTestClient(t, ctx, "Alpha")
	mid := createTestClient(t, ctx, "Mid")

	clients, err := models.GetClients(ctx)
	if err != nil {
		t.Fatalf("GetClients: %v", err)
	}
	wantOrder := []string{"Alpha", "Good Phone", "Mid", "Zeta"}
	if len(clients) != len(wantOrder) {
		t.Fatalf("clients = %d, want %d", len(clients), len(wantOrder))
	}
	for i, name := range wantOrder {
		if clients[i].Name != name {
			t.Fatalf("clients[%d] = %s, want %s", i, clients[i].Name, name)
		}
	}

	mid.Name = "Omega"
	updated, err := models.UpdateClient(ctx, mid.ID, &models.NewClient{
		Name:           "Omega",
		Email:          "omega@test",
		DefaultTaxRate: dec("0.05"),
	})
	if err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}
	if updated.Name != "Omega" || updated.Email != "omega@test" {
		t.Fatalf("update not applied: %+v", updated)
	}

	deleted, err := models.DeleteClient(ctx, mid.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteClient = %v, %v", deleted, err)
	}
	if _, err := models.GetClient(ctx, mid.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("GetClient after delete: %v", err)
	}
}

func TestBusinessProfileDefaultsAndUpdate(t *testing.T) {
	setupIntegration(t)

	ctx := userContext("profile-user")

	profile, err := models.GetOrCreateBusinessProfile(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateBusinessProfile: %v", err)
	}
	if profile.BusinessName != "Your Business Name" {
		t.Fatalf("default business name = %q", profile.BusinessName)
	}
	if profile.DefaultCurrency != "CAD" || !profile.DefaultTaxRate.Equal(dec("0.13")) || profile.DefaultPaymentTermsDays != 14 {
		t.Fatalf("profile defaults = %s/%s/%d", profile.DefaultCurrency, profile.DefaultTaxRate, profile.DefaultPaymentTermsDays)
	}

	updated, err := models.UpdateBusinessProfile(ctx, &models.NewBusinessProfile{
		BusinessName:            "North Studio",
		DefaultCurrency:         "USD",
		DefaultTaxRate:          dec("0.07"),
		DefaultPaymentTermsDays: 30,
		PaymentInstructions:     "Wire to account 123",
	})
	if err != nil {
		t.Fatalf("UpdateBusinessProfile: %v", err)
	}
	if updated.BusinessName != "North Studio" || updated.DefaultCurrency != "USD" {
		t.Fatalf("profile update not applied: %+v", updated)
	}

	again, err := models.GetOrCreateBusinessProfile(ctx)
	if err != nil {
		t.Fatalf("re-read profile: %v", err)
	}
	if again.PaymentInstructions != "Wire to account 123" {
		t.Fatalf("payment instructions = %q", again.PaymentInstructions)
	}

	// New invoices pick up the changed defaults.
	client := createTestClient(t, ctx, "Default Check")
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientId: client.ID,
		LineItems: []models.NewInvoiceLineItem{
			{Description: "Work", Quantity: dec("1"), UnitPrice: dec("100.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if invoice.Currency != "USD" {
		t.Fatalf("currency = %s, want USD", invoice.Currency)
	}
	if got := invoice.DueDate.Sub(invoice.IssueDate); got != 30*24*time.Hour {
		t.Fatalf("due date offset = %s, want 30 days", got)
	}
}

func TestVerificationCodeRoundTrip(t *testing.T) {
	setupIntegration(t)

	ctx := userContext("verify-user")

	code, err := models.GenerateVerificationCode(ctx, "send-invoice")
	if err != nil {
		t.Fatalf("GenerateVerificationCode: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code length = %d, want 6", len(code))
	}

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	ok, err := models.ValidateVerificationCode(ctx, "send-invoice", wrong)
	if err != nil {
		t.Fatalf("ValidateVerificationCode wrong code: %v", err)
	}
	if ok {
		t.Fatal("wrong code accepted")
	}

	ok, err = models.ValidateVerificationCode(ctx, "send-invoice", code)
	if err != nil || !ok {
		t.Fatalf("ValidateVerificationCode = %v, %v", ok, err)
	}

	// Codes burn on use.
	ok, err = models.ValidateVerificationCode(ctx, "send-invoice", code)
	if err != nil || ok {
		t.Fatalf("re-used code accepted: %v, %v", ok, err)
	}
}
