package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/models"
	"github.com/invoicestream/invoicing_backend/models/reports"
	"github.com/invoicestream/invoicing_backend/pdf"
	"github.com/invoicestream/invoicing_backend/utils"
)

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		invoices, err := models.GetInvoices(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func updateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		invoice, err := models.UpdateInvoice(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func deleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		deleted, err := models.DeleteInvoice(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func sendInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		invoice, err := models.MarkInvoiceSent(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func payInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		// Body is optional: paying with no details records the bare fact.
		var input models.PayInvoiceInput
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		invoice, err := models.MarkInvoicePaid(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func invoicePdfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		ctx := c.Request.Context()

		style, err := pdf.ParseStyle(c.Query("style"))
		if err != nil {
			respondError(c, err)
			return
		}

		invoice, err := models.GetInvoice(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		// The client may have been deleted since issuing; render a
		// placeholder rather than failing.
		client, err := models.GetClient(ctx, invoice.ClientId)
		if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}

		profile, err := models.GetOrCreateBusinessProfile(ctx)
		if err != nil {
			respondError(c, err)
			return
		}

		// Rendering is deterministic for a given invoice/client/profile
		// revision, so the bytes are cached until any of them changes.
		cacheKey := invoicePdfCacheKey(invoice, client, profile, style)
		cached, exists, err := config.GetRedisValue(cacheKey)
		if err != nil {
			respondError(c, err)
			return
		}

		var data []byte
		if exists {
			data = []byte(cached)
		} else {
			doc := pdf.BuildInvoiceDocument(invoice, client, profile)
			data, err = pdf.Render(doc, style)
			if err != nil {
				respondError(c, err)
				return
			}
			if err := config.SetRedisValue(cacheKey, string(data), time.Hour); err != nil {
				respondError(c, err)
				return
			}
		}

		c.Header("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", pdf.FileName(invoice.ID, style)))
		c.Data(http.StatusOK, "application/pdf", data)
	}
}

func invoicePdfCacheKey(invoice *models.Invoice, client *models.Client, profile *models.BusinessProfile, style pdf.Style) string {
	var clientRev int64
	if client != nil {
		clientRev = client.UpdatedAt.UnixMilli()
	}
	return fmt.Sprintf("InvoicePdf:%s:%s:%d:%d:%d",
		invoice.ID, style, invoice.UpdatedAt.UnixMilli(), clientRev, profile.UpdatedAt.UnixMilli())
}

func exportInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		rows, err := reports.GetInvoiceExportRows(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Content-Disposition", "attachment; filename=invoices.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := reports.WriteInvoiceExportXlsx(c.Writer, rows); err != nil {
			_ = c.Error(err)
		}
	}
}
