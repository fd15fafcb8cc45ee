package main

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/invoicestream/invoicing_backend/config"
	"github.com/invoicestream/invoicing_backend/models"
	"github.com/invoicestream/invoicing_backend/utils"
)

const maxLogoSizeBytes int64 = 5 * 1024 * 1024

var logoMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

func getProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		profile, err := models.GetOrCreateBusinessProfile(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func updateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		var input models.NewBusinessProfile
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		profile, err := models.UpdateBusinessProfile(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// uploadLogoHandler takes a multipart "logo" file, normalizes it to a
// 400px-wide PNG and stores it in the bucket under the user's namespace.
func uploadLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireUser(c) {
			return
		}
		ctx := c.Request.Context()
		logger := config.GetLogger()

		fileHeader, err := c.FormFile("logo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "logo file is required"})
			return
		}
		if fileHeader.Size > maxLogoSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		contentType := fileHeader.Header.Get("Content-Type")
		if !logoMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxLogoSizeBytes+1))
		if err != nil {
			respondError(c, err)
			return
		}

		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a valid image"})
			return
		}
		resized := imaging.Resize(img, 400, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
			respondError(c, err)
			return
		}

		userId, _ := utils.GetUserIdFromContext(ctx)
		objectKey := path.Join("logos", userId, uuid.NewString()+".png")
		if err := utils.UploadBytesToGCS(ctx, objectKey, buf.Bytes(), "image/png"); err != nil {
			config.LogError(logger, "profile", "uploadLogoHandler", "upload logo", objectKey, err)
			respondError(c, err)
			return
		}

		logoUrl, err := utils.PublicObjectURL(objectKey)
		if err != nil {
			respondError(c, err)
			return
		}

		// Replacing a logo leaves the old object behind only if cleanup fails.
		previous, err := models.GetOrCreateBusinessProfile(ctx)
		if err != nil {
			respondError(c, err)
			return
		}

		profile, err := models.SetBusinessLogoUrl(ctx, logoUrl)
		if err != nil {
			respondError(c, err)
			return
		}

		if previous.LogoUrl != "" && previous.LogoUrl != logoUrl {
			if key, ok := objectKeyFromURL(previous.LogoUrl); ok {
				if err := utils.DeleteObjectFromGCS(ctx, key); err != nil {
					config.LogError(logger, "profile", "uploadLogoHandler", "delete old logo", key, err)
				}
			}
		}

		c.JSON(http.StatusOK, profile)
	}
}

func objectKeyFromURL(url string) (string, bool) {
	prefix, err := utils.PublicObjectURL("")
	if err != nil || !strings.HasPrefix(url, prefix) || url == prefix {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
