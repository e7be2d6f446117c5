package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/services"
	"github.com/kendall-kelly/jewelry-erp-api/utils"
)

type attachmentRef struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// UploadOrderAttachment handles POST /api/v1/orders/:id/attachments - multipart "file"
// with an optional "type" of image (default) or document
func UploadOrderAttachment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	kind, ok := services.ParseAttachmentKind(c.PostForm("type"))
	if !ok {
		abortWith(c, http.StatusBadRequest, "VALIDATION_ERROR", "type must be image or document")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWith(c, http.StatusBadRequest, "MISSING_FILE", "A file is required in the \"file\" field")
		return
	}

	ctx := c.Request.Context()
	orders := services.GetOrderService()
	order, err := orders.GetOrder(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	attachments := services.GetAttachmentService()
	key, err := attachments.Upload(ctx, order.OrderNo, kind, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := orders.AddAttachment(ctx, id, kind, key)
	if err != nil {
		// the order could not be updated, do not leave the file behind
		_ = attachments.Delete(ctx, key)
		respondError(c, err)
		return
	}

	url, err := attachments.URL(ctx, key)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := withAttachmentURLs(ctx, updated)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"type":       kind,
			"attachment": attachmentRef{Key: key, URL: url},
			"order":      resp,
		},
	})
}

// ListOrderAttachments handles GET /api/v1/orders/:id/attachments
func ListOrderAttachments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := services.GetOrderService().GetOrder(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	resolve := func(keys []string) ([]attachmentRef, error) {
		urls, err := services.GetAttachmentService().URLs(ctx, keys)
		if err != nil {
			return nil, err
		}
		refs := make([]attachmentRef, len(keys))
		for i, key := range keys {
			refs[i] = attachmentRef{Key: key, URL: urls[i]}
		}
		return refs, nil
	}

	images, err := resolve(order.ImageURLs)
	if err != nil {
		respondError(c, err)
		return
	}
	documents, err := resolve(order.DocumentURLs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"images":    images,
			"documents": documents,
		},
	})
}

// GetUploadedFile handles GET /api/v1/uploads/:filename - serves locally stored attachments
func GetUploadedFile(c *gin.Context) {
	filename := c.Param("filename")

	// Validate filename is not empty
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Filename is required",
			},
		})
		return
	}

	// Security: Prevent directory traversal attacks
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILENAME",
				"message": "Invalid filename",
			},
		})
		return
	}

	contentType, ok := utils.ContentTypeFor(filename)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Only image and PDF attachments are served",
			},
		})
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "Attachment not found",
			},
		})
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=86400")
	c.File(filePath)
}
