package controllers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/config"
	"github.com/kendall-kelly/jewelry-erp-api/middleware"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/store"
	"github.com/kendall-kelly/jewelry-erp-api/utils"
)

// respondError writes the error envelope for err, choosing the status from its kind.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "An unexpected error occurred",
	}

	var (
		validation  *apperrors.ValidationError
		illegal     *apperrors.IllegalTransitionError
		invalid     *apperrors.InvalidStateError
		exceeded    *apperrors.BalanceExceededError
		conflict    *apperrors.ConcurrentModificationError
		exhausted   *apperrors.SequenceExhaustedError
		notFound    *apperrors.NotFoundError
		uploadError *utils.FileUploadError
	)

	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		body = gin.H{"code": validation.Code(), "message": validation.Error()}
		if validation.Field != "" {
			body["details"] = gin.H{"field": validation.Field}
		}
	case errors.As(err, &illegal):
		status = http.StatusConflict
		body = gin.H{
			"code":    illegal.Code(),
			"message": illegal.Error(),
			"details": gin.H{"from": illegal.From, "to": illegal.To, "allowed": illegal.Allowed},
		}
	case errors.As(err, &invalid):
		status = http.StatusConflict
		body = gin.H{"code": invalid.Code(), "message": invalid.Error()}
	case errors.As(err, &exceeded):
		status = http.StatusUnprocessableEntity
		body = gin.H{
			"code":    exceeded.Code(),
			"message": exceeded.Error(),
			"details": gin.H{
				"issue_no": exceeded.IssueNo,
				"issued":   exceeded.Issued,
				"received": exceeded.Received,
				"overage":  exceeded.Overage,
			},
		}
	case errors.As(err, &conflict):
		status = http.StatusConflict
		body = gin.H{"code": conflict.Code(), "message": conflict.Error()}
	case errors.As(err, &exhausted):
		status = http.StatusServiceUnavailable
		body = gin.H{"code": exhausted.Code(), "message": exhausted.Error()}
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		body = gin.H{"code": notFound.Code(), "message": notFound.Error()}
	case errors.As(err, &uploadError):
		status = http.StatusBadRequest
		body = gin.H{"code": uploadError.Code, "message": uploadError.Message}
	default:
		log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// abortWith writes a plain error envelope
func abortWith(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondBindError reports a request body or query that failed binding
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondList writes one page of a listing with its pagination block
func respondList(c *gin.Context, data any, page store.Page, total int64) {
	page = page.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":       page.Page,
			"limit":      page.PageSize,
			"total":      total,
			"totalPages": int(math.Ceil(float64(total) / float64(page.PageSize))),
		},
	})
}

// pageFromQuery reads ?page= and ?limit=
func pageFromQuery(c *gin.Context) store.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return store.Page{Page: page, PageSize: limit}
}

// parseID reads a positive numeric path parameter, writing a 400 when it is malformed
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		abortWith(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parseOptionalID reads a numeric query parameter; empty means unset
func parseOptionalID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		abortWith(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// staff describes the caller of an authenticated request
type staff struct {
	Auth0ID string
	Profile *models.User
	Role    string
}

// Actor is the name recorded in history and logs: the profile name when the caller has
// one, otherwise the token subject.
func (s staff) Actor() string {
	if s.Profile != nil && s.Profile.Name != "" {
		return s.Profile.Name
	}
	return s.Auth0ID
}

// currentStaff identifies the caller. The profile role wins over the token role claim.
func currentStaff(c *gin.Context) (staff, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return staff{}, false
	}

	caller := staff{Auth0ID: auth0ID, Role: middleware.GetRole(c)}

	var user models.User
	if err := config.GetDB().Where("auth0_id = ?", auth0ID).First(&user).Error; err == nil {
		caller.Profile = &user
		caller.Role = user.Role
	}
	return caller, true
}

// overrideRole returns the role allowed to accept receipts beyond the issue balance
func overrideRole() string {
	if cfg := config.GetConfig(); cfg != nil && cfg.ReceiptOverrideRole != "" {
		return cfg.ReceiptOverrideRole
	}
	return models.RoleAdmin
}
