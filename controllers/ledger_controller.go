package controllers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/ledger"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/services"
	"github.com/kendall-kelly/jewelry-erp-api/store"
	"github.com/shopspring/decimal"
)

// CreateIssueRequest represents material handed to a karigar
type CreateIssueRequest struct {
	IssueNo     string          `json:"issue_no" binding:"omitempty,max=32"`
	IssueDate   *time.Time      `json:"issue_date"`
	KarigarID   uint            `json:"karigar_id" binding:"required"`
	ProcessID   uint            `json:"process_id" binding:"required"`
	DesignID    *uint           `json:"design_id"`
	Pieces      int             `json:"pieces"`
	GrossWeight decimal.Decimal `json:"gross_weight"`
	StoneWeight decimal.Decimal `json:"stone_weight"`
	Remarks     string          `json:"remarks"`
}

// CreateReceiptRequest represents material returned against an issue
type CreateReceiptRequest struct {
	IssueID       uint            `json:"issue_id" binding:"required"`
	ReceiptNo     string          `json:"receipt_no" binding:"omitempty,max=32"`
	ReceiptDate   *time.Time      `json:"receipt_date"`
	Pieces        int             `json:"pieces"`
	GrossWeight   decimal.Decimal `json:"gross_weight"`
	StoneWeight   decimal.Decimal `json:"stone_weight"`
	WastageWeight decimal.Decimal `json:"wastage_weight"`
	Remarks       string          `json:"remarks"`
	AllowOverride bool            `json:"allow_override"`
	// ExpectedIssueVersion, when set, must match the stored issue version
	ExpectedIssueVersion uint `json:"expected_issue_version"`
}

// UpdateIssueRequest represents a correction to an issue. Omitted fields are kept.
type UpdateIssueRequest struct {
	IssueDate   *time.Time       `json:"issue_date"`
	KarigarID   *uint            `json:"karigar_id"`
	ProcessID   *uint            `json:"process_id"`
	DesignID    *uint            `json:"design_id"`
	Pieces      *int             `json:"pieces"`
	GrossWeight *decimal.Decimal `json:"gross_weight"`
	StoneWeight *decimal.Decimal `json:"stone_weight"`
	Remarks     *string          `json:"remarks"`
	// Version, when set, must match the stored issue version
	Version uint `json:"version"`
}

// UpdateReceiptRequest represents a correction to a receipt. Omitted fields are kept.
type UpdateReceiptRequest struct {
	ReceiptDate   *time.Time       `json:"receipt_date"`
	Pieces        *int             `json:"pieces"`
	GrossWeight   *decimal.Decimal `json:"gross_weight"`
	StoneWeight   *decimal.Decimal `json:"stone_weight"`
	WastageWeight *decimal.Decimal `json:"wastage_weight"`
	Remarks       *string          `json:"remarks"`
	AllowOverride bool             `json:"allow_override"`
	// ExpectedIssueVersion, when set, must match the stored issue version
	ExpectedIssueVersion uint `json:"expected_issue_version"`
}

// CreateIssue handles POST /api/v1/issues
func CreateIssue(c *gin.Context) {
	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := ledger.IssueRequest{
		IssueNo:     req.IssueNo,
		KarigarID:   req.KarigarID,
		ProcessID:   req.ProcessID,
		DesignID:    req.DesignID,
		Pieces:      req.Pieces,
		GrossWeight: req.GrossWeight,
		StoneWeight: req.StoneWeight,
		Remarks:     req.Remarks,
	}
	if req.IssueDate != nil {
		input.IssueDate = *req.IssueDate
	}

	issue, err := services.GetLedgerService().CreateIssue(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    issue,
	})
}

// ListIssues handles GET /api/v1/issues
func ListIssues(c *gin.Context) {
	karigarID, ok := parseOptionalID(c, "karigar_id")
	if !ok {
		return
	}
	processID, ok := parseOptionalID(c, "process_id")
	if !ok {
		return
	}

	filter := store.IssueFilter{
		KarigarID: karigarID,
		ProcessID: processID,
		Status:    models.IssueStatus(c.Query("status")),
		Page:      pageFromQuery(c),
	}

	issues, total, err := services.GetLedgerService().ListIssues(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, issues, filter.Page, total)
}

// GetIssue handles GET /api/v1/issues/:id - issue with receipts and remaining balance
func GetIssue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	issue, err := services.GetLedgerService().GetIssue(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    issue,
	})
}

// UpdateIssue handles PUT /api/v1/issues/:id
func UpdateIssue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	issue, err := services.GetLedgerService().UpdateIssue(c.Request.Context(), id, ledger.IssueUpdate{
		IssueDate:       req.IssueDate,
		KarigarID:       req.KarigarID,
		ProcessID:       req.ProcessID,
		DesignID:        req.DesignID,
		Pieces:          req.Pieces,
		GrossWeight:     req.GrossWeight,
		StoneWeight:     req.StoneWeight,
		Remarks:         req.Remarks,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    issue,
	})
}

// DeleteIssue handles DELETE /api/v1/issues/:id?version= - admins only, and only while
// nothing has been received against the issue
func DeleteIssue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	version, ok := parseOptionalID(c, "version")
	if !ok {
		return
	}

	caller, ok := currentStaff(c)
	if !ok {
		return
	}
	if caller.Role != models.RoleAdmin {
		abortWith(c, http.StatusForbidden, "FORBIDDEN", "Only administrators can delete issues")
		return
	}

	if err := services.GetLedgerService().DeleteIssue(c.Request.Context(), id, version); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Issue %d deleted by %s", id, caller.Actor())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Issue deleted",
	})
}

// GetPendingIssuesByKarigar handles GET /api/v1/issues/pending/by-karigar/:karigarId
func GetPendingIssuesByKarigar(c *gin.Context) {
	karigarID, ok := parseID(c, "karigarId")
	if !ok {
		return
	}

	issues, err := services.GetLedgerService().PendingIssuesByKarigar(c.Request.Context(), karigarID)
	if err != nil {
		respondError(c, err)
		return
	}

	outstanding := decimal.Zero
	for _, issue := range issues {
		outstanding = outstanding.Add(issue.RemainingBalance())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"issues":      issues,
			"outstanding": outstanding,
		},
	})
}

// GenerateIssueNumber handles GET /api/v1/issues/generate/number
func GenerateIssueNumber(c *gin.Context) {
	number, err := services.GetLedgerService().NextIssueNumber(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"issue_no": number},
	})
}

// CreateReceipt handles POST /api/v1/receipts. allow_override is reserved for the
// configured override role.
func CreateReceipt(c *gin.Context) {
	caller, ok := currentStaff(c)
	if !ok {
		return
	}

	var req CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if req.AllowOverride && !mayOverride(c, caller, fmt.Sprintf("receipt against issue %d", req.IssueID)) {
		return
	}

	input := ledger.ReceiptRequest{
		ReceiptNo:            req.ReceiptNo,
		Pieces:               req.Pieces,
		GrossWeight:          req.GrossWeight,
		StoneWeight:          req.StoneWeight,
		WastageWeight:        req.WastageWeight,
		Remarks:              req.Remarks,
		AllowOverride:        req.AllowOverride,
		ExpectedIssueVersion: req.ExpectedIssueVersion,
	}
	if req.ReceiptDate != nil {
		input.ReceiptDate = *req.ReceiptDate
	}

	receipt, issue, err := services.GetLedgerService().CreateReceipt(c.Request.Context(), req.IssueID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"receipt": receipt,
			"issue":   issue,
		},
	})
}

// mayOverride reports whether caller may accept weight beyond an issue's balance,
// writing a 403 when not.
func mayOverride(c *gin.Context, caller staff, subject string) bool {
	if caller.Role == overrideRole() {
		return true
	}
	log.Printf("Override %s refused for %s (role %q)", subject, caller.Actor(), caller.Role)
	abortWith(c, http.StatusForbidden, "FORBIDDEN", "Only "+overrideRole()+" users can accept receipts beyond the issued weight")
	return false
}

// GetReceipt handles GET /api/v1/receipts/:id
func GetReceipt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	receipt, err := services.GetLedgerService().GetReceipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    receipt,
	})
}

// UpdateReceipt handles PUT /api/v1/receipts/:id. The issue's totals and status are
// recomputed with the corrected receipt.
func UpdateReceipt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	caller, ok := currentStaff(c)
	if !ok {
		return
	}

	var req UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.AllowOverride && !mayOverride(c, caller, fmt.Sprintf("revision of receipt %d", id)) {
		return
	}

	receipt, issue, err := services.GetLedgerService().UpdateReceipt(c.Request.Context(), id, ledger.ReceiptUpdate{
		ReceiptDate:          req.ReceiptDate,
		Pieces:               req.Pieces,
		GrossWeight:          req.GrossWeight,
		StoneWeight:          req.StoneWeight,
		WastageWeight:        req.WastageWeight,
		Remarks:              req.Remarks,
		AllowOverride:        req.AllowOverride,
		ExpectedIssueVersion: req.ExpectedIssueVersion,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"receipt": receipt,
			"issue":   issue,
		},
	})
}

// DeleteReceipt handles DELETE /api/v1/receipts/:id?expected_issue_version= - admins only
func DeleteReceipt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	version, ok := parseOptionalID(c, "expected_issue_version")
	if !ok {
		return
	}

	caller, ok := currentStaff(c)
	if !ok {
		return
	}
	if caller.Role != models.RoleAdmin {
		abortWith(c, http.StatusForbidden, "FORBIDDEN", "Only administrators can delete receipts")
		return
	}

	issue, err := services.GetLedgerService().DeleteReceipt(c.Request.Context(), id, version)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Receipt %d deleted by %s", id, caller.Actor())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Receipt deleted",
		"data":    gin.H{"issue": issue},
	})
}

// GetIssueReceiptSummary handles GET /api/v1/receipts/issue/:id/summary
func GetIssueReceiptSummary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	summary, err := services.GetLedgerService().ReceiptSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}

// ListReceipts handles GET /api/v1/receipts
func ListReceipts(c *gin.Context) {
	issueID, ok := parseOptionalID(c, "issue_id")
	if !ok {
		return
	}
	karigarID, ok := parseOptionalID(c, "karigar_id")
	if !ok {
		return
	}

	filter := store.ReceiptFilter{
		IssueID:   issueID,
		KarigarID: karigarID,
		Page:      pageFromQuery(c),
	}

	receipts, total, err := services.GetLedgerService().ListReceipts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, receipts, filter.Page, total)
}

// GenerateReceiptNumber handles GET /api/v1/receipts/generate/number
func GenerateReceiptNumber(c *gin.Context) {
	number, err := services.GetLedgerService().NextReceiptNumber(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"receipt_no": number},
	})
}

// GetStockRegister handles GET /api/v1/stock-register?karigar_id=&from=YYYY-MM-DD&to=YYYY-MM-DD
func GetStockRegister(c *gin.Context) {
	karigarID, ok := parseOptionalID(c, "karigar_id")
	if !ok {
		return
	}

	filter := store.RegisterFilter{KarigarID: karigarID}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			abortWith(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must be a date (YYYY-MM-DD)")
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			abortWith(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must be a date (YYYY-MM-DD)")
			return
		}
		// inclusive of the whole day
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	svc := services.GetLedgerService()
	entries, err := svc.StockRegister(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	openingGross, openingNet, err := svc.RegisterOpening(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	balanceGross, balanceNet := openingGross, openingNet
	if n := len(entries); n > 0 {
		balanceGross, balanceNet = entries[n-1].BalanceGross, entries[n-1].BalanceNet
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"entries":       entries,
			"opening_gross": openingGross,
			"opening_net":   openingNet,
			"balance_gross": balanceGross,
			"balance_net":   balanceNet,
		},
	})
}
