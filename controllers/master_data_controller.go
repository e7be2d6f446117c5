package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/services"
)

// CreateKarigarRequest represents the request body for registering a karigar
type CreateKarigarRequest struct {
	Code    string  `json:"code" binding:"required,max=20"`
	Name    string  `json:"name" binding:"required,max=100"`
	Contact *string `json:"contact" binding:"omitempty,max=20"`
	Address *string `json:"address"`
	Active  *bool   `json:"active"`
}

// CreateProcessRequest represents the request body for a manufacturing process
type CreateProcessRequest struct {
	Name        string  `json:"name" binding:"required,max=50"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// CreateDesignRequest represents the request body for a catalogue design
type CreateDesignRequest struct {
	Code        string  `json:"code" binding:"required,max=50"`
	Name        string  `json:"name" binding:"required,max=100"`
	Category    *string `json:"category" binding:"omitempty,max=50"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// activeOrDefault treats an omitted flag as active
func activeOrDefault(active *bool) bool {
	return active == nil || *active
}

// activeOnly reads ?active=true
func activeOnly(c *gin.Context) bool {
	return c.Query("active") == "true"
}

// ListKarigars handles GET /api/v1/karigars
func ListKarigars(c *gin.Context) {
	karigars, err := services.GetMasterDataService().ListKarigars(c.Request.Context(), activeOnly(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    karigars,
	})
}

// GetKarigar handles GET /api/v1/karigars/:id
func GetKarigar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	karigar, err := services.GetMasterDataService().GetKarigar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    karigar,
	})
}

// CreateKarigar handles POST /api/v1/karigars
func CreateKarigar(c *gin.Context) {
	var req CreateKarigarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	karigar := models.Karigar{
		Code:    req.Code,
		Name:    req.Name,
		Contact: req.Contact,
		Address: req.Address,
		Active:  activeOrDefault(req.Active),
	}
	if err := services.GetMasterDataService().CreateKarigar(c.Request.Context(), &karigar); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    karigar,
	})
}

// ListProcesses handles GET /api/v1/processes
func ListProcesses(c *gin.Context) {
	processes, err := services.GetMasterDataService().ListProcesses(c.Request.Context(), activeOnly(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    processes,
	})
}

// CreateProcess handles POST /api/v1/processes
func CreateProcess(c *gin.Context) {
	var req CreateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	process := models.Process{
		Name:        req.Name,
		Description: req.Description,
		Active:      activeOrDefault(req.Active),
	}
	if err := services.GetMasterDataService().CreateProcess(c.Request.Context(), &process); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    process,
	})
}

// ListDesigns handles GET /api/v1/designs
func ListDesigns(c *gin.Context) {
	designs, err := services.GetMasterDataService().ListDesigns(c.Request.Context(), activeOnly(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    designs,
	})
}

// CreateDesign handles POST /api/v1/designs
func CreateDesign(c *gin.Context) {
	var req CreateDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	design := models.Design{
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Active:      activeOrDefault(req.Active),
	}
	if err := services.GetMasterDataService().CreateDesign(c.Request.Context(), &design); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    design,
	})
}
