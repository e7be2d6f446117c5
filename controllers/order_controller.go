package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/lifecycle"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/services"
	"github.com/kendall-kelly/jewelry-erp-api/store"
)

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	OrderNo             string                `json:"order_no" binding:"omitempty,max=32"`
	BagNo               string                `json:"bag_no" binding:"omitempty,max=64"`
	ClientName          string                `json:"client_name" binding:"required"`
	ClientCategory      models.ClientCategory `json:"client_category"`
	UrgencyLevel        models.UrgencyLevel   `json:"urgency_level"`
	DesignNo            string                `json:"design_no"`
	Description         string                `json:"description"`
	Quantity            int                   `json:"quantity" binding:"omitempty,gt=0"`
	StoneType           string                `json:"stone_type"`
	StoneSize           string                `json:"stone_size"`
	StoneQuality        string                `json:"stone_quality"`
	SpecialInstructions string                `json:"special_instructions"`
	OrderDate           *time.Time            `json:"order_date"`
	DeliveryDate        *time.Time            `json:"delivery_date"`
}

// UpdateOrderRequest represents the editable fields of an order. Omitted fields are kept.
type UpdateOrderRequest struct {
	BagNo               *string                `json:"bag_no"`
	ClientName          *string                `json:"client_name"`
	ClientCategory      *models.ClientCategory `json:"client_category"`
	UrgencyLevel        *models.UrgencyLevel   `json:"urgency_level"`
	DesignNo            *string                `json:"design_no"`
	Description         *string                `json:"description"`
	Quantity            *int                   `json:"quantity" binding:"omitempty,gt=0"`
	StoneType           *string                `json:"stone_type"`
	StoneSize           *string                `json:"stone_size"`
	StoneQuality        *string                `json:"stone_quality"`
	SpecialInstructions *string                `json:"special_instructions"`
	DeliveryDate        *time.Time             `json:"delivery_date"`
	// Version, when set, must match the stored order version
	Version uint `json:"version"`
}

// UpdateStatusRequest represents a requested transition
type UpdateStatusRequest struct {
	NewStatus           models.OrderStatus  `json:"new_status" binding:"required"`
	Location            models.Location     `json:"location"`
	KarigarID           *uint               `json:"karigar_id"`
	ProcessID           *uint               `json:"process_id"`
	Comments            string              `json:"comments"`
	ProgressPercentage  *float64            `json:"progress_percentage"`
	EstimatedCompletion *time.Time          `json:"estimated_completion"`
	ExpectedStatus      *models.OrderStatus `json:"expected_status"`
}

// orderResponse is an order with its stored attachment keys resolved to URLs
type orderResponse struct {
	*models.Order
	ImageURLs    []string `json:"image_urls"`
	DocumentURLs []string `json:"document_urls"`
}

func withAttachmentURLs(ctx context.Context, order *models.Order) (orderResponse, error) {
	resp := orderResponse{
		Order:        order,
		ImageURLs:    append([]string{}, order.ImageURLs...),
		DocumentURLs: append([]string{}, order.DocumentURLs...),
	}
	attachments := services.GetAttachmentService()
	if attachments == nil {
		return resp, nil
	}

	var err error
	if resp.ImageURLs, err = attachments.URLs(ctx, order.ImageURLs); err != nil {
		return resp, err
	}
	if resp.DocumentURLs, err = attachments.URLs(ctx, order.DocumentURLs); err != nil {
		return resp, err
	}
	return resp, nil
}

func respondOrder(c *gin.Context, status int, order *models.Order) {
	resp, err := withAttachmentURLs(c.Request.Context(), order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{
		"success": true,
		"data":    resp,
	})
}

// CreateOrder handles POST /api/v1/orders - registers a new order in RECEIVED
func CreateOrder(c *gin.Context) {
	caller, ok := currentStaff(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := services.GetOrderService().CreateOrder(c.Request.Context(), services.CreateOrderInput{
		OrderNo:             req.OrderNo,
		BagNo:               req.BagNo,
		ClientName:          req.ClientName,
		ClientCategory:      req.ClientCategory,
		UrgencyLevel:        req.UrgencyLevel,
		DesignNo:            req.DesignNo,
		Description:         req.Description,
		Quantity:            req.Quantity,
		StoneType:           req.StoneType,
		StoneSize:           req.StoneSize,
		StoneQuality:        req.StoneQuality,
		SpecialInstructions: req.SpecialInstructions,
		OrderDate:           req.OrderDate,
		DeliveryDate:        req.DeliveryDate,
	}, caller.Actor())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOrder(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders - filtered, paginated order listing
func ListOrders(c *gin.Context) {
	karigarID, ok := parseOptionalID(c, "karigar_id")
	if !ok {
		return
	}

	filter := store.OrderFilter{
		Status:         models.OrderStatus(c.Query("status")),
		Location:       models.Location(c.Query("location")),
		ClientCategory: models.ClientCategory(c.Query("client_category")),
		UrgencyLevel:   models.UrgencyLevel(c.Query("urgency_level")),
		KarigarID:      karigarID,
		Search:         c.Query("search"),
		Page:           pageFromQuery(c),
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		abortWith(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status filter")
		return
	}
	if filter.Location != "" && !filter.Location.IsValid() {
		abortWith(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown location filter")
		return
	}

	orders, total, err := services.GetOrderService().ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp, err := withAttachmentURLs(c.Request.Context(), &orders[i])
		if err != nil {
			respondError(c, err)
			return
		}
		data = append(data, resp)
	}

	respondList(c, data, filter.Page, total)
}

// GetOrder handles GET /api/v1/orders/:id - order with history, newest first
func GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOrder(c, http.StatusOK, order)
}

// UpdateOrder handles PUT /api/v1/orders/:id - edits descriptive fields only
func UpdateOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := services.GetOrderService().UpdateOrderDetails(c.Request.Context(), id, lifecycle.OrderDetails{
		BagNo:               req.BagNo,
		ClientName:          req.ClientName,
		ClientCategory:      req.ClientCategory,
		UrgencyLevel:        req.UrgencyLevel,
		DesignNo:            req.DesignNo,
		Description:         req.Description,
		Quantity:            req.Quantity,
		StoneType:           req.StoneType,
		StoneSize:           req.StoneSize,
		StoneQuality:        req.StoneQuality,
		SpecialInstructions: req.SpecialInstructions,
		DeliveryDate:        req.DeliveryDate,
	}, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOrder(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status - applies a transition
func UpdateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	caller, ok := currentStaff(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, record, err := services.GetOrderService().UpdateStatus(c.Request.Context(), id, lifecycle.TransitionRequest{
		NewStatus:           req.NewStatus,
		Location:            req.Location,
		KarigarID:           req.KarigarID,
		ProcessID:           req.ProcessID,
		Comments:            req.Comments,
		ProgressOverride:    req.ProgressPercentage,
		EstimatedCompletion: req.EstimatedCompletion,
		ExpectedStatus:      req.ExpectedStatus,
		Actor:               caller.Actor(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := withAttachmentURLs(c.Request.Context(), order)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":   resp,
			"history": record,
		},
	})
}

// GetOrderHistory handles GET /api/v1/orders/:id/history
func GetOrderHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := services.GetOrderService().History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    history,
	})
}

// GetOrderTransitions handles GET /api/v1/orders/:id/transitions - statuses reachable next
func GetOrderTransitions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	svc := services.GetOrderService()
	allowed, err := svc.AvailableTransitions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if allowed == nil {
		allowed = []models.OrderStatus{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"policy":  svc.Policy(),
			"allowed": allowed,
		},
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id - administrative hard delete
func DeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	caller, ok := currentStaff(c)
	if !ok {
		return
	}
	if caller.Role != models.RoleAdmin {
		abortWith(c, http.StatusForbidden, "FORBIDDEN", "Only administrators can delete orders")
		return
	}

	ctx := c.Request.Context()
	svc := services.GetOrderService()
	order, err := svc.GetOrder(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := svc.DeleteOrder(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	// stored files are removed after the rows are gone; a failure only leaves orphans
	if attachments := services.GetAttachmentService(); attachments != nil {
		for _, key := range append(append([]string{}, order.ImageURLs...), order.DocumentURLs...) {
			if err := attachments.Delete(ctx, key); err != nil {
				log.Printf("Failed to delete attachment %s of order %s: %v", key, order.OrderNo, err)
			}
		}
	}

	log.Printf("Order %s deleted by %s", order.OrderNo, caller.Actor())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}

// GenerateOrderNumber handles GET /api/v1/orders/generate/number - previews the next number
func GenerateOrderNumber(c *gin.Context) {
	number, err := services.GetOrderService().NextOrderNumber(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"order_no": number},
	})
}

// GetDashboardStats handles GET /api/v1/orders/dashboard/stats
func GetDashboardStats(c *gin.Context) {
	stats, err := services.GetOrderService().Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
