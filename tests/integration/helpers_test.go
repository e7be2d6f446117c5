package integration

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/config"
	"github.com/kendall-kelly/jewelry-erp-api/controllers"
	"github.com/kendall-kelly/jewelry-erp-api/lifecycle"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/services"
	"gorm.io/gorm"
)

var integrationNow = time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)

func integrationClock() time.Time { return integrationNow }

// wireServices points every shared service at db
func wireServices(db *gorm.DB, policy lifecycle.Policy, storage services.ObjectStorage) {
	config.SetDB(db)
	config.SetConfig(&config.Config{
		GoEnv:               "test",
		TransitionPolicy:    string(policy),
		ReceiptOverrideRole: models.RoleAdmin,
	})
	services.SetOrderService(services.NewOrderService(db, policy).WithClock(integrationClock))
	services.SetLedgerService(services.NewLedgerService(db).WithClock(integrationClock))
	services.SetMasterDataService(services.NewMasterDataService(db))
	services.SetAttachmentService(services.NewAttachmentService(storage))
}

// newAPIRouter mounts the business routes the way the server does, behind auth
func newAPIRouter(auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1", auth)
	{
		api.GET("/orders", controllers.ListOrders)
		api.POST("/orders", controllers.CreateOrder)
		api.GET("/orders/dashboard/stats", controllers.GetDashboardStats)
		api.GET("/orders/:id", controllers.GetOrder)
		api.DELETE("/orders/:id", controllers.DeleteOrder)
		api.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
		api.GET("/orders/:id/history", controllers.GetOrderHistory)
		api.GET("/orders/:id/transitions", controllers.GetOrderTransitions)
		api.POST("/orders/:id/attachments", controllers.UploadOrderAttachment)
		api.GET("/orders/:id/attachments", controllers.ListOrderAttachments)
		api.GET("/uploads/:filename", controllers.GetUploadedFile)

		api.POST("/karigars", controllers.CreateKarigar)
		api.POST("/processes", controllers.CreateProcess)

		api.POST("/issues", controllers.CreateIssue)
		api.GET("/issues/:id", controllers.GetIssue)
		api.PUT("/issues/:id", controllers.UpdateIssue)
		api.DELETE("/issues/:id", controllers.DeleteIssue)
		api.GET("/issues/pending/by-karigar/:karigarId", controllers.GetPendingIssuesByKarigar)
		api.POST("/receipts", controllers.CreateReceipt)
		api.GET("/receipts/issue/:id/summary", controllers.GetIssueReceiptSummary)
		api.GET("/receipts/:id", controllers.GetReceipt)
		api.PUT("/receipts/:id", controllers.UpdateReceipt)
		api.DELETE("/receipts/:id", controllers.DeleteReceipt)
		api.GET("/stock-register", controllers.GetStockRegister)

		api.GET("/users", controllers.ListUsers)
	}
	return router
}

// doJSON sends body as JSON and decodes the response envelope
func doJSON(router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]interface{}) {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func dataOf(response map[string]interface{}) map[string]interface{} {
	data, _ := response["data"].(map[string]interface{})
	return data
}

func errorCodeOf(response map[string]interface{}) string {
	errorData, _ := response["error"].(map[string]interface{})
	code, _ := errorData["code"].(string)
	return code
}
