package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/config"
	"github.com/kendall-kelly/jewelry-erp-api/controllers"
	"github.com/kendall-kelly/jewelry-erp-api/middleware"
	"github.com/kendall-kelly/jewelry-erp-api/services"
	"github.com/kendall-kelly/jewelry-erp-api/utils"
)

func main() {
	log.Println("Starting Jewelry ERP API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	services.InitOrderService(db, cfg.Policy())
	services.InitLedgerService(db)
	services.InitMasterDataService(db)
	log.Printf("Order transitions use the %s policy", cfg.Policy())

	storage, err := initStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}
	services.InitAttachmentService(storage)

	router := setupRouter(cfg, middleware.EnsureValidToken(cfg))

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initStorage picks S3 when a bucket is configured and the local upload directory otherwise
func initStorage(cfg *config.Config) (services.ObjectStorage, error) {
	if !cfg.UsesS3() {
		log.Printf("No S3 bucket configured, storing attachments in %s", utils.UploadDir)
		return services.NewLocalStorage(utils.UploadDir), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	storage, err := services.InitS3Service(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Storing attachments in S3 bucket %s", cfg.AWSS3Bucket)
	return storage, nil
}

// setupRouter registers every route. auth guards everything except the health endpoints.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
	}

	api := v1.Group("", auth)
	{
		api.POST("/users", controllers.CreateUser)
		api.GET("/users", controllers.ListUsers)
		api.GET("/users/me", controllers.GetMyProfile)
		api.PUT("/users/me", controllers.UpdateMyProfile)

		api.GET("/orders", controllers.ListOrders)
		api.POST("/orders", controllers.CreateOrder)
		api.GET("/orders/generate/number", controllers.GenerateOrderNumber)
		api.GET("/orders/dashboard/stats", controllers.GetDashboardStats)
		api.GET("/orders/:id", controllers.GetOrder)
		api.PUT("/orders/:id", controllers.UpdateOrder)
		api.DELETE("/orders/:id", controllers.DeleteOrder)
		api.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
		api.GET("/orders/:id/history", controllers.GetOrderHistory)
		api.GET("/orders/:id/transitions", controllers.GetOrderTransitions)
		api.POST("/orders/:id/attachments", controllers.UploadOrderAttachment)
		api.GET("/orders/:id/attachments", controllers.ListOrderAttachments)
		api.GET("/uploads/:filename", controllers.GetUploadedFile)

		api.GET("/karigars", controllers.ListKarigars)
		api.POST("/karigars", controllers.CreateKarigar)
		api.GET("/karigars/:id", controllers.GetKarigar)
		api.GET("/processes", controllers.ListProcesses)
		api.POST("/processes", controllers.CreateProcess)
		api.GET("/designs", controllers.ListDesigns)
		api.POST("/designs", controllers.CreateDesign)

		api.GET("/issues", controllers.ListIssues)
		api.POST("/issues", controllers.CreateIssue)
		api.GET("/issues/generate/number", controllers.GenerateIssueNumber)
		api.GET("/issues/pending/by-karigar/:karigarId", controllers.GetPendingIssuesByKarigar)
		api.GET("/issues/:id", controllers.GetIssue)
		api.PUT("/issues/:id", controllers.UpdateIssue)
		api.DELETE("/issues/:id", controllers.DeleteIssue)

		api.GET("/receipts", controllers.ListReceipts)
		api.POST("/receipts", controllers.CreateReceipt)
		api.GET("/receipts/generate/number", controllers.GenerateReceiptNumber)
		api.GET("/receipts/issue/:id/summary", controllers.GetIssueReceiptSummary)
		api.GET("/receipts/:id", controllers.GetReceipt)
		api.PUT("/receipts/:id", controllers.UpdateReceipt)
		api.DELETE("/receipts/:id", controllers.DeleteReceipt)

		api.GET("/stock-register", controllers.GetStockRegister)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Jewelry ERP API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database not initialized",
			},
		})
		return
	}

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Works for both PostgreSQL and SQLite
	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
