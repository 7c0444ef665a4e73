// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ClockZinc/STAR-ENGINE/internal/config"
	"github.com/ClockZinc/STAR-ENGINE/internal/handlers"
	"github.com/ClockZinc/STAR-ENGINE/internal/middleware"
	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/services"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Services
	notificationService := services.NewNotificationService(db)
	storageService, _ := services.NewStorageService(cfg)

	authService := services.NewAuthService(db, cfg)
	assetService := services.NewAssetService(db, storageService)
	workflowService := services.NewWorkflowService(db, notificationService)
	licenseService := services.NewLicenseService(db, notificationService)
	transactionService := services.NewTransactionService(db, notificationService)
	paymentService := services.NewPaymentService(cfg, transactionService)
	analyticsService := services.NewAnalyticsService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	assetHandler := handlers.NewAssetHandler(assetService, storageService)
	workflowHandler := handlers.NewWorkflowHandler(workflowService)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, paymentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		assets := v1.Group("/assets")
		assets.Use(middleware.AuthRequired())
		{
			assets.GET("", assetHandler.GetAssets)
			assets.POST("", middleware.RoleRequired(models.RoleVolunteer), assetHandler.CreateAsset)
			assets.POST("/upload", middleware.UploadRateLimit(), assetHandler.UploadMedia)
			assets.GET("/:id", assetHandler.GetAsset)
			assets.PUT("/:id", assetHandler.UpdateAsset)
			assets.DELETE("/:id", middleware.AdminRequired(), assetHandler.DeleteAsset)
		}

		workflow := v1.Group("/workflow")
		workflow.Use(middleware.AuthRequired())
		{
			workflow.GET("/stats", workflowHandler.GetWorkflowStats)
			workflow.GET("/assets/:id/status", workflowHandler.GetAssetStatus)
			workflow.POST("/assets/:id/transition", workflowHandler.Transition)
			workflow.POST("/assets/:id/freeze", workflowHandler.FreezeAsset)
			workflow.POST("/assets/:id/unfreeze", workflowHandler.UnfreezeAsset)
			workflow.POST("/batch/transition", workflowHandler.BatchTransition)
			workflow.GET("/assets/:id/history", workflowHandler.GetAuditHistory)
		}

		licenses := v1.Group("/licenses")
		licenses.Use(middleware.AuthRequired())
		{
			licenses.GET("", licenseHandler.GetLicenses)
			licenses.POST("", middleware.RoleRequired(models.RoleLawyer, models.RoleMerchant), licenseHandler.CreateLicense)
			licenses.GET("/expiring", licenseHandler.GetExpiringLicenses)
			licenses.GET("/stats", licenseHandler.GetLicenseStats)
			licenses.GET("/:id", licenseHandler.GetLicense)
			licenses.PUT("/:id", licenseHandler.UpdateLicense)
			licenses.POST("/:id/sign", middleware.RoleRequired(models.RoleLawyer), licenseHandler.SignLicense)
			licenses.POST("/:id/freeze", middleware.AdminRequired(), licenseHandler.FreezeLicense)
			licenses.POST("/:id/unfreeze", middleware.AdminRequired(), licenseHandler.UnfreezeLicense)
			licenses.POST("/:id/terminate", middleware.RoleRequired(models.RoleLawyer), licenseHandler.TerminateLicense)
			licenses.DELETE("/:id", licenseHandler.DeleteLicense)
		}

		transactions := v1.Group("/transactions")
		transactions.Use(middleware.AuthRequired())
		{
			transactions.GET("", transactionHandler.GetTransactions)
			transactions.POST("", transactionHandler.CreateTransaction)
			transactions.POST("/license-fee", transactionHandler.CreateLicenseFee)
			transactions.POST("/royalty", transactionHandler.CreateRoyalty)
			transactions.GET("/pending-settlements", transactionHandler.GetPendingSettlements)
			transactions.GET("/stats", transactionHandler.GetTransactionStats)
			transactions.POST("/confirm-payment", transactionHandler.ConfirmPayment)
			transactions.GET("/:id", transactionHandler.GetTransaction)
			transactions.POST("/:id/complete", middleware.AdminRequired(), transactionHandler.CompletePayment)
			transactions.POST("/:id/refund", middleware.AdminRequired(), transactionHandler.RefundTransaction)
			transactions.POST("/:id/payment-intent", transactionHandler.CreatePaymentIntent)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllAsRead)
			notifications.POST("/:id/read", notificationHandler.MarkAsRead)
			notifications.POST("/:id/archive", notificationHandler.Archive)
		}

		analytics := v1.Group("/analytics")
		analytics.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			analytics.GET("/overview", analyticsHandler.GetOverview)
			analytics.GET("/assets/status-distribution", analyticsHandler.GetStatusDistribution)
			analytics.GET("/assets/creation-trend", analyticsHandler.GetCreationTrend)
		}
	}

	return r
}
