package routes

import (
	"media-tracker-api/controllers"
	"media-tracker-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/register", controllers.Register)
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Media Tracker API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)

			// Viewing-history imports
			imports := protected.Group("/imports")
			{
				imports.POST("", controllers.UploadCSV)
				imports.GET("", controllers.GetImportHistory)
				imports.GET("/:id", controllers.GetImportStatus)
				imports.POST("/:id/cancel", controllers.CancelImport)
			}

			// Single manual entry, same pipeline as the CSV import
			protected.POST("/entries", controllers.CreateManualEntry)
		}
	}

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Route not found"})
	})
}
