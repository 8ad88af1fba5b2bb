package routes

import (
	"conference-abstracts-api/controllers"
	"conference-abstracts-api/middleware"
	"conference-abstracts-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	SetupRoutesWithAuth(router, middleware.AuthMiddleware())
}

// SetupRoutesWithAuth registers the API using auth as the authentication middleware.
func SetupRoutesWithAuth(router *gin.Engine, auth gin.HandlerFunc) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Conference Abstracts API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(auth)
		{
			abstracts := protected.Group("/abstracts")
			{
				abstracts.GET("/settings/public", controllers.GetPublicAbstractSettings)
				abstracts.POST("", controllers.CreateAbstract)
				abstracts.GET("", controllers.GetMyAbstracts)
				abstracts.GET("/:code", controllers.GetAbstract)
				abstracts.POST("/:code/file", controllers.UploadAbstractFile)
				abstracts.POST("/:code/final", controllers.SubmitFinalAbstract)
			}

			// Reviewers and admins
			reviews := protected.Group("/reviews")
			reviews.Use(middleware.RequireRole(models.RoleReviewer, models.RoleAdmin))
			{
				reviews.GET("/assigned", controllers.GetAssignedAbstracts)
				reviews.POST("", controllers.SubmitReview)
			}

			// Admin only
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/abstracts", controllers.AdminListAbstracts)
				admin.GET("/abstracts/settings", controllers.AdminGetAbstractSettings)
				admin.PUT("/abstracts/settings", controllers.AdminUpdateAbstractSettings)
				admin.GET("/abstracts/assignment-rules", controllers.AdminGetAssignmentRules)
				admin.PUT("/abstracts/assignment-rules", controllers.AdminUpdateAssignmentRules)
				admin.GET("/abstracts/:code/reviews", controllers.AdminGetAbstractReviews)
				admin.GET("/abstracts/:code/history", controllers.AdminGetAbstractHistory)
				admin.POST("/abstracts/:code/decision", controllers.AdminDecideAbstract)

				admin.GET("/reviewers", controllers.AdminListReviewers)
				admin.PUT("/reviewers/:user_id", controllers.AdminUpsertReviewer)
			}
		}
	}
}
