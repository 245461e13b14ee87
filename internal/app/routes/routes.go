package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/eventhub/internal/app/controllers"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/middleware"
)

// Controllers groups the HTTP handlers mounted by SetupRouter
type Controllers struct {
	User         *controllers.UserController
	Event        *controllers.EventController
	Notification *controllers.NotificationController
	Health       *controllers.HealthController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctrl Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.NoRoute(middleware.NoRoute)

	// API version group
	v1 := router.Group("/api/v1")
	v1.GET("/health", ctrl.Health.Health)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
	{
		admin.POST("/users", ctrl.User.CreateUser)
		admin.DELETE("/users/:id", ctrl.User.DeleteUser)
	}

	authenticated.GET("/users/:id", ctrl.User.GetUser)

	events := authenticated.Group("/events")
	{
		events.GET("", ctrl.Event.ListEvents)
		events.GET("/:id", ctrl.Event.GetEvent)
		events.POST("", ctrl.Event.CreateEvent)
		events.PUT("/:id", ctrl.Event.UpdateEvent)
		events.DELETE("/:id", ctrl.Event.DeleteEvent)

		events.POST("/:id/registrations", ctrl.Event.Register)
		events.DELETE("/:id/registrations", ctrl.Event.Unregister)
		events.POST("/:id/feedback", ctrl.Event.SubmitFeedback)
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", ctrl.Notification.ListNotifications)
		notifications.GET("/unread-count", ctrl.Notification.UnreadCount)
		notifications.PUT("/read-all", ctrl.Notification.MarkAllRead)
		notifications.PUT("/:id/read", ctrl.Notification.MarkRead)
		notifications.DELETE("/:id", ctrl.Notification.DeleteNotification)
	}
}
