package routes

import (
	"github.com/gin-gonic/gin"

	"bus_tracker/internal/controllers"
	"bus_tracker/internal/middleware"
)

func NotificationRoutes(r *gin.RouterGroup, notifications *controllers.NotificationController, auth *middleware.Authenticator) {
	r.GET("/notifications", auth.RequireAuth(), notifications.List)
}

func ReportRoutes(r *gin.RouterGroup, reports *controllers.ReportController, auth *middleware.Authenticator) {
	reportGroup := r.Group("/reports")
	reportGroup.Use(auth.RequireAuth())
	{
		reportGroup.POST("", reports.Create)
		reportGroup.GET("/:id", reports.Get)
	}
}

func ChatRoutes(r *gin.RouterGroup, chat *controllers.ChatController, auth *middleware.Authenticator) {
	chatGroup := r.Group("/chat")
	chatGroup.Use(auth.RequireAuth())
	{
		chatGroup.POST("/save", chat.Save)
		chatGroup.GET("/history", chat.History)
		chatGroup.DELETE("/history", chat.Clear)
	}
}
