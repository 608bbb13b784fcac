package routes

import (
	"github.com/gin-gonic/gin"

	"bus_tracker/internal/controllers"
	"bus_tracker/internal/middleware"
)

func AuthRoutes(r *gin.RouterGroup, users *controllers.AuthController, auth *middleware.Authenticator, limiter *middleware.IPRateLimiter) {
	authGroup := r.Group("/auth")
	{
		if limiter != nil {
			authGroup.POST("/login", limiter.RateLimit(), users.Login)
		} else {
			authGroup.POST("/login", users.Login)
		}
	}

	usersGroup := r.Group("/users")
	usersGroup.Use(auth.RequireAuth())
	{
		usersGroup.GET("/profile", users.Profile)
	}
}
