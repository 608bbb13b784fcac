package routes

import (
	"github.com/gin-gonic/gin"

	"bus_tracker/internal/controllers"
	"bus_tracker/internal/middleware"
)

func BusRoutes(r *gin.RouterGroup, buses *controllers.BusController, auth *middleware.Authenticator) {
	busGroup := r.Group("/buses")
	busGroup.Use(auth.RequireAuth())
	{
		busGroup.GET("", buses.ListBuses)
		busGroup.GET("/search", buses.Search)
		busGroup.GET("/stops", buses.ListStops)
		busGroup.GET("/locations", buses.Locations)
		busGroup.GET("/:busId/details", buses.Details)
		busGroup.GET("/:busId/location", buses.Location)
		busGroup.GET("/:busId/route", buses.Route)
	}
}
