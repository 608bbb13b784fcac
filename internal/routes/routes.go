package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bus_tracker/internal/controllers"
	"bus_tracker/internal/metrics"
	"bus_tracker/internal/middleware"
	"bus_tracker/internal/realtime"
)

// Deps is everything the router needs.
type Deps struct {
	AccessLog      io.Writer
	NewRelic       *newrelic.Application
	Auth           *middleware.Authenticator
	LoginLimiter   *middleware.IPRateLimiter
	Hub            *realtime.Hub
	Health         controllers.Pinger
	UploadDir      string
	MaxUploadBytes int64

	Users         *controllers.AuthController
	Buses         *controllers.BusController
	Notifications *controllers.NotificationController
	Reports       *controllers.ReportController
	Chat          *controllers.ChatController
}

// SetupRouter builds the engine. REST endpoints live under /api; the
// websocket, health, metrics and uploaded files are served from the root.
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	logOpts := []ginlog.Option{
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/healthz", "/metrics"}),
	}
	if d.AccessLog != nil {
		logOpts = append(logOpts, ginlog.WithWriter(d.AccessLog))
	}
	r.Use(ginlog.SetLogger(logOpts...))

	if d.NewRelic != nil {
		r.Use(nrgin.Middleware(d.NewRelic))
	}
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS())

	if d.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = d.MaxUploadBytes
	}

	r.GET("/healthz", controllers.Healthz(d.Health))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	if d.UploadDir != "" {
		r.StaticFS("/uploads", http.Dir(d.UploadDir))
	}
	WebSocketRoutes(r, d.Hub)

	api := r.Group("/api")
	AuthRoutes(api, d.Users, d.Auth, d.LoginLimiter)
	BusRoutes(api, d.Buses, d.Auth)
	NotificationRoutes(api, d.Notifications, d.Auth)
	ReportRoutes(api, d.Reports, d.Auth)
	ChatRoutes(api, d.Chat, d.Auth)

	return r
}
