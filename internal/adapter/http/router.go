package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/http/middleware"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routerConfig struct {
	authz  *middleware.Authz
	tokens *TokenHandler
	feed   gin.HandlerFunc
	log    *slog.Logger
}

type RouterOption func(*routerConfig)

// WithAuth guards print, connect and discovery routes and mounts /v1/token.
func WithAuth(a *middleware.Authz, th *TokenHandler) RouterOption {
	return func(rc *routerConfig) { rc.authz, rc.tokens = a, th }
}

// WithJobFeed mounts the websocket job feed on /ws/jobs.
func WithJobFeed(h gin.HandlerFunc) RouterOption {
	return func(rc *routerConfig) { rc.feed = h }
}

func WithLogger(l *slog.Logger) RouterOption {
	return func(rc *routerConfig) { rc.log = l }
}

func (rc *routerConfig) require(scope string) gin.HandlerFunc {
	if rc.authz == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rc.authz.Require(scope)
}

func NewRouter(h *PrinterHandler, opts ...RouterOption) *gin.Engine {
	rc := &routerConfig{}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.log == nil {
		rc.log = logging.New("http")
	}

	r := gin.New()
	r.Use(middleware.Logging(rc.log), gin.CustomRecovery(recovered), middleware.MetricsMiddleware())

	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/printers", h.Printers)
	r.GET("/queue", h.Queue)
	r.GET("/queue/:id", h.Job)
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if rc.feed != nil {
		r.GET("/ws/jobs", rc.feed)
	}
	if rc.tokens != nil {
		r.POST("/v1/token", rc.tokens.IssueToken)
	}

	admin := rc.require(middleware.ScopeAdmin)
	r.GET("/discover", admin, h.Discover)
	r.GET("/discover-printers", admin, h.Discover)
	r.POST("/discover-printers", admin, h.Discover)
	r.GET("/discover-printers/:type", admin, h.Discover)
	r.POST("/connect/*port", admin, h.ConnectPort)
	r.POST("/connect-printer", admin, h.ConnectPrinter)
	r.POST("/disconnect", admin, h.Disconnect)

	printing := rc.require(middleware.ScopePrint)
	r.POST("/print", printing, h.PrintGeneric)
	r.POST("/print/kitchen", printing, h.PrintKitchen)
	r.POST("/print/customer", printing, h.PrintCustomer)
	r.POST("/print/test", printing, h.PrintTest)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "route not found"})
	})

	return r
}

func recovered(c *gin.Context, rec any) {
	logging.From(c).Error("panic recovered", "panic", rec)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Internal server error",
		"error":   fmt.Sprint(rec),
	})
}
