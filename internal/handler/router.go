package handler

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/middleware"
)

// allowedOrigins là hai origin cố định được phép gọi backend: domain chạy
// mini app và dev server local.
var allowedOrigins = []string{"https://h5.zdn.vn", "http://localhost:3000"}

func NewRouter(env string, h *OrderHandler, log *slog.Logger) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logging(log), middleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/", h.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/products", mockJSON("products.json"))
	r.GET("/categories", mockJSON("categories.json"))
	r.GET("/banners", mockJSON("banners.json"))
	r.GET("/stations", mockJSON("stations.json"))

	r.GET("/orders", h.ListOrders)
	r.POST("/orders", h.CreateOrder)
	r.POST("/mac", h.CreateMac)
	r.POST("/link", h.LinkOrder)
	r.POST("/callback", h.Callback)

	return r
}
