package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/api/handlers"
	"github.com/yourusername/sonova-go/api/middleware"
	"github.com/yourusername/sonova-go/internal/app"
	"github.com/yourusername/sonova-go/internal/domain"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	Resolver  app.MediaResolver
	Catalog   handlers.CatalogProvider
	Proxy     handlers.StreamOpener
	Worker    domain.ExtractionWorker
	Links     *app.LinkBuilder
	Gatherer  prometheus.Gatherer // Optional, enables /metrics
	RateLimit domain.RateLimitConfig
	Logger    *zap.Logger
	AccessLog *zap.Logger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	accessLog := deps.AccessLog
	if accessLog == nil {
		accessLog = log
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(accessLog))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Worker)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	if deps.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(deps.RateLimit.RequestsPerSecond, deps.RateLimit.Burst, log))
	}
	{
		downloadHandler := handlers.NewDownloadHandler(deps.Resolver, deps.Proxy, deps.Links, log)
		streamsHandler := handlers.NewStreamsHandler(deps.Catalog, log)
		proxyHandler := handlers.NewProxyHandler(deps.Proxy, log)

		youtube := v1.Group("/youtube")
		{
			youtube.GET("/download", downloadHandler.Download)
			youtube.GET("/streams", streamsHandler.Streams)
			youtube.GET("/proxy", proxyHandler.Stream)
			youtube.HEAD("/proxy", proxyHandler.Stream)
			youtube.OPTIONS("/proxy", proxyHandler.Options)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "code": "not_found", "retryable": false})
	})

	return router
}
