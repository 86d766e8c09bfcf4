package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "fiscaldoc/docs"
	"fiscaldoc/internal/handler"
	"fiscaldoc/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health      *handler.HealthHandler
	Document    *handler.DocumentHandler
	Calculation *handler.CalculationHandler
	Payment     *handler.PaymentHandler
	Resolution  *handler.ResolutionHandler
	Series      *handler.SeriesHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(log logrus.FieldLogger, corsOrigins []string, h Handlers) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	v1.POST("/calculations", h.Calculation.Calculate)

	docs := v1.Group("/documents")
	docs.POST("", h.Document.Create)
	docs.GET("", h.Document.List)
	docs.GET("/:id", h.Document.GetByID)
	docs.PUT("/:id/lines", h.Document.UpdateLines)
	docs.DELETE("/:id", h.Document.Discard)
	docs.POST("/:id/emit", h.Document.Emit)
	docs.POST("/:id/submit", h.Document.Submit)
	docs.POST("/:id/void", h.Document.Void)
	docs.POST("/:id/corrections", h.Document.CreateCorrection)
	docs.GET("/:id/corrections", h.Document.ListCorrections)
	docs.GET("/:id/history", h.Document.History)
	docs.GET("/:id/submissions", h.Document.Submissions)
	docs.GET("/:id/qr", h.Document.QR)
	docs.GET("/:id/artifact", h.Document.Artifact)
	docs.POST("/:id/payments", h.Payment.Register)
	docs.GET("/:id/payments", h.Payment.List)

	// Authority callbacks
	v1.POST("/authority/resolutions", h.Resolution.Apply)

	series := v1.Group("/series")
	series.POST("", h.Series.Create)
	series.GET("", h.Series.List)
	series.GET("/:code", h.Series.GetByCode)
	series.PATCH("/:code", h.Series.SetActive)

	return r
}
