package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the symbol routes, health checks and metrics.
func NewRouter(log *zap.Logger, store SymbolStore, metrics *Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), metrics.Middleware())

	h := NewAPIHandler(log, store)

	api := r.Group("/api/v1")
	{
		api.GET("/symbols", h.ListSymbols)
		api.POST("/symbols", h.CreateSymbol)
		api.GET("/symbols/:id", h.GetSymbol)
		api.PATCH("/symbols/:id", h.UpdateSymbol)
		api.DELETE("/symbols/:id", h.DeleteSymbol)
	}

	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			log.Warn("Request failed", fields...)
			return
		}
		log.Debug("Request served", fields...)
	}
}
