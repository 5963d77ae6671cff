package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"client-vetting/internal/domain"
	"client-vetting/internal/service"
)

// PingFunc verifica una dependencia (base de datos) para /healthz.
type PingFunc func(ctx context.Context) error

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	clientH *ClientHandler,
	jwtSvc *service.JWTService,
	ping PingFunc,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", healthHandler(ping))

	clients := r.Group("/clients/:id")
	clients.GET("", clientH.GetClient)
	clients.GET("/reviews", clientH.ListReviews)
	clients.GET("/red-flags", clientH.ListRedFlags)
	clients.GET("/trust-score", clientH.GetTrustScore)

	authed := clients.Group("", RequireAccessToken(jwtSvc))
	authed.POST("/recalculate-trust-score", clientH.RecalculateTrustScore)
	authed.GET("/company-research", clientH.GetCompanyResearch)
	authed.POST("/research",
		RequireTier(domain.Tier.CanResearch, "company research requires a pro or premium subscription"),
		clientH.ResearchCompany,
	)
	authed.GET("/vetting-report", clientH.GetVettingReport)

	return r
}

func healthHandler(ping PingFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
