package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"client-vetting/internal/repository"
	"client-vetting/internal/service"
)

// ClientHandler expone clientes, trust score, red flags, research y reportes.
type ClientHandler struct {
	logger   *zap.Logger
	clients  repository.ClientRepository
	reviews  repository.ReviewRepository
	redFlags repository.RedFlagRepository
	trust    *service.TrustScoreService
	vetting  *service.VettingService
	quota    service.ReportQuota
}

// NewClientHandler crea una instancia de ClientHandler con dependencias necesarias.
func NewClientHandler(
	logger *zap.Logger,
	clients repository.ClientRepository,
	reviews repository.ReviewRepository,
	redFlags repository.RedFlagRepository,
	trust *service.TrustScoreService,
	vetting *service.VettingService,
	quota service.ReportQuota,
) *ClientHandler {
	return &ClientHandler{
		logger:   logger,
		clients:  clients,
		reviews:  reviews,
		redFlags: redFlags,
		trust:    trust,
		vetting:  vetting,
		quota:    quota,
	}
}

// GetClient maneja GET /clients/:id.
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	client, err := h.clients.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get client failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

// ListReviews maneja GET /clients/:id/reviews.
func (h *ClientHandler) ListReviews(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if !h.ensureClient(c, id) {
		return
	}
	reviews, err := h.reviews.ListByClientID(ctx, id)
	if err != nil {
		h.writeError(c, "list reviews failed", err)
		return
	}
	if reviews == nil {
		c.JSON(http.StatusOK, gin.H{"reviews": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// ListRedFlags maneja GET /clients/:id/red-flags.
func (h *ClientHandler) ListRedFlags(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if !h.ensureClient(c, id) {
		return
	}
	flags, err := h.redFlags.ListActiveByClientID(ctx, id)
	if err != nil {
		h.writeError(c, "list red flags failed", err)
		return
	}
	if flags == nil {
		c.JSON(http.StatusOK, gin.H{"red_flags": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"red_flags": flags})
}

// GetTrustScore maneja GET /clients/:id/trust-score.
func (h *ClientHandler) GetTrustScore(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	summary, err := h.trust.Summary(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "trust score summary failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RecalculateTrustScore maneja POST /clients/:id/recalculate-trust-score.
func (h *ClientHandler) RecalculateTrustScore(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	client, err := h.trust.Recalculate(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "recalculate trust score failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"client_id":   client.ID,
		"trust_score": client.TrustScore,
		"updated_at":  client.TrustScoreUpdatedAt,
	})
}

// GetCompanyResearch maneja GET /clients/:id/company-research.
func (h *ClientHandler) GetCompanyResearch(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	research, err := h.vetting.GetCompanyResearch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "company research not found"})
			return
		}
		h.writeError(c, "get company research failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"company_research": research})
}

// ResearchCompany maneja POST /clients/:id/research. El router lo limita a pro y premium.
func (h *ClientHandler) ResearchCompany(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	research, err := h.vetting.PerformCompanyResearch(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "company research failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"company_research": research})
}

// GetVettingReport maneja GET /clients/:id/vetting-report.
func (h *ClientHandler) GetVettingReport(c *gin.Context) {
	claims, ok := requestClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	id, ok := h.clientID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if !h.ensureClient(c, id) {
		return
	}
	if err := service.AuthorizeReport(ctx, h.quota, claims.UserID, claims.Tier); err != nil {
		h.writeError(c, "vetting report quota", err)
		return
	}
	report, err := h.vetting.GenerateVettingReport(ctx, id)
	if err != nil {
		service.ReleaseReport(context.WithoutCancel(ctx), h.quota, claims.UserID, claims.Tier)
		h.writeError(c, "generate vetting report failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// clientID valida que el parametro sea un UUID; si no, responde 404.
func (h *ClientHandler) clientID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return "", false
	}
	return id, true
}

func (h *ClientHandler) ensureClient(c *gin.Context, id string) bool {
	if _, err := h.clients.GetByID(c.Request.Context(), id); err != nil {
		h.writeError(c, "get client failed", err)
		return false
	}
	return true
}

func (h *ClientHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrClientNotFound), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
	case errors.Is(err, service.ErrMissingCompanyName):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "client has no company name"})
	case errors.Is(err, service.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "monthly vetting report limit reached, upgrade to pro for unlimited reports"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
