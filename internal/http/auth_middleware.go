package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"client-vetting/internal/domain"
	"client-vetting/internal/service"
)

const (
	claimsKey    = "vetting_claims"
	bearerScheme = "Bearer"
	authRealm    = "client-vetting"
)

// RequireAccessToken exige un access token del freelancer y deja sus claims
// (con el tier ya normalizado) en el contexto.
func RequireAccessToken(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			return
		}
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "", "missing token")
			return
		}
		claims, err := jwtSvc.ParseAccessToken(token)
		switch {
		case errors.Is(err, service.ErrJWTExpired):
			unauthorized(c, "invalid_token", "token expired")
			return
		case err != nil:
			unauthorized(c, "invalid_token", "invalid token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireTier corta con 403 cuando el plan del token no habilita la ruta.
// Va despues de RequireAccessToken.
func RequireTier(allowed func(domain.Tier) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := requestClaims(c)
		if !ok {
			unauthorized(c, "", "missing token")
			return
		}
		if !allowed(claims.Tier) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message, "tier": claims.Tier})
			return
		}
		c.Next()
	}
}

// bearerToken acepta el esquema sin distinguir mayusculas.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, code, message string) {
	challenge := bearerScheme + ` realm="` + authRealm + `"`
	if code != "" {
		challenge += `, error="` + code + `"`
	}
	c.Header("WWW-Authenticate", challenge)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func requestClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(claimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
