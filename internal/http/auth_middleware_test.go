package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"client-vetting/internal/domain"
	"client-vetting/internal/service"
)

func newAuthRouter(jwtSvc *service.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{RequireAccessToken(jwtSvc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims, ok := requestClaims(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": claims.UserID, "tier": claims.Tier})
	})
	r.GET("/protected", handlers...)
	return r
}

func serveWithHeader(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAccessToken_AllowsValidToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute)
	token, err := jwtSvc.IssueAccessToken("u1", domain.TierPremium)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	for _, header := range []string{"Bearer " + token, "bearer   " + token + " "} {
		rec := serveWithHeader(newAuthRouter(jwtSvc), header)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %q, got %d", header, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"tier":"premium"`) {
			t.Fatalf("expected claims in context, got %s", rec.Body.String())
		}
	}
}

func TestRequireAccessToken_Rejections(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute)
	foreign, err := service.NewJWTService("other-secret", 15*time.Minute).IssueAccessToken("u1", domain.TierPro)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	cases := []struct {
		name      string
		header    string
		wantError string
		challenge string
	}{
		{name: "missing header", header: "", wantError: "missing token", challenge: `Bearer realm="client-vetting"`},
		{name: "basic scheme", header: "Basic dTE6cGFzcw==", wantError: "missing token", challenge: `Bearer realm="client-vetting"`},
		{name: "bearer without token", header: "Bearer   ", wantError: "missing token", challenge: `Bearer realm="client-vetting"`},
		{name: "foreign signature", header: "Bearer " + foreign, wantError: "invalid token", challenge: `Bearer realm="client-vetting", error="invalid_token"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveWithHeader(newAuthRouter(jwtSvc), tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.wantError) {
				t.Fatalf("expected %q, got %s", tc.wantError, rec.Body.String())
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != tc.challenge {
				t.Fatalf("expected challenge %q, got %q", tc.challenge, got)
			}
		})
	}
}

func TestRequireAccessToken_Expired(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute)
	issued := time.Now().Add(-time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		UserID:    "u1",
		Tier:      domain.TierFree,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "client-vetting",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(15 * time.Minute)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec := serveWithHeader(newAuthRouter(jwtSvc), "Bearer "+token)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "token expired") {
		t.Fatalf("expected expired token rejection, got %d %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.Contains(got, `error="invalid_token"`) {
		t.Fatalf("expected invalid_token challenge, got %q", got)
	}
}

func TestRequireAccessToken_NotConfigured(t *testing.T) {
	rec := serveWithHeader(newAuthRouter(nil), "Bearer abc")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRequireTier(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", 15*time.Minute)
	r := newAuthRouter(jwtSvc, RequireTier(domain.Tier.CanResearch, "upgrade required"))

	cases := map[domain.Tier]int{
		domain.TierFree:    http.StatusForbidden,
		domain.TierPro:     http.StatusOK,
		domain.TierPremium: http.StatusOK,
		"PREMIUM":          http.StatusOK,
		"enterprise":       http.StatusForbidden,
	}
	for tier, want := range cases {
		token, err := jwtSvc.IssueAccessToken("u1", tier)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		rec := serveWithHeader(r, "Bearer "+token)
		if rec.Code != want {
			t.Fatalf("tier %q: expected %d, got %d", tier, want, rec.Code)
		}
		if want == http.StatusForbidden && !strings.Contains(rec.Body.String(), `"tier":"free"`) {
			t.Fatalf("tier %q: expected normalized tier in body, got %s", tier, rec.Body.String())
		}
	}
}

func TestRequireTier_WithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireTier(domain.Tier.CanResearch, "upgrade required"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := serveWithHeader(r, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
