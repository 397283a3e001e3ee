package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/configs"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ScopePrint = "printer.print"
	ScopeAdmin = "printer.admin"
)

type Authz struct {
	secret   []byte
	issuer   string
	audience string
}

func NewAuthz(cfg configs.Config) *Authz {
	return &Authz{
		secret:   []byte(cfg.Security.JWTSecret),
		issuer:   cfg.Security.Issuer,
		audience: cfg.Security.Audience,
	}
}

// Require checks the bearer JWT and ensures every required scope is granted.
func (a *Authz) Require(requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return a.secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(a.issuer),
			jwt.WithAudience(a.audience),
			jwt.WithLeeway(30*time.Second), // till clocks drift
		)
		if err != nil || !token.Valid {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		if !hasAll(extractScopes(claims), requiredScopes) {
			forbidden(c, "insufficient_scope", "missing required scope")
			return
		}

		if sub, _ := claims.GetSubject(); sub != "" {
			c.Set("client_id", sub)
		}
		c.Next()
	}
}

// extractScopes reads the space-separated OAuth2 "scope" claim.
func extractScopes(claims jwt.MapClaims) map[string]struct{} {
	out := map[string]struct{}{}
	s, _ := claims["scope"].(string)
	for _, v := range strings.Fields(s) {
		out[v] = struct{}{}
	}
	return out
}

func hasAll(have map[string]struct{}, req []string) bool {
	for _, r := range req {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": desc, "error": code})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": desc, "error": code})
}
