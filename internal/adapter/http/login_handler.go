package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/configs"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type TokenHandler struct {
	cfg configs.Config
	now func() time.Time
}

func NewTokenHandler(cfg configs.Config) *TokenHandler {
	return &TokenHandler{cfg: cfg, now: time.Now}
}

type tokenReq struct {
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	Scope        string `form:"scope" json:"scope"`
}

// POST /v1/token (form or JSON)
// Accepts: client_id, client_secret
// Optional: scope (space-separated subset of the client's scopes)
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBind(&req); err != nil || req.ClientID == "" || req.ClientSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid client", "error": "invalid_client"})
		return
	}

	cl, ok := h.cfg.Client(req.ClientID)
	if !ok || subtle.ConstantTimeCompare([]byte(req.ClientSecret), []byte(cl.Secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid client", "error": "invalid_client"})
		return
	}

	scopes := cl.Scopes
	if req.Scope != "" {
		var ok bool
		if scopes, ok = narrow(cl.Scopes, strings.Fields(req.Scope)); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "scope not granted to client", "error": "invalid_scope"})
			return
		}
	}

	ttl := h.cfg.Security.TTL
	now := h.now()
	claims := jwt.MapClaims{
		"iss":   h.cfg.Security.Issuer,
		"aud":   h.cfg.Security.Audience,
		"sub":   cl.ID,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"scope": strings.Join(scopes, " "),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.Security.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not sign token", "error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int64(ttl.Seconds()),
		"scope":        strings.Join(scopes, " "),
	})
}

// narrow returns want if every entry is in granted.
func narrow(granted, want []string) ([]string, bool) {
	have := make(map[string]bool, len(granted))
	for _, g := range granted {
		have[g] = true
	}
	for _, w := range want {
		if !have[w] {
			return nil, false
		}
	}
	return want, true
}
