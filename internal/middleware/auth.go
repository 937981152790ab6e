package middleware

import (
	"net/http"
	"strings"

	"gearrent/internal/pkg/jwt"
	"gearrent/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth validates the Bearer token and stores user_id and role in the
// context. Websocket upgrades cannot set headers from browsers, so a
// ?token= query parameter is accepted on GET requests carrying an Upgrade header.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, msg := bearerToken(c)
		if tokenStr == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", msg)
			return
		}

		claims, err := jwtService.ValidateToken(tokenStr)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string) {
	h := c.GetHeader("Authorization")
	if h == "" {
		if c.Request.Method == http.MethodGet && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			if t := c.Query("token"); t != "" {
				return t, ""
			}
		}
		return "", "Missing Authorization header"
	}
	if !strings.HasPrefix(h, "Bearer ") {
		return "", "Invalid Authorization header"
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if tokenStr == "" {
		return "", "Empty token"
	}
	return tokenStr, ""
}
