package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth
const (
	ctxUserID   = "userID"
	ctxNickname = "nickname"
	ctxLevel    = "level"
)

// JWTAuth JWT authentication middleware
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.V2ErrorResponse(c, http.StatusUnauthorized, "Missing authorization header", nil)
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.V2ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization header format", nil)
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.V2ErrorResponse(c, http.StatusUnauthorized, "Token expired", err)
			} else {
				common.V2ErrorResponse(c, http.StatusUnauthorized, "Invalid token", err)
			}
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxNickname, claims.Nickname)
		c.Set(ctxLevel, claims.Level)

		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return ""
	}
	if str, ok := userID.(string); ok {
		return str
	}
	return ""
}

// GetUserLevel extracts user level from context
func GetUserLevel(c *gin.Context) int {
	level, exists := c.Get(ctxLevel)
	if !exists {
		return 0
	}
	if lvl, ok := level.(int); ok {
		return lvl
	}
	return 0
}
