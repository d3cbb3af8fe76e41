package middleware

import (
	"net/http"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/gin-gonic/gin"
)

// AdminLevel is the minimum member level allowed to administer bans
const AdminLevel = 10

// RequireAdmin checks that the authenticated user has admin level (>= 10)
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserLevel(c) < AdminLevel {
			common.V2ErrorResponse(c, http.StatusForbidden, "관리자 권한이 필요합니다", common.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
