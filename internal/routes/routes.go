package routes

import (
	"github.com/damoang/angple-bans/internal/handler"
	"github.com/damoang/angple-bans/internal/middleware"
	"github.com/damoang/angple-bans/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// SetupAdmin configures the admin ban API under /api/v2/admin.
// writeLimit, when non-nil, runs in front of every ban mutation.
// guards run before authentication.
func SetupAdmin(router *gin.Engine, h *handler.BanHandler, jwtManager *jwt.Manager, writeLimit gin.HandlerFunc, guards ...gin.HandlerFunc) {
	admin := router.Group("/api/v2/admin")
	admin.Use(guards...)
	admin.Use(middleware.JWTAuth(jwtManager), middleware.RequireAdmin())

	writes := []gin.HandlerFunc{}
	if writeLimit != nil {
		writes = append(writes, writeLimit)
	}
	with := func(final gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), final)
	}

	// Bans
	bans := admin.Group("/bans")
	bans.GET("", h.ListBans)
	bans.GET("/exclusions", h.Exclusions)
	bans.GET("/:id", h.GetBan)
	bans.POST("/members", with(h.BanMembers)...)
	bans.POST("/groups", with(h.BanGroup)...)
	bans.POST("/bulk-delete", with(h.BulkDelete)...)
	bans.DELETE("/:id", with(h.DeleteBan)...)

	// Member status
	members := admin.Group("/members")
	members.GET("", h.ListMembers)
	members.GET("/status", h.MembersStatus)
	members.GET("/:id/status", h.MemberStatus)

	// Group pickers
	groups := admin.Group("/groups")
	groups.GET("/ban-flags", h.GroupBanFlags)
	groups.GET("/:id/status", h.GroupStatus)
}
