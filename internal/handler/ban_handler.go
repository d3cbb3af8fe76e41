package handler

import (
	"net/http"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/middleware"
	"github.com/damoang/angple-bans/internal/service"
	"github.com/damoang/angple-bans/pkg/ginutil"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var banValidator = validator.New()

// BanHandler handles the admin ban API
type BanHandler struct {
	admin  service.BanAdminService
	status service.StatusService
	filter service.SelectionFilterService
}

// NewBanHandler creates a new BanHandler
func NewBanHandler(admin service.BanAdminService, status service.StatusService, filter service.SelectionFilterService) *BanHandler {
	return &BanHandler{admin: admin, status: status, filter: filter}
}

// ListBans handles GET /api/v2/admin/bans
func (h *BanHandler) ListBans(c *gin.Context) {
	kind, err := domain.ParseScopeKind(c.Query("scope_kind"))
	if err != nil {
		common.V2FromError(c, err)
		return
	}

	page, err := h.admin.ListBans(c.Request.Context(), domain.BanListFilter{
		ScopeKind:    kind,
		ExactGroupID: c.Query("group_id"),
		FreeText:     ginutil.QueryFirst(c, "q", "keyword"),
		EmailDomain:  c.Query("domain"),
		Page:         ginutil.QueryInt(c, "page", 1),
		PageSize:     ginutil.QueryInt(c, "page_size", 0),
	})
	if err != nil {
		common.V2FromError(c, err)
		return
	}

	common.V2SuccessWithMeta(c, page, common.NewV2Meta(page.Page, page.PageSize, page.Total))
}

// GetBan handles GET /api/v2/admin/bans/:id
func (h *BanHandler) GetBan(c *gin.Context) {
	ban, err := h.admin.GetBan(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.V2FromError(c, err)
		return
	}
	common.V2Success(c, ban)
}

// BanMembers handles POST /api/v2/admin/bans/members
func (h *BanHandler) BanMembers(c *gin.Context) {
	var req domain.BanMembersRequest
	if !bindAndValidate(c, &req) {
		return
	}

	duration, err := domain.ParseDurationSpec(req.Duration, req.EndAt)
	if err != nil {
		common.V2FromError(c, err)
		return
	}

	result, err := h.admin.BanMembers(c.Request.Context(), req.MemberIDs, req.Reason, duration, middleware.GetUserID(c))
	if err != nil {
		if result != nil {
			// partial failure: the caller keeps its selection and retries the failed ids
			common.V2ErrorWithDetails(c, http.StatusInternalServerError, err.Error(), result)
			return
		}
		common.V2FromError(c, err)
		return
	}

	common.V2Created(c, result)
}

// BanGroup handles POST /api/v2/admin/bans/groups
func (h *BanHandler) BanGroup(c *gin.Context) {
	var req domain.BanGroupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	duration, err := domain.ParseDurationSpec(req.Duration, req.EndAt)
	if err != nil {
		common.V2FromError(c, err)
		return
	}

	ban, err := h.admin.BanGroup(c.Request.Context(), req.GroupID, req.Reason, duration, middleware.GetUserID(c))
	if err != nil {
		common.V2FromError(c, err)
		return
	}

	common.V2Created(c, ban)
}

// DeleteBan handles DELETE /api/v2/admin/bans/:id
func (h *BanHandler) DeleteBan(c *gin.Context) {
	if _, err := h.admin.Unban(c.Request.Context(), c.Param("id")); err != nil {
		common.V2FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkDelete handles POST /api/v2/admin/bans/bulk-delete
func (h *BanHandler) BulkDelete(c *gin.Context) {
	var req domain.BulkDeleteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.admin.UnbanMany(c.Request.Context(), req.IDs)
	if err != nil {
		if result != nil {
			common.V2ErrorWithDetails(c, http.StatusInternalServerError, err.Error(), result)
			return
		}
		common.V2FromError(c, err)
		return
	}

	common.V2Success(c, result)
}

// Exclusions handles GET /api/v2/admin/bans/exclusions
func (h *BanHandler) Exclusions(c *gin.Context) {
	kind, err := domain.ParseScopeKind(c.Query("scope_kind"))
	if err != nil {
		common.V2FromError(c, err)
		return
	}

	set, err := h.filter.ComputeActiveMemberExclusionSet(c.Request.Context(), kind)
	if err != nil {
		common.V2FromError(c, err)
		return
	}

	common.V2Success(c, gin.H{
		"scope_kind": kind,
		"ids":        service.SortedIDs(set),
	})
}

// ListMembers handles GET /api/v2/admin/members
func (h *BanHandler) ListMembers(c *gin.Context) {
	items, meta, err := h.status.MembersWithStatus(
		c.Request.Context(),
		ginutil.QueryInt(c, "page", 1),
		ginutil.QueryInt(c, "page_size", 0),
		ginutil.QueryFirst(c, "q", "keyword"),
	)
	if err != nil {
		common.V2FromError(c, err)
		return
	}
	common.V2SuccessWithMeta(c, items, meta)
}

// MembersStatus handles GET /api/v2/admin/members/status?ids=a,b
func (h *BanHandler) MembersStatus(c *gin.Context) {
	statuses, err := h.status.MembersStatus(c.Request.Context(), ginutil.QueryList(c, "ids"))
	if err != nil {
		common.V2FromError(c, err)
		return
	}
	common.V2Success(c, statuses)
}

// MemberStatus handles GET /api/v2/admin/members/:id/status
func (h *BanHandler) MemberStatus(c *gin.Context) {
	status, err := h.status.MemberStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.V2FromError(c, err)
		return
	}
	common.V2Success(c, status)
}

// GroupBanFlags handles GET /api/v2/admin/groups/ban-flags
func (h *BanHandler) GroupBanFlags(c *gin.Context) {
	flags, err := h.filter.ListGroupsWithBanFlag(c.Request.Context())
	if err != nil {
		common.V2FromError(c, err)
		return
	}
	common.V2Success(c, flags)
}

// GroupStatus handles GET /api/v2/admin/groups/:id/status
func (h *BanHandler) GroupStatus(c *gin.Context) {
	groupID := c.Param("id")
	banned, err := h.filter.IsGroupBanned(c.Request.Context(), groupID)
	if err != nil {
		common.V2FromError(c, err)
		return
	}
	common.V2Success(c, gin.H{
		"group_id":            groupID,
		"is_currently_banned": banned,
	})
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
// On failure it writes a 400 with reason invalid_body and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.V2FromError(c, common.NewRequestError(common.ReasonInvalidBody, "invalid request body: "+err.Error()))
		return false
	}
	if err := banValidator.Struct(req); err != nil {
		common.V2FromError(c, common.NewRequestError(common.ReasonInvalidBody, err.Error()))
		return false
	}
	return true
}
