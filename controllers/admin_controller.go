package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/middleware"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// AdminController provides dashboard statistics and user management.
type AdminController struct {
	admin *services.AdminService
	clock Clock
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(admin *services.AdminService, clock Clock) *AdminController {
	return &AdminController{admin: admin, clock: clock}
}

// GetStats returns aggregate counters; "today" follows the caller's zone.
func (a *AdminController) GetStats(ctx *gin.Context) {
	now, ok := requestNow(ctx, a.clock)
	if !ok {
		return
	}
	st, err := a.admin.Stats(ctx.Request.Context(), now)
	if err != nil {
		serviceError(ctx, err, 50080, "failed to load stats")
		return
	}
	utils.Success(ctx, st)
}

// WasteTrend returns per-day consumed/wasted counts for the last ?days= days.
func (a *AdminController) WasteTrend(ctx *gin.Context) {
	days, _ := strconv.Atoi(ctx.Query("days"))
	now, ok := requestNow(ctx, a.clock)
	if !ok {
		return
	}
	points, err := a.admin.WasteTrend(ctx.Request.Context(), days, now)
	if err != nil {
		serviceError(ctx, err, 50081, "failed to load waste trend")
		return
	}
	utils.Success(ctx, gin.H{"items": points})
}

// ListUsers returns paginated users.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	users, total, err := a.admin.ListUsers(ctx.Request.Context(), page, pageSize)
	if err != nil {
		serviceError(ctx, err, 50082, "failed to list users")
		return
	}
	items := make([]gin.H, 0, len(users))
	for _, u := range users {
		items = append(items, userResponse(u))
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": pagination(page, pageSize, total)})
}

// DeleteUser removes a user and all their data.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := a.admin.DeleteUser(ctx.Request.Context(), id); err != nil {
		serviceError(ctx, err, 50083, "failed to delete user")
		return
	}
	utils.Sugar.Infow("user deleted by admin", "user_id", id, "admin", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}
