package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// ConsumptionController records what was eaten or thrown away.
type ConsumptionController struct {
	logs  *services.ConsumptionService
	clock Clock
}

func NewConsumptionController(logs *services.ConsumptionService, clock Clock) *ConsumptionController {
	return &ConsumptionController{logs: logs, clock: clock}
}

func (c *ConsumptionController) CreateLog(ctx *gin.Context) {
	var req struct {
		PurchaseID *uint   `json:"purchase_id"`
		ItemName   string  `json:"item_name"`
		Action     string  `json:"action" binding:"required"`
		Percentage int     `json:"percentage"`
		Quantity   float64 `json:"quantity"`
		Reason     string  `json:"reason"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	now, ok := requestNow(ctx, c.clock)
	if !ok {
		return
	}

	res, err := c.logs.Create(ctx.Request.Context(), userID, services.ConsumptionInput{
		PurchaseID: req.PurchaseID,
		ItemName:   req.ItemName,
		Action:     req.Action,
		Percentage: req.Percentage,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
	}, now)
	if err != nil {
		serviceError(ctx, err, 50030, "failed to create consumption log")
		return
	}
	utils.Created(ctx, res)
}

func (c *ConsumptionController) ListLogs(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	items, total, err := c.logs.List(ctx.Request.Context(), userID, page, pageSize)
	if err != nil {
		serviceError(ctx, err, 50031, "failed to list consumption logs")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": pagination(page, pageSize, total)})
}

// Summary returns the caller's waste counters.
func (c *ConsumptionController) Summary(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	sum, err := c.logs.Summary(ctx.Request.Context(), userID)
	if err != nil {
		serviceError(ctx, err, 50032, "failed to summarise consumption logs")
		return
	}
	utils.Success(ctx, sum)
}
