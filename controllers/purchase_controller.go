package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// PurchaseController manages the caller's food purchases.
type PurchaseController struct {
	purchases *services.PurchaseService
	clock     Clock
}

// NewPurchaseController creates a new PurchaseController instance.
func NewPurchaseController(purchases *services.PurchaseService, clock Clock) *PurchaseController {
	return &PurchaseController{purchases: purchases, clock: clock}
}

// CreatePurchase logs a purchase; purchased_at (YYYY-MM-DD) may be up to 7 days back.
func (p *PurchaseController) CreatePurchase(ctx *gin.Context) {
	var req struct {
		ItemName    string  `json:"item_name" binding:"required"`
		Category    string  `json:"category"`
		Barcode     string  `json:"barcode"`
		Quantity    float64 `json:"quantity"`
		Unit        string  `json:"unit"`
		Cost        float64 `json:"cost"`
		PurchasedAt string  `json:"purchased_at"`
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
	now, ok := requestNow(ctx, p.clock)
	if !ok {
		return
	}

	res, err := p.purchases.Create(ctx.Request.Context(), userID, services.PurchaseInput{
		ItemName:    req.ItemName,
		Category:    req.Category,
		Barcode:     req.Barcode,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Cost:        req.Cost,
		PurchasedOn: req.PurchasedAt,
	}, now)
	if err != nil {
		serviceError(ctx, err, 50020, "failed to create purchase")
		return
	}
	utils.Created(ctx, res)
}

// ListPurchases returns the caller's purchases, newest first.
func (p *PurchaseController) ListPurchases(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	items, total, err := p.purchases.List(ctx.Request.Context(), userID, page, pageSize)
	if err != nil {
		serviceError(ctx, err, 50021, "failed to list purchases")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": pagination(page, pageSize, total)})
}

// DeletePurchase removes one of the caller's purchases.
func (p *PurchaseController) DeletePurchase(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.purchases.Delete(ctx.Request.Context(), userID, id); err != nil {
		serviceError(ctx, err, 50022, "failed to delete purchase")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}
