package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// ProductController resolves barcodes against Open Food Facts.
type ProductController struct {
	lookup services.ProductLookup
}

func NewProductController(lookup services.ProductLookup) *ProductController {
	return &ProductController{lookup: lookup}
}

func (p *ProductController) Lookup(ctx *gin.Context) {
	product, err := p.lookup.Lookup(ctx.Request.Context(), strings.TrimSpace(ctx.Param("barcode")))
	if err != nil {
		serviceError(ctx, err, 50070, "failed to look up product")
		return
	}
	utils.Success(ctx, product)
}
