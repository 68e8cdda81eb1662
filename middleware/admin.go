package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/utils"
)

// IsAdmin reports whether the authenticated caller is listed in AdminUsernames.
func IsAdmin(ctx *gin.Context) bool {
	uname, _ := ctx.Get(ContextUsernameKey)
	s, _ := uname.(string)
	return s != "" && config.Get().IsAdmin(s)
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsAdmin(ctx) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
