package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/middleware"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// Clock returns the current instant; tests substitute a fixed one.
type Clock func() time.Time

// TimezoneHeader lets clients state their IANA zone when no tz query is given.
const TimezoneHeader = "X-Timezone"

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func pagination(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	v, ok := value.(uint)
	return v, ok && v != 0
}

// requestNow is the service clock in the caller's zone: the tz query parameter, then the
// X-Timezone header, then the configured default.
func requestNow(ctx *gin.Context, clock Clock) (time.Time, bool) {
	tz := strings.TrimSpace(ctx.Query("tz"))
	if tz == "" {
		tz = strings.TrimSpace(ctx.GetHeader(TimezoneHeader))
	}
	loc := config.Get().Location()
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40011, "unknown time zone")
			return time.Time{}, false
		}
		loc = l
	}
	return clock().In(loc), true
}

// targetUserID resolves the user a read refers to: raw if given, else the caller. Only
// admins may read other users.
func targetUserID(ctx *gin.Context, raw string) (uint, bool) {
	self, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return 0, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return self, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid user id")
		return 0, false
	}
	if uint(id) != self && !middleware.IsAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40302, "cannot read another user's data")
		return 0, false
	}
	return uint(id), true
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid id")
		return 0, false
	}
	return uint(id), true
}

var validationErrors = []error{
	services.ErrInvalidUsername,
	services.ErrInvalidPassword,
	services.ErrPasswordMismatch,
	services.ErrTermsNotAccepted,
	services.ErrInvalidStage,
	services.ErrNoAnswers,
	services.ErrUnknownQuestion,
	services.ErrInvalidAnswer,
	services.ErrItemNameRequired,
	services.ErrInvalidQuantity,
	services.ErrInvalidCost,
	services.ErrInvalidDate,
	services.ErrPurchaseDateOutOfRange,
	services.ErrInvalidAction,
	services.ErrInvalidPercentage,
	services.ErrInvalidBarcode,
}

// serviceError maps service errors onto the response envelope. Anything unrecognised is a
// persistence failure and is logged with the given code.
func serviceError(ctx *gin.Context, err error, code int, message string) {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, services.ErrInvalidUserID):
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid user id")
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, services.ErrPurchaseNotFound):
		utils.Error(ctx, http.StatusNotFound, 40402, "purchase not found")
	case errors.Is(err, services.ErrProductNotFound):
		utils.Error(ctx, http.StatusNotFound, 40403, "product not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
	case errors.Is(err, services.ErrUsernameTaken):
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
	case errors.Is(err, services.ErrStreakContention):
		utils.Error(ctx, http.StatusConflict, 40902, "streak is being updated, retry")
	case errors.Is(err, services.ErrInitialSurveyRequired):
		utils.Error(ctx, http.StatusPreconditionRequired, middleware.CodeInitialSurveyRequired, "initial survey required")
	case errors.Is(err, services.ErrUpstreamUnavailable):
		utils.Error(ctx, http.StatusBadGateway, 50201, "product database unavailable")
	default:
		utils.Sugar.Errorw(message, "error", err, "path", ctx.FullPath())
		utils.Error(ctx, http.StatusInternalServerError, code, message)
	}
}
