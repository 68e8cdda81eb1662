package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/utils"
)

const (
	CodeInitialSurveyRequired = 42801
	CodeWeeklySurveyRequired  = 42802
)

// SurveyStatusChecker evaluates a user's survey cadence.
type SurveyStatusChecker interface {
	Status(ctx context.Context, userID uint, now time.Time) (engine.SurveyStatus, error)
}

// SurveyGate refuses feature routes while the initial survey is outstanding or the weekly
// survey is mandatory. Lookup failures let the request through.
func SurveyGate(checker SurveyStatusChecker, clock func() time.Time) gin.HandlerFunc {
	if clock == nil {
		clock = time.Now
	}
	return func(ctx *gin.Context) {
		v, ok := ctx.Get(ContextUserIDKey)
		userID, _ := v.(uint)
		if !ok || userID == 0 {
			ctx.Next()
			return
		}

		status, err := checker.Status(ctx.Request.Context(), userID, clock())
		if err != nil {
			utils.Sugar.Warnw("survey gate lookup failed, allowing request", "user_id", userID, "error", err)
			ctx.Next()
			return
		}

		switch {
		case status.InitialDue():
			utils.Respond(ctx, http.StatusPreconditionRequired, CodeInitialSurveyRequired, "initial survey required", gin.H{"stage": "initial"})
			ctx.Abort()
			return
		case status.WeeklyMandatory():
			utils.Respond(ctx, http.StatusPreconditionRequired, CodeWeeklySurveyRequired, "weekly survey required", gin.H{
				"stage":               "weekly",
				"daysSinceLastWeekly": status.DaysSinceLastWeekly,
			})
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
