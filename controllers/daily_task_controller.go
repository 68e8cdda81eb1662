package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// DailyTaskController serves today's tasks, the streak and the reminder flags.
type DailyTaskController struct {
	tasks     *services.DailyTaskService
	streaks   *services.StreakService
	surveys   *services.SurveyService
	reminders utils.ReminderStore
	clock     Clock
}

// NewDailyTaskController creates a new controller instance.
func NewDailyTaskController(tasks *services.DailyTaskService, streaks *services.StreakService, surveys *services.SurveyService, reminders utils.ReminderStore, clock Clock) *DailyTaskController {
	return &DailyTaskController{tasks: tasks, streaks: streaks, surveys: surveys, reminders: reminders, clock: clock}
}

// Today resolves the three daily tasks for the caller's current day.
func (d *DailyTaskController) Today(ctx *gin.Context) {
	userID, ok := targetUserID(ctx, ctx.Query("user_id"))
	if !ok {
		return
	}
	now, ok := requestNow(ctx, d.clock)
	if !ok {
		return
	}
	status, err := d.tasks.Refresh(ctx.Request.Context(), userID, now)
	if err != nil {
		serviceError(ctx, err, 50040, "failed to resolve daily tasks")
		return
	}
	utils.Success(ctx, status)
}

// Streak returns the effective streak; a lapsed streak reads as 0.
func (d *DailyTaskController) Streak(ctx *gin.Context) {
	userID, ok := targetUserID(ctx, ctx.Query("user_id"))
	if !ok {
		return
	}
	now, ok := requestNow(ctx, d.clock)
	if !ok {
		return
	}
	streak, err := d.streaks.Get(ctx.Request.Context(), userID, now)
	if err != nil {
		serviceError(ctx, err, 50041, "failed to load streak")
		return
	}
	utils.Success(ctx, streak)
}

// Reminders tells the client which prompts to show right now.
func (d *DailyTaskController) Reminders(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	now, ok := requestNow(ctx, d.clock)
	if !ok {
		return
	}
	rctx := ctx.Request.Context()

	tasks, err := d.tasks.Refresh(rctx, userID, now)
	if err != nil {
		serviceError(ctx, err, 50040, "failed to resolve daily tasks")
		return
	}
	survey, err := d.surveys.Status(rctx, userID, now)
	if err != nil {
		serviceError(ctx, err, 50050, "failed to load survey status")
		return
	}
	prefs, err := d.reminders.Load(rctx, userID)
	if err != nil {
		serviceError(ctx, err, 50042, "failed to load reminder preferences")
		return
	}

	utils.Success(ctx, gin.H{
		"show_daily_popup":             prefs.ShouldShowDailyPopup(now, tasks.AllTasksCompleted),
		"show_weekly_modal":            prefs.ShouldShowWeeklyModal(now, survey),
		"show_streak_intro":            !prefs.StreakIntroSeen,
		"weekly_mandatory":             survey.WeeklyMandatory(),
		"daily_popup_cooldown_seconds": int(engine.DailyPopupCooldown.Seconds()),
		"tasks":                        tasks,
	})
}

// MarkPopupShown records that the daily popup was shown, optionally dismissed.
func (d *DailyTaskController) MarkPopupShown(ctx *gin.Context) {
	var req struct {
		Dismissed bool `json:"dismissed"`
	}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return
		}
	}
	d.updatePrefs(ctx, func(p *engine.ReminderPrefs, now time.Time) { p.MarkDailyPopupShown(now, req.Dismissed) })
}

// StreakIntroSeen records that the streak explainer was shown once.
func (d *DailyTaskController) StreakIntroSeen(ctx *gin.Context) {
	d.updatePrefs(ctx, func(p *engine.ReminderPrefs, _ time.Time) { p.StreakIntroSeen = true })
}

// WeeklyModalShown records that the dismissible weekly survey modal was shown today.
func (d *DailyTaskController) WeeklyModalShown(ctx *gin.Context) {
	d.updatePrefs(ctx, func(p *engine.ReminderPrefs, now time.Time) { p.MarkWeeklyModalShown(now) })
}

func (d *DailyTaskController) updatePrefs(ctx *gin.Context, apply func(*engine.ReminderPrefs, time.Time)) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	now, ok := requestNow(ctx, d.clock)
	if !ok {
		return
	}
	rctx := ctx.Request.Context()
	prefs, err := d.reminders.Load(rctx, userID)
	if err != nil {
		serviceError(ctx, err, 50042, "failed to load reminder preferences")
		return
	}
	apply(&prefs, now)
	if err := d.reminders.Save(rctx, userID, prefs); err != nil {
		serviceError(ctx, err, 50043, "failed to save reminder preferences")
		return
	}
	utils.Success(ctx, prefs)
}
