package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// ConfigController serves the policy constants the client needs to mirror server behaviour.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetClientConfig returns reminder, cadence and form limits.
func (c *ConfigController) GetClientConfig(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"register_captcha_enabled":     cfg.RegisterCaptchaEnabled,
		"timezone":                     cfg.Location().String(),
		"weekly_survey_interval_days":  engine.WeeklySurveyIntervalDays,
		"weekly_survey_grace_days":     engine.WeeklySurveyGraceDays,
		"daily_popup_cooldown_seconds": int(engine.DailyPopupCooldown.Seconds()),
		"purchase_backfill_days":       services.PurchaseBackfillDays,
		"leaderboard_refresh_seconds":  int(services.LeaderboardCacheTTL.Seconds()),
		"survey_scale":                 gin.H{"min": services.ScaleMin, "max": services.ScaleMax},
	})
}
