package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/middleware"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// AuthController handles local account registration and sessions.
type AuthController struct {
	users *services.UserService
	clock Clock
}

// NewAuthController creates an AuthController.
func NewAuthController(users *services.UserService, clock Clock) *AuthController {
	return &AuthController{users: users, clock: clock}
}

// Register creates an account. Terms must be accepted; a captcha is required when enabled.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username      string `json:"username" binding:"required"`
		Password      string `json:"password" binding:"required"`
		Confirm       string `json:"confirm" binding:"required"`
		AcceptedTerms bool   `json:"accepted_terms"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	now := a.clock()
	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip, now) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "registration from this address is temporarily blocked")
		return
	}
	if !utils.RegistrationCooldownTry(ip, now) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again shortly")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip, now) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	if config.Get().RegisterCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, req.CaptchaAnswer) {
		utils.RegistrationFailed(ip, now)
		utils.Error(ctx, http.StatusBadRequest, 40004, "captcha verification failed")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), services.RegisterInput{
		Username:      req.Username,
		Password:      req.Password,
		Confirm:       req.Confirm,
		AcceptedTerms: req.AcceptedTerms,
	}, now)
	if err != nil {
		utils.RegistrationFailed(ip, now)
		serviceError(ctx, err, 50001, "failed to create user")
		return
	}
	utils.RegistrationDailyIncrement(ip, now)
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)

	token, err := utils.GenerateToken(user.ID, user.Username, config.Get().TokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Created(ctx, gin.H{"token": token, "user": userResponse(user)})
}

// Captcha issues a digit captcha for the registration form.
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// Login exchanges credentials for a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		serviceError(ctx, err, 50002, "failed to log in")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, config.Get().TokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": userResponse(user)})
}

// Logout revokes the current token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	v, _ := ctx.Get(middleware.ContextClaimsKey)
	claims, ok := v.(*utils.Claims)
	if token == "" || !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	expiresAt := time.Now().Add(config.Get().TokenTTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the caller's account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	user, err := a.users.Get(ctx.Request.Context(), userID)
	if err != nil {
		serviceError(ctx, err, 50003, "failed to load user")
		return
	}
	utils.Success(ctx, userResponse(user))
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":                          user.ID,
		"username":                    user.Username,
		"terms_accepted_at":           user.TermsAcceptedAt,
		"initial_survey_completed_at": user.InitialSurveyCompletedAt,
		"last_weekly_survey_at":       user.LastWeeklySurveyAt,
		"created_at":                  user.CreatedAt,
		"is_admin":                    config.Get().IsAdmin(user.Username),
	}
}
