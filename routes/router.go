package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/controllers"
	"github.com/wastewise/api/middleware"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// Deps are the replaceable collaborators of the router. Zero fields get production defaults.
type Deps struct {
	Clock     controllers.Clock
	Reminders utils.ReminderStore
	Products  services.ProductLookup
	// AccessLog enables the rolling access log file (GinPath).
	AccessLog bool
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	return NewRouter(db, Deps{AccessLog: true})
}

// NewRouter builds the engine with explicit dependencies.
func NewRouter(db *gorm.DB, deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Reminders == nil {
		deps.Reminders = utils.NewReminderStore()
	}
	if deps.Products == nil {
		deps.Products = services.NewCachedProductLookup(services.NewOpenFoodFactsClient(cfg.OpenFoodFactsBaseURL, nil))
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	if deps.AccessLog {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err == nil {
			r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
			r.Use(ginzap.RecoveryWithZap(gl, true))
		} else {
			utils.Sugar.Warnf("access log disabled: %v", err)
			r.Use(gin.Recovery())
		}
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", controllers.TimezoneHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.PageViewRecorder(db, cfg.Location(), deps.Clock))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	streaks := services.NewStreakService(db)
	tasks := services.NewDailyTaskService(db, streaks)
	surveys := services.NewSurveyService(db, tasks)
	purchases := services.NewPurchaseService(db, tasks)
	consumption := services.NewConsumptionService(db, purchases, tasks)

	authController := controllers.NewAuthController(services.NewUserService(db), deps.Clock)
	purchaseController := controllers.NewPurchaseController(purchases, deps.Clock)
	consumptionController := controllers.NewConsumptionController(consumption, deps.Clock)
	surveyController := controllers.NewSurveyController(surveys, deps.Clock)
	taskController := controllers.NewDailyTaskController(tasks, streaks, surveys, deps.Reminders, deps.Clock)
	leaderboardController := controllers.NewLeaderboardController(services.NewLeaderboardService(db, cfg.LeaderboardSize), deps.Clock)
	adminController := controllers.NewAdminController(services.NewAdminService(db), deps.Clock)
	productController := controllers.NewProductController(deps.Products)
	configController := controllers.NewConfigController()

	api := r.Group("/api")
	api.GET("/config", configController.GetClientConfig)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	// Survey and reminder routes stay reachable while a survey is blocking.
	protected.GET("/survey-questions", surveyController.Questions)
	protected.POST("/survey-responses", surveyController.Submit)
	protected.GET("/survey-status/:user_id", surveyController.Status)
	protected.POST("/survey/weekly-modal-shown", taskController.WeeklyModalShown)

	daily := protected.Group("/daily-tasks")
	daily.GET("/today", taskController.Today)
	daily.GET("/streak", taskController.Streak)
	daily.GET("/reminders", taskController.Reminders)
	daily.POST("/mark-popup-shown", taskController.MarkPopupShown)
	daily.POST("/streak-intro-seen", taskController.StreakIntroSeen)

	gated := protected.Group("")
	gated.Use(middleware.SurveyGate(surveys, deps.Clock))
	gated.POST("/purchases", purchaseController.CreatePurchase)
	gated.GET("/purchases", purchaseController.ListPurchases)
	gated.DELETE("/purchases/:id", purchaseController.DeletePurchase)
	gated.POST("/consumption-logs", consumptionController.CreateLog)
	gated.GET("/consumption-logs", consumptionController.ListLogs)
	gated.GET("/consumption-logs/summary", consumptionController.Summary)
	gated.GET("/products/:barcode", productController.Lookup)
	gated.GET("/leaderboard", leaderboardController.List)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.GET("/stats", adminController.GetStats)
	admin.GET("/waste-trend", adminController.WasteTrend)
	admin.GET("/users", adminController.ListUsers)
	admin.DELETE("/users/:id", adminController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
