package main

import (
	"context"
	"time"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/routes"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(models.All()...)

	if err := services.NewSurveyService(db, nil).EnsureDefaultQuestions(context.Background()); err != nil {
		utils.Sugar.Fatalf("seed survey questions: %v", err)
	}

	// Start background cleanup of in-memory fallbacks (best-effort)
	utils.StartJanitor(5 * time.Minute)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
