package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

// SurveyController serves the question bank, takes submissions and reports the cadence.
type SurveyController struct {
	surveys *services.SurveyService
	clock   Clock
}

func NewSurveyController(surveys *services.SurveyService, clock Clock) *SurveyController {
	return &SurveyController{surveys: surveys, clock: clock}
}

// Questions lists the active questions of ?stage= (initial, weekly or daily).
func (s *SurveyController) Questions(ctx *gin.Context) {
	stage := strings.ToLower(strings.TrimSpace(ctx.Query("stage")))
	qs, err := s.surveys.Questions(ctx.Request.Context(), stage)
	if err != nil {
		serviceError(ctx, err, 50051, "failed to list questions")
		return
	}
	utils.Success(ctx, gin.H{"stage": stage, "items": qs})
}

// Submit stores one completed survey of the caller.
func (s *SurveyController) Submit(ctx *gin.Context) {
	var req struct {
		Stage   string            `json:"stage" binding:"required"`
		Answers []services.Answer `json:"answers" binding:"required"`
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
	now, ok := requestNow(ctx, s.clock)
	if !ok {
		return
	}

	res, err := s.surveys.Submit(ctx.Request.Context(), userID, strings.ToLower(strings.TrimSpace(req.Stage)), req.Answers, now)
	if err != nil {
		serviceError(ctx, err, 50052, "failed to save survey")
		return
	}
	utils.Created(ctx, res)
}

// Status reports the survey cadence of :user_id.
func (s *SurveyController) Status(ctx *gin.Context) {
	userID, ok := targetUserID(ctx, ctx.Param("user_id"))
	if !ok {
		return
	}
	st, err := s.surveys.Status(ctx.Request.Context(), userID, s.clock())
	if err != nil {
		serviceError(ctx, err, 50050, "failed to load survey status")
		return
	}
	utils.Success(ctx, services.NewSurveyStatusView(st))
}
