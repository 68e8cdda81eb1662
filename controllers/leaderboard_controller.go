package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

type LeaderboardController struct {
	board *services.LeaderboardService
	clock Clock
}

func NewLeaderboardController(board *services.LeaderboardService, clock Clock) *LeaderboardController {
	return &LeaderboardController{board: board, clock: clock}
}

// List returns the streak leaderboard; clients poll it every 30 s.
func (l *LeaderboardController) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	now, ok := requestNow(ctx, l.clock)
	if !ok {
		return
	}
	entries, err := l.board.Top(ctx.Request.Context(), limit, now)
	if err != nil {
		serviceError(ctx, err, 50060, "failed to load leaderboard")
		return
	}
	utils.Success(ctx, gin.H{"items": entries, "refresh_seconds": int(services.LeaderboardCacheTTL.Seconds())})
}
