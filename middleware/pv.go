package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/utils"
)

// PageViewRecorder counts successful API requests per day (in loc) and route pattern.
func PageViewRecorder(db *gorm.DB, loc *time.Location, clock func() time.Time) gin.HandlerFunc {
	if clock == nil {
		clock = time.Now
	}
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		// Route pattern rather than raw path keeps /api/purchases/:id as one row.
		path := c.FullPath()
		if path == "" || path == "/health" {
			return
		}

		now := clock()
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now.UTC()}),
		}).Create(&models.PageView{Date: engine.DayOf(now.In(loc)), Path: path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Debugw("page view not recorded", "path", path, "error", err)
		}
	}
}
