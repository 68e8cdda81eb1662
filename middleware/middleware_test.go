package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.Override(config.AppConfig{
		JWTSecret:          "test-secret",
		AdminUsernames:     []string{"root"},
		RateLimitPerMinute: 2,
	})
}

func perform(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, utils.JSONResponse) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body utils.JSONResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func bearer(t *testing.T, id uint, name string) string {
	t.Helper()
	tok, err := utils.GenerateToken(id, name, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		id, _ := c.Get(ContextUserIDKey)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	revoked := bearer(t, 3, "carol")
	utils.BlacklistToken(revoked, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		status int
		code   int
	}{
		{"missing", "", http.StatusUnauthorized, 40101},
		{"not bearer", "Basic abc", http.StatusUnauthorized, 40102},
		{"garbage", "Bearer nope", http.StatusUnauthorized, 40105},
		{"revoked", "Bearer " + revoked, http.StatusUnauthorized, 40104},
		{"valid", "Bearer " + bearer(t, 7, "alice"), http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w, body := perform(r, req)
			if w.Code != tt.status || body.Code != tt.code {
				t.Fatalf("status %d code %d, want %d %d", w.Code, body.Code, tt.status, tt.code)
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for name, want := range map[string]int{"root": http.StatusNoContent, "ROOT": http.StatusNoContent, "alice": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+bearer(t, 1, name))
		if w, _ := perform(r, req); w.Code != want {
			t.Errorf("%s: status %d, want %d", name, w.Code, want)
		}
	}
}

type fakeChecker struct {
	status engine.SurveyStatus
	err    error
}

func (f fakeChecker) Status(context.Context, uint, time.Time) (engine.SurveyStatus, error) {
	return f.status, f.err
}

func TestSurveyGate(t *testing.T) {
	now := time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)
	done := now.AddDate(0, 0, -30)
	tests := []struct {
		name    string
		checker fakeChecker
		status  int
		code    int
	}{
		{"initial outstanding", fakeChecker{status: engine.EvaluateSurvey(nil, nil, now)}, http.StatusPreconditionRequired, CodeInitialSurveyRequired},
		{"weekly mandatory", fakeChecker{status: engine.EvaluateSurvey(&done, nil, now)}, http.StatusPreconditionRequired, CodeWeeklySurveyRequired},
		{"weekly dismissible", fakeChecker{status: engine.EvaluateSurvey(&done, ptr(now.AddDate(0, 0, -8)), now)}, http.StatusOK, 0},
		{"lookup error fails open", fakeChecker{err: errors.New("db down")}, http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/feature", func(c *gin.Context) { c.Set(ContextUserIDKey, uint(5)) }, SurveyGate(tt.checker, func() time.Time { return now }), func(c *gin.Context) {
				utils.Success(c, nil)
			})
			w, body := perform(r, httptest.NewRequest(http.MethodGet, "/feature", nil))
			if w.Code != tt.status || body.Code != tt.code {
				t.Fatalf("status %d code %d, want %d %d", w.Code, body.Code, tt.status, tt.code)
			}
		})
	}
}

func TestRateLimitPerUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { c.Set(ContextUserIDKey, uint(4242)) }, RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	if w, _ := perform(r, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusNoContent {
		t.Fatalf("first request status %d", w.Code)
	}
	w, body := perform(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTooManyRequests || body.Code != 42901 {
		t.Fatalf("second request status %d code %d", w.Code, body.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequestID(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w, _ := perform(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("generated id = %q", w.Header().Get(RequestIDHeader))
	}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	if w, _ := perform(r, req); w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("propagated id = %q", w.Header().Get(RequestIDHeader))
	}
}

func ptr(t time.Time) *time.Time { return &t }
