package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.Override(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		Timezone:           "UTC",
		AdminUsernames:     []string{"admin"},
		RateLimitPerMinute: 100000,

		RegisterMaxPerIPPerDay:        1000,
		RegisterFailedMaxPerIPPerHour: 1000,
	})
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubProducts struct{}

func (stubProducts) Lookup(_ context.Context, barcode string) (services.Product, error) {
	if !services.ValidBarcode(barcode) {
		return services.Product{}, services.ErrInvalidBarcode
	}
	if barcode == "40000000" {
		return services.Product{}, services.ErrProductNotFound
	}
	if barcode == "50000000" {
		return services.Product{}, services.ErrUpstreamUnavailable
	}
	return services.Product{Barcode: barcode, Name: "Oat drink", Category: "plant milks"}, nil
}

type harness struct {
	t     *testing.T
	db    *gorm.DB
	clock *fixedClock
	h     http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
		LogLevel:   "silent",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := config.Migrate(db, models.All()...); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := services.NewSurveyService(db, nil).EnsureDefaultQuestions(context.Background()); err != nil {
		t.Fatal(err)
	}

	clock := &fixedClock{now: time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)}
	r := NewRouter(db, Deps{
		Clock:     clock.Now,
		Reminders: utils.NewMemoryReminderStore(),
		Products:  stubProducts{},
	})
	return &harness{t: t, db: db, clock: clock, h: r}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *harness) do(method, path, token string, body interface{}) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.h.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		h.t.Fatalf("%s %s: undecodable body %q", method, path, w.Body.String())
	}
	return w.Code, env
}

func (h *harness) decode(env envelope, out interface{}) {
	h.t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		h.t.Fatalf("decode %s: %v", env.Data, err)
	}
}

func (h *harness) register(name string) (string, uint) {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": name, "password": "secret1", "confirm": "secret1", "accepted_terms": true,
	})
	if status != http.StatusCreated {
		h.t.Fatalf("register %s: %d %+v", name, status, env)
	}
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	h.decode(env, &out)
	return out.Token, out.User.ID
}

func (h *harness) completeSurvey(token, stage string) {
	h.t.Helper()
	status, env := h.do(http.MethodGet, "/api/survey-questions?stage="+stage, token, nil)
	if status != http.StatusOK {
		h.t.Fatalf("questions: %d %+v", status, env)
	}
	var qs struct {
		Items []models.SurveyQuestion `json:"items"`
	}
	h.decode(env, &qs)
	answers := make([]gin.H, 0, len(qs.Items))
	for _, q := range qs.Items {
		v := "getting better"
		switch q.Kind {
		case models.QuestionScale:
			v = "4"
		case models.QuestionChoice:
			var opts []string
			json.Unmarshal([]byte(q.Options), &opts)
			v = opts[0]
		}
		answers = append(answers, gin.H{"question_id": q.ID, "value": v})
	}
	if status, env := h.do(http.MethodPost, "/api/survey-responses", token, gin.H{"stage": stage, "answers": answers}); status != http.StatusCreated {
		h.t.Fatalf("submit %s: %d %+v", stage, status, env)
	}
}

func TestNewUserJourney(t *testing.T) {
	h := newHarness(t)
	token, id := h.register("alice")

	status, env := h.do(http.MethodPost, "/api/purchases", token, gin.H{"item_name": "Milk"})
	if status != http.StatusPreconditionRequired || env.Code != 42801 {
		t.Fatalf("purchase before initial survey: %d %+v", status, env)
	}

	h.completeSurvey(token, models.StageInitial)

	status, env = h.do(http.MethodGet, fmt.Sprintf("/api/survey-status/%d", id), token, nil)
	var survey map[string]interface{}
	h.decode(env, &survey)
	if status != http.StatusOK || survey["initialCompleted"] != true || survey["weeklyDue"] != false {
		t.Fatalf("survey status: %d %v", status, survey)
	}

	status, env = h.do(http.MethodPost, "/api/purchases", token, gin.H{"item_name": "Milk", "cost": 1.5})
	if status != http.StatusCreated {
		t.Fatalf("purchase: %d %+v", status, env)
	}
	var purchase struct {
		Purchase models.Purchase `json:"purchase"`
	}
	h.decode(env, &purchase)

	status, env = h.do(http.MethodPost, "/api/consumption-logs", token, gin.H{"purchase_id": purchase.Purchase.ID, "action": "wasted", "percentage": 20})
	if status != http.StatusCreated {
		t.Fatalf("consumption log: %d %+v", status, env)
	}

	status, env = h.do(http.MethodGet, "/api/daily-tasks/today", token, nil)
	var today services.TaskStatus
	h.decode(env, &today)
	if status != http.StatusOK || !today.LogFoodCompleted || !today.CompleteSurveyCompleted || !today.LogConsumeWasteCompleted || !today.AllTasksCompleted {
		t.Fatalf("today: %d %+v", status, today)
	}

	status, env = h.do(http.MethodGet, fmt.Sprintf("/api/daily-tasks/streak?user_id=%d", id), token, nil)
	var streak services.StreakStatus
	h.decode(env, &streak)
	if status != http.StatusOK || streak.CurrentStreak != 1 || streak.LongestStreak != 1 || streak.TotalCompletions != 1 {
		t.Fatalf("streak: %d %+v", status, streak)
	}

	status, env = h.do(http.MethodGet, "/api/leaderboard", token, nil)
	var board struct {
		Items []services.LeaderboardEntry `json:"items"`
	}
	h.decode(env, &board)
	if status != http.StatusOK || len(board.Items) != 1 || board.Items[0].Username != "alice" {
		t.Fatalf("leaderboard: %d %+v", status, board)
	}
}

func TestWeeklySurveyBecomesMandatory(t *testing.T) {
	h := newHarness(t)
	token, id := h.register("bob")
	h.completeSurvey(token, models.StageInitial)

	h.clock.Advance(8 * 24 * time.Hour)
	status, env := h.do(http.MethodGet, "/api/daily-tasks/reminders", token, nil)
	var rem map[string]interface{}
	h.decode(env, &rem)
	if status != http.StatusOK || rem["show_weekly_modal"] != true || rem["weekly_mandatory"] != false {
		t.Fatalf("reminders on day 8: %d %v", status, rem)
	}
	if status, _ := h.do(http.MethodPost, "/api/survey/weekly-modal-shown", token, nil); status != http.StatusOK {
		t.Fatalf("weekly-modal-shown: %d", status)
	}
	_, env = h.do(http.MethodGet, "/api/daily-tasks/reminders", token, nil)
	h.decode(env, &rem)
	if rem["show_weekly_modal"] != false {
		t.Fatalf("dismissible modal shown twice in one day: %v", rem)
	}
	if status, _ := h.do(http.MethodGet, "/api/purchases", token, nil); status != http.StatusOK {
		t.Fatalf("dismissible survey must not block: %d", status)
	}

	h.clock.Advance(2 * 24 * time.Hour)
	status, env = h.do(http.MethodGet, "/api/purchases", token, nil)
	if status != http.StatusPreconditionRequired || env.Code != 42802 {
		t.Fatalf("day 10 purchases: %d %+v", status, env)
	}
	_, env = h.do(http.MethodGet, fmt.Sprintf("/api/survey-status/%d", id), token, nil)
	var survey map[string]interface{}
	h.decode(env, &survey)
	if survey["weeklyMandatory"] != true || survey["daysSinceLastWeekly"] != float64(10) {
		t.Fatalf("survey status on day 10: %v", survey)
	}

	h.completeSurvey(token, models.StageWeekly)
	if status, env := h.do(http.MethodGet, "/api/purchases", token, nil); status != http.StatusOK {
		t.Fatalf("after weekly survey: %d %+v", status, env)
	}
}

func TestDailyPopupCooldown(t *testing.T) {
	h := newHarness(t)
	token, _ := h.register("carol")
	h.completeSurvey(token, models.StageInitial)

	show := func() map[string]interface{} {
		_, env := h.do(http.MethodGet, "/api/daily-tasks/reminders", token, nil)
		var rem map[string]interface{}
		h.decode(env, &rem)
		return rem
	}
	if rem := show(); rem["show_daily_popup"] != true || rem["show_streak_intro"] != true {
		t.Fatalf("fresh reminders: %v", rem)
	}
	if status, _ := h.do(http.MethodPost, "/api/daily-tasks/mark-popup-shown", token, gin.H{"dismissed": true}); status != http.StatusOK {
		t.Fatal("mark-popup-shown failed")
	}
	if status, _ := h.do(http.MethodPost, "/api/daily-tasks/streak-intro-seen", token, nil); status != http.StatusOK {
		t.Fatal("streak-intro-seen failed")
	}
	if rem := show(); rem["show_daily_popup"] != false || rem["show_streak_intro"] != false {
		t.Fatalf("after dismissal: %v", rem)
	}

	// Next day, more than the cooldown later.
	h.clock.Advance(24 * time.Hour)
	if rem := show(); rem["show_daily_popup"] != true {
		t.Fatalf("next day: %v", rem)
	}
}

func TestUserIDQueryValidation(t *testing.T) {
	h := newHarness(t)
	aliceToken, _ := h.register("alice")
	_, bobID := h.register("bob")
	adminToken, _ := h.register("admin")

	tests := []struct {
		name   string
		token  string
		path   string
		status int
	}{
		{"malformed", aliceToken, "/api/daily-tasks/today?user_id=abc", http.StatusBadRequest},
		{"zero", aliceToken, "/api/daily-tasks/streak?user_id=0", http.StatusBadRequest},
		{"other user", aliceToken, fmt.Sprintf("/api/daily-tasks/today?user_id=%d", bobID), http.StatusForbidden},
		{"admin reads other user", adminToken, fmt.Sprintf("/api/daily-tasks/streak?user_id=%d", bobID), http.StatusOK},
		{"unknown user", adminToken, "/api/daily-tasks/today?user_id=9999", http.StatusNotFound},
		{"bad zone", aliceToken, "/api/daily-tasks/today?tz=Mars/Base", http.StatusBadRequest},
		{"survey status malformed", aliceToken, "/api/survey-status/x", http.StatusBadRequest},
		{"no token", "", "/api/daily-tasks/today", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, env := h.do(http.MethodGet, tt.path, tt.token, nil); status != tt.status {
				t.Fatalf("status %d (%+v), want %d", status, env, tt.status)
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	h.register("dave")

	if status, _ := h.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "dave", "password": "secret1", "confirm": "secret1", "accepted_terms": true}); status != http.StatusConflict {
		t.Fatalf("duplicate register: %d", status)
	}
	if status, _ := h.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "erin", "password": "secret1", "confirm": "secret1"}); status != http.StatusBadRequest {
		t.Fatalf("register without terms: %d", status)
	}
	if status, _ := h.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "dave", "password": "nope"}); status != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", status)
	}

	status, env := h.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "dave", "password": "secret1"})
	if status != http.StatusOK {
		t.Fatalf("login: %d", status)
	}
	var out struct {
		Token string `json:"token"`
	}
	h.decode(env, &out)

	if status, _ := h.do(http.MethodGet, "/api/auth/me", out.Token, nil); status != http.StatusOK {
		t.Fatalf("me: %d", status)
	}
	if status, _ := h.do(http.MethodPost, "/api/auth/logout", out.Token, nil); status != http.StatusOK {
		t.Fatalf("logout: %d", status)
	}
	if status, env := h.do(http.MethodGet, "/api/auth/me", out.Token, nil); status != http.StatusUnauthorized || env.Code != 40104 {
		t.Fatalf("me after logout: %d %+v", status, env)
	}
}

func TestAdminAndProducts(t *testing.T) {
	h := newHarness(t)
	userToken, userID := h.register("frank")
	adminToken, _ := h.register("admin")
	h.completeSurvey(userToken, models.StageInitial)

	if status, _ := h.do(http.MethodGet, "/api/admin/stats", userToken, nil); status != http.StatusForbidden {
		t.Fatalf("non-admin stats: %d", status)
	}
	status, env := h.do(http.MethodGet, "/api/admin/stats", adminToken, nil)
	var st services.AdminStats
	h.decode(env, &st)
	if status != http.StatusOK || st.Users != 2 || st.RequestsToday == 0 {
		t.Fatalf("stats: %d %+v", status, st)
	}
	if status, _ := h.do(http.MethodGet, "/api/admin/waste-trend?days=7", adminToken, nil); status != http.StatusOK {
		t.Fatalf("waste trend: %d", status)
	}

	for barcode, want := range map[string]int{
		"12345678": http.StatusOK,
		"40000000": http.StatusNotFound,
		"50000000": http.StatusBadGateway,
		"12ab":     http.StatusBadRequest,
	} {
		if status, env := h.do(http.MethodGet, "/api/products/"+barcode, userToken, nil); status != want {
			t.Errorf("product %s: %d %+v, want %d", barcode, status, env, want)
		}
	}

	if status, _ := h.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", userID), adminToken, nil); status != http.StatusOK {
		t.Fatalf("delete user: %d", status)
	}
	if status, _ := h.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", userID), adminToken, nil); status != http.StatusNotFound {
		t.Fatalf("delete user twice: %d", status)
	}
}

func TestPublicConfigAndUnknownRoute(t *testing.T) {
	h := newHarness(t)
	status, env := h.do(http.MethodGet, "/api/config", "", nil)
	var cfg map[string]interface{}
	h.decode(env, &cfg)
	if status != http.StatusOK || cfg["weekly_survey_interval_days"] != float64(7) || cfg["weekly_survey_grace_days"] != float64(2) {
		t.Fatalf("config: %d %v", status, cfg)
	}
	if status, env := h.do(http.MethodGet, "/api/nope", "", nil); status != http.StatusNotFound || env.Code != 40400 {
		t.Fatalf("unknown route: %d %+v", status, env)
	}
}
