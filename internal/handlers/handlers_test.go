package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nutristreak/internal/calendar"
	"nutristreak/internal/db"
	"nutristreak/internal/handlers"
	"nutristreak/internal/middleware"
	"nutristreak/internal/services"
)

var (
	testSecret = []byte("handler-test-secret")
	testNow    = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
)

type harness struct {
	router http.Handler
	store  *db.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.RunMigrations(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := db.NewStore(conn, db.WithNow(func() time.Time { return testNow }))
	clock := calendar.NewNormalizer(time.UTC).WithClock(func() time.Time { return testNow })
	tracker := services.NewTracker(store, clock, nil, services.WithNow(func() time.Time { return testNow }))
	router := handlers.NewRouter(handlers.RouterDeps{
		Store:          store,
		Tracker:        tracker,
		Logger:         nil,
		Auth:           middleware.NewAuthMiddleware(testSecret).RequireAuth,
		AllowedOrigins: []string{"*"},
	})
	return &harness{router: router, store: store}
}

func (h *harness) do(t *testing.T, userID int64, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		token, err := middleware.IssueToken(testSecret, userID, time.Hour)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func entry(date, name string, calories, protein float64) map[string]any {
	return map[string]any{
		"local_date": date,
		"meal_type":  "lunch",
		"food_name":  name,
		"calories":   calories,
		"protein":    protein,
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := h.do(t, 0, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := h.do(t, 0, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateEntryAwardsFirstLog(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := h.do(t, 1, http.MethodPost, "/api/entries", entry("2026-04-10", "oats", 350, 12))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Entry struct {
			ID        string `json:"id"`
			LocalDate string `json:"local_date"`
		} `json:"entry"`
		Streak struct {
			Display     int  `json:"display"`
			LoggedToday bool `json:"logged_today"`
		} `json:"streak"`
		Achievements []struct {
			ID string `json:"id"`
		} `json:"achievements"`
	}
	decode(t, rec, &resp)
	if resp.Entry.ID == "" || resp.Entry.LocalDate != "2026-04-10" {
		t.Fatalf("entry = %+v", resp.Entry)
	}
	if resp.Streak.Display != 1 || !resp.Streak.LoggedToday {
		t.Fatalf("streak = %+v", resp.Streak)
	}
	if len(resp.Achievements) != 1 || resp.Achievements[0].ID != "first_log" {
		t.Fatalf("achievements = %+v", resp.Achievements)
	}

	// Logging again the same day earns nothing new.
	rec = h.do(t, 1, http.MethodPost, "/api/entries", entry("2026-04-10", "apple", 90, 0))
	decode(t, rec, &resp)
	if len(resp.Achievements) != 0 || resp.Streak.Display != 1 {
		t.Fatalf("second entry: streak=%+v achievements=%+v", resp.Streak, resp.Achievements)
	}

	rec = h.do(t, 1, http.MethodGet, "/api/entries?start_date=2026-04-10", nil)
	var list struct {
		Entries []json.RawMessage `json:"entries"`
	}
	decode(t, rec, &list)
	if len(list.Entries) != 2 {
		t.Fatalf("listed %d entries, want 2", len(list.Entries))
	}
}

func TestCreateEntryValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing food name", map[string]any{"local_date": "2026-04-10", "meal_type": "lunch", "calories": 100, "protein": 1}, "food_name is required"},
		{"bad date", entry("10/04/2026", "oats", 100, 1), "local_date must be a date"},
		{"negative calories", entry("2026-04-10", "oats", -5, 1), "calories must be at least 0"},
		{"unknown field", `{"local_date":"2026-04-10","meal_type":"lunch","food_name":"x","extra":1}`, "invalid request body"},
	}
	for _, tc := range tests {
		rec := h.do(t, 1, http.MethodPost, "/api/entries", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tc.name, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s: body = %s, want %q", tc.name, rec.Body.String(), tc.want)
		}
	}
}

func TestListEntriesRejectsInvertedRange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := h.do(t, 1, http.MethodGet, "/api/entries?start_date=2026-04-10&end_date=2026-04-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteEntry(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if rec := h.do(t, 1, http.MethodDelete, "/api/entries/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d", rec.Code)
	}
	if rec := h.do(t, 1, http.MethodDelete, "/api/entries/6f1d3c0e-8a8e-4d7a-9d55-0d1b7f5c2a10", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d", rec.Code)
	}

	rec := h.do(t, 1, http.MethodPost, "/api/entries", entry("2026-04-10", "oats", 350, 12))
	var created struct {
		Entry struct {
			ID string `json:"id"`
		} `json:"entry"`
	}
	decode(t, rec, &created)

	if rec := h.do(t, 2, http.MethodDelete, "/api/entries/"+created.Entry.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("other user's delete status = %d", rec.Code)
	}
	if rec := h.do(t, 1, http.MethodDelete, "/api/entries/"+created.Entry.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestWaterAccumulates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.do(t, 3, http.MethodPost, "/api/water", map[string]any{"local_date": "2026-04-10", "amount_ml": 500})
	rec := h.do(t, 3, http.MethodPost, "/api/water", map[string]any{"local_date": "2026-04-10", "amount_ml": 250})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Water struct {
			AmountML float64 `json:"amount_ml"`
		} `json:"water"`
	}
	decode(t, rec, &resp)
	if resp.Water.AmountML != 750 {
		t.Fatalf("amount = %v, want 750", resp.Water.AmountML)
	}

	if rec := h.do(t, 3, http.MethodPost, "/api/water", map[string]any{"local_date": "2026-04-10", "amount_ml": 0}); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero amount status = %d", rec.Code)
	}
}

func TestDashboardWithoutGoalsRequiresSetup(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.do(t, 4, http.MethodPost, "/api/entries", entry("2026-04-10", "toast", 200, 6))

	rec := h.do(t, 4, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var dash struct {
		Date          string `json:"date"`
		Streak        int    `json:"streak"`
		SetupRequired bool   `json:"setup_required"`
		Today         struct {
			Calories float64 `json:"calories"`
		} `json:"today"`
		Trend []json.RawMessage `json:"trend"`
	}
	decode(t, rec, &dash)
	if !dash.SetupRequired || dash.Date != "2026-04-10" || dash.Streak != 1 {
		t.Fatalf("dashboard = %+v", dash)
	}
	if dash.Today.Calories != 200 || len(dash.Trend) != 7 {
		t.Fatalf("today = %+v, trend len %d", dash.Today, len(dash.Trend))
	}

}

func TestGoalsAndWeeklyReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := h.do(t, 5, http.MethodGet, "/api/goals", nil)
	var goalsResp struct {
		SetupRequired bool `json:"setup_required"`
	}
	decode(t, rec, &goalsResp)
	if rec.Code != http.StatusOK || !goalsResp.SetupRequired {
		t.Fatalf("goals before setup: status=%d body=%s", rec.Code, rec.Body.String())
	}

	goals := map[string]any{"calories": 2000, "protein": 100, "carbs": 250, "fats": 70, "water_ml": 2000}
	if rec := h.do(t, 5, http.MethodPut, "/api/goals", goals); rec.Code != http.StatusOK {
		t.Fatalf("put goals status = %d body=%s", rec.Code, rec.Body.String())
	}
	h.do(t, 5, http.MethodPost, "/api/entries", entry("2026-04-08", "rice bowl", 2000, 110))
	h.do(t, 5, http.MethodPost, "/api/entries", entry("2026-04-09", "pasta", 1200, 40))

	rec = h.do(t, 5, http.MethodGet, "/api/reports/weekly?start=2026-04-04", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("weekly status = %d body=%s", rec.Code, rec.Body.String())
	}
	var report struct {
		Kind          string            `json:"kind"`
		Start         string            `json:"start"`
		End           string            `json:"end"`
		Days          []json.RawMessage `json:"days"`
		DaysLogged    int               `json:"days_logged"`
		TotalMeals    int               `json:"total_meals"`
		LongestStreak int               `json:"longest_streak"`
		SetupRequired bool              `json:"setup_required"`
		GoalHits      struct {
			Calories int `json:"calories"`
			Protein  int `json:"protein"`
		} `json:"goal_hits"`
	}
	decode(t, rec, &report)
	if report.Kind != "weekly" || report.Start != "2026-04-04" || report.End != "2026-04-10" || len(report.Days) != 7 {
		t.Fatalf("report window = %+v", report)
	}
	if report.SetupRequired || report.DaysLogged != 2 || report.TotalMeals != 2 || report.LongestStreak != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.GoalHits.Calories != 1 || report.GoalHits.Protein != 1 {
		t.Fatalf("goal hits = %+v", report.GoalHits)
	}
}

func TestMonthlyReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if rec := h.do(t, 6, http.MethodGet, "/api/reports/monthly?month=2026-13", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid month status = %d", rec.Code)
	}

	rec := h.do(t, 6, http.MethodGet, "/api/reports/monthly", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var report struct {
		Start         string            `json:"start"`
		End           string            `json:"end"`
		Weeks         []json.RawMessage `json:"weeks"`
		SetupRequired bool              `json:"setup_required"`
	}
	decode(t, rec, &report)
	if report.Start != "2026-04-01" || report.End != "2026-04-30" || !report.SetupRequired {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Weeks) != 4 {
		t.Fatalf("weeks = %d, want 4", len(report.Weeks))
	}
}

func TestAchievementsProgress(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.do(t, 7, http.MethodPost, "/api/entries", entry("2026-04-10", "eggs", 300, 20))

	rec := h.do(t, 7, http.MethodGet, "/api/achievements", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Achievements []struct {
			ID       string `json:"id"`
			Earned   bool   `json:"earned"`
			Progress int    `json:"progress"`
		} `json:"achievements"`
	}
	decode(t, rec, &resp)
	if len(resp.Achievements) != len(services.Catalog()) {
		t.Fatalf("got %d achievements", len(resp.Achievements))
	}
	first := resp.Achievements[0]
	if first.ID != "first_log" || !first.Earned || first.Progress != 100 {
		t.Fatalf("first_log = %+v", first)
	}
	if streak3 := resp.Achievements[1]; streak3.Earned || streak3.Progress != 33 {
		t.Fatalf("streak_3 = %+v", streak3)
	}
}

func TestImport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if rec := h.do(t, 8, http.MethodPost, "/api/import", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty import status = %d", rec.Code)
	}

	body := map[string]any{
		"goals": map[string]any{"calories": 1800, "protein": 90},
		"entries": []any{
			entry("2026-04-08", "wrap", 500, 30),
			entry("2026-04-09", "salad", 400, 20),
			entry("2026-04-10", "curry", 700, 35),
		},
	}
	rec := h.do(t, 8, http.MethodPost, "/api/import", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Imported     int `json:"imported"`
		Achievements []struct {
			ID string `json:"id"`
		} `json:"achievements"`
	}
	decode(t, rec, &resp)
	if resp.Imported != 3 {
		t.Fatalf("imported = %d", resp.Imported)
	}
	if len(resp.Achievements) != 1 || resp.Achievements[0].ID != "first_log" {
		t.Fatalf("achievements = %+v", resp.Achievements)
	}

	g, err := h.store.FetchUserGoals(context.Background(), 8)
	if err != nil || g.Calories != 1800 {
		t.Fatalf("goals = %+v, %v", g, err)
	}
}

func TestDashboardIgnoresClientSuppliedDay(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, d := range []string{"2026-04-08", "2026-04-09", "2026-04-10"} {
		if rec := h.do(t, 9, http.MethodPost, "/api/entries", entry(d, "rice", 600, 20)); rec.Code != http.StatusCreated {
			t.Fatalf("log %s: status = %d", d, rec.Code)
		}
	}

	var dash struct {
		Date      string `json:"date"`
		Streak    int    `json:"streak"`
		MaxStreak int    `json:"max_streak"`
	}
	for i := 0; i < 6; i++ {
		day := "2026-04-09"
		if i%2 == 1 {
			day = "2026-04-10"
		}
		rec := h.do(t, 9, http.MethodGet, "/api/dashboard?local_date="+day, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("dashboard status = %d", rec.Code)
		}
		decode(t, rec, &dash)
		if dash.Date != "2026-04-10" {
			t.Fatalf("dashboard date = %s, want the server's day", dash.Date)
		}
	}
	if dash.Streak != 1 || dash.MaxStreak != 1 {
		t.Fatalf("dashboard streak = %d max = %d, want 1/1", dash.Streak, dash.MaxStreak)
	}

	rec, err := h.store.FetchStreakRecord(context.Background(), 9)
	if err != nil {
		t.Fatalf("fetch streak: %v", err)
	}
	if rec.CurrentStreak != 1 || rec.MaxStreak != 1 || rec.LastUpdateDay.String() != "2026-04-10" {
		t.Fatalf("streak record = %+v", rec)
	}
	got, err := h.store.FetchAchievements(context.Background(), 9)
	if err != nil {
		t.Fatalf("fetch achievements: %v", err)
	}
	for _, a := range got {
		if a.AchievementID == "streak_3" || a.AchievementID == "streak_7" {
			t.Fatalf("streak achievement awarded: %+v", got)
		}
	}
}

func TestEntryDayDefaultsToTodayAndRejectsFuture(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	body := map[string]any{"meal_type": "breakfast", "food_name": "porridge", "calories": 320, "protein": 11}
	rec := h.do(t, 10, http.MethodPost, "/api/entries", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Entry struct {
			LocalDate string    `json:"local_date"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"entry"`
		Streak struct {
			LoggedToday bool `json:"logged_today"`
		} `json:"streak"`
		Achievements []struct {
			ID string `json:"id"`
		} `json:"achievements"`
	}
	decode(t, rec, &resp)
	if resp.Entry.LocalDate != "2026-04-10" || !resp.Entry.CreatedAt.Equal(testNow) {
		t.Fatalf("entry = %+v", resp.Entry)
	}
	if !resp.Streak.LoggedToday || len(resp.Achievements) != 1 || resp.Achievements[0].ID != "first_log" {
		t.Fatalf("streak = %+v achievements = %+v", resp.Streak, resp.Achievements)
	}

	rec = h.do(t, 11, http.MethodPost, "/api/entries", entry("2026-04-11", "tomorrow", 400, 10))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "after today") {
		t.Fatalf("future entry: status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, 11, http.MethodPost, "/api/water", map[string]any{"local_date": "2026-04-11", "amount_ml": 250})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("future water: status = %d", rec.Code)
	}

	rec = h.do(t, 11, http.MethodPost, "/api/import", map[string]any{"entries": []any{
		entry("2026-04-09", "ok", 300, 10),
		entry("2026-04-12", "later", 300, 10),
	}})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "entries[1]") {
		t.Fatalf("future import: status = %d body=%s", rec.Code, rec.Body.String())
	}
	entries, err := h.store.ListLogEntries(context.Background(), 11, calendar.New(2026, time.April, 1), calendar.New(2026, time.April, 30))
	if err != nil || len(entries) != 0 {
		t.Fatalf("rejected writes stored entries: %+v, %v", entries, err)
	}
}
