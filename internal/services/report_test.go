package services_test

import (
	"testing"

	"nutristreak/internal/models"
	"nutristreak/internal/services"
)

func TestTopFoodsCountThenFirstAppearance(t *testing.T) {
	t.Parallel()

	d := day(t, "2026-03-01")
	var entries []models.LogEntry
	for _, name := range []string{"A", "B", "A", "C", "A", "B"} {
		entries = append(entries, food(d, name, 100, 1))
	}

	got := services.TopFoods(entries, 5)
	want := []services.FoodCount{{Name: "A", Count: 3}, {Name: "B", Count: 2}, {Name: "C", Count: 1}}
	if len(got) != len(want) {
		t.Fatalf("TopFoods = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TopFoods[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTopFoodsTruncatesToLimit(t *testing.T) {
	t.Parallel()

	d := day(t, "2026-03-01")
	var entries []models.LogEntry
	for _, name := range []string{"f", "e", "d", "c", "b", "a", "a"} {
		entries = append(entries, food(d, name, 1, 0))
	}
	got := services.TopFoods(entries, 5)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0].Name != "a" || got[1].Name != "f" || got[4].Name != "c" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestBuildWeeklyReportDividesBySeven(t *testing.T) {
	t.Parallel()

	start := day(t, "2026-03-02")
	end := start.AddDays(6)
	goals := &models.UserGoals{Calories: 700, Protein: 30, WaterML: 1000}
	entries := []models.LogEntry{
		food(start, "eggs", 300, 20),
		food(start, "toast", 400, 10),
		food(start.AddDays(3), "salad", 700, 5),
		food(end.Next(), "ignored", 5000, 500),
	}
	water := []models.WaterEntry{{LocalDate: start.AddDays(1), AmountML: 1400}}

	r := services.BuildWeeklyReport(start, end, entries, water, goals)
	if r.Kind != services.ReportWeekly || len(r.Days) != 7 {
		t.Fatalf("unexpected report shape %+v", r)
	}
	if r.Averages.Calories != 200 || r.Averages.WaterML != 200 || r.Averages.Protein != 5 {
		t.Fatalf("averages = %+v", r.Averages)
	}
	if r.DaysLogged != 2 || r.TotalMeals != 3 {
		t.Fatalf("days logged %d, meals %d", r.DaysLogged, r.TotalMeals)
	}
	want := services.GoalHitDays{Calories: 2, Protein: 1, Water: 1}
	if r.GoalHits != want {
		t.Fatalf("goal hits = %+v, want %+v", r.GoalHits, want)
	}
	if r.BestWeek != nil || len(r.Insights) != 0 {
		t.Fatalf("weekly report must not carry monthly fields")
	}
}

func TestBuildMonthlyReportWindows(t *testing.T) {
	t.Parallel()

	first, last := day(t, "2026-03-01"), day(t, "2026-03-31")
	goals := &models.UserGoals{Calories: 2000, Protein: 100}
	var entries []models.LogEntry
	// window 0 and window 1 both score 6, windows 2 and 3 score 0
	for _, offset := range []int{0, 1, 2, 7, 8, 9} {
		entries = append(entries, food(first.AddDays(offset), "bowl", 2000, 100))
	}
	// days beyond the fourth window are not scored
	for _, offset := range []int{28, 29, 30} {
		entries = append(entries, food(first.AddDays(offset), "bowl", 2000, 100))
	}

	r := services.BuildMonthlyReport(first, last, entries, nil, goals)
	if len(r.Weeks) != 4 {
		t.Fatalf("weeks = %d, want 4", len(r.Weeks))
	}
	scores := []int{6, 6, 0, 0}
	for i, w := range r.Weeks {
		if w.Score != scores[i] {
			t.Fatalf("week %d score = %d, want %d", i, w.Score, scores[i])
		}
		if w.Label != "Needs Improvement" {
			t.Fatalf("week %d label = %q", i, w.Label)
		}
	}
	if r.Weeks[3].Start != day(t, "2026-03-22") || r.Weeks[3].End != day(t, "2026-03-28") {
		t.Fatalf("last window = %s..%s", r.Weeks[3].Start, r.Weeks[3].End)
	}
	if r.BestWeek == nil || r.BestWeek.Index != 0 {
		t.Fatalf("best week = %+v, want index 0", r.BestWeek)
	}
	if r.WorstWeek == nil || r.WorstWeek.Index != 2 {
		t.Fatalf("worst week = %+v, want index 2", r.WorstWeek)
	}
	if r.Averages.Calories != 9*2000/30.0 {
		t.Fatalf("average calories = %v", r.Averages.Calories)
	}
	if r.LongestStreak != 3 {
		t.Fatalf("longest streak = %d, want 3", r.LongestStreak)
	}
	if len(r.TopFoods) != 1 || r.TopFoods[0].Count != 9 {
		t.Fatalf("top foods = %+v", r.TopFoods)
	}
}

func TestBuildMonthlyReportShortRangeClipsWindows(t *testing.T) {
	t.Parallel()

	first := day(t, "2026-03-01")
	r := services.BuildMonthlyReport(first, first.AddDays(9), nil, nil, nil)
	if len(r.Weeks) != 2 {
		t.Fatalf("weeks = %d, want 2", len(r.Weeks))
	}
	if r.Weeks[1].End != first.AddDays(9) {
		t.Fatalf("second window should be clipped to range end, got %s", r.Weeks[1].End)
	}
}

func TestWeekLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  string
	}{
		{25, "Excellent"},
		{20, "Excellent"},
		{19, "Very Good"},
		{15, "Very Good"},
		{10, "Good"},
		{9, "Needs Improvement"},
		{0, "Needs Improvement"},
	}
	for _, tt := range tests {
		if got := services.WeekLabel(tt.score); got != tt.want {
			t.Fatalf("WeekLabel(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestMonthlyInsightsOrder(t *testing.T) {
	t.Parallel()

	first, last := day(t, "2026-03-01"), day(t, "2026-03-31")
	goals := &models.UserGoals{Calories: 2000, Protein: 100, Carbs: 250, WaterML: 2000}
	var entries []models.LogEntry
	for i := 0; i < 20; i++ {
		entries = append(entries, food(first.AddDays(i), "plate", 2100, 120))
	}

	r := services.BuildMonthlyReport(first, last, entries, nil, goals)
	want := []string{
		"Great job! You met your protein goal on 20 days this month.",
		"You missed your water goal on 31 days. Try keeping a water bottle nearby.",
		"Your average carb intake is below 80% of your goal. Consider adding whole grains or fruit.",
		"Your calorie intake stayed within range on 20 days. Keep it up!",
	}
	if len(r.Insights) != len(want) {
		t.Fatalf("insights = %q", r.Insights)
	}
	for i := range want {
		if r.Insights[i] != want[i] {
			t.Fatalf("insight %d = %q, want %q", i, r.Insights[i], want[i])
		}
	}
}

func TestMonthlyInsightsFallback(t *testing.T) {
	t.Parallel()

	first, last := day(t, "2026-03-01"), day(t, "2026-03-31")
	fallback := "Keep logging your meals to unlock personalized insights."

	r := services.BuildMonthlyReport(first, last, nil, nil, nil)
	if len(r.Insights) != 1 || r.Insights[0] != fallback {
		t.Fatalf("insights without goals = %q", r.Insights)
	}

	r = services.BuildMonthlyReport(first, last, nil, nil, &models.UserGoals{Calories: 2000})
	if len(r.Insights) != 1 || r.Insights[0] != fallback {
		t.Fatalf("insights with no data = %q", r.Insights)
	}
}
