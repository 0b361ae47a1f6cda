package services

import (
	"fmt"
	"slices"

	"nutristreak/internal/calendar"
	"nutristreak/internal/models"
)

type ReportKind string

const (
	ReportWeekly  ReportKind = "weekly"
	ReportMonthly ReportKind = "monthly"
)

const (
	weeklyDivisor  = 7
	monthlyDivisor = 30 // fixed regardless of month length

	monthlyWindows   = 4
	windowLength     = 7
	topFoodsLimit    = 5
	insightBandLow   = 0.80
	insightBandHigh  = 1.20
	insightMinDays   = 20
	waterMissedLimit = 7
	carbsAverageRate = 0.80
)

const fallbackInsight = "Keep logging your meals to unlock personalized insights."

type MetricAverages struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	WaterML  float64 `json:"water_ml"`
}

type GoalHitDays struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Water    int `json:"water"`
}

type WeekScore struct {
	Index int          `json:"index"`
	Start calendar.Day `json:"start"`
	End   calendar.Day `json:"end"`
	Score int          `json:"score"`
	Label string       `json:"label"`
}

type FoodCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PeriodReport summarises a week or month of DailyTotals. The window,
// food and insight fields are only filled for monthly reports.
type PeriodReport struct {
	Kind       ReportKind     `json:"kind"`
	Start      calendar.Day   `json:"start"`
	End        calendar.Day   `json:"end"`
	Days       []DailyTotals  `json:"days"`
	Averages   MetricAverages `json:"averages"`
	DaysLogged int            `json:"days_logged"`
	TotalMeals int            `json:"total_meals"`
	GoalHits   GoalHitDays    `json:"goal_hits"`

	Weeks         []WeekScore `json:"weeks,omitempty"`
	BestWeek      *WeekScore  `json:"best_week,omitempty"`
	WorstWeek     *WeekScore  `json:"worst_week,omitempty"`
	TopFoods      []FoodCount `json:"top_foods,omitempty"`
	LongestStreak int         `json:"longest_streak"`
	Insights      []string    `json:"insights,omitempty"`
}

func BuildWeeklyReport(start, end calendar.Day, entries []models.LogEntry, water []models.WaterEntry, goals *models.UserGoals) PeriodReport {
	days := AggregateRange(start, end, entries, water, goals)
	r := summarise(ReportWeekly, start, end, days, weeklyDivisor)
	r.LongestStreak = LongestStreak(loggedDays(days))
	return r
}

func BuildMonthlyReport(start, end calendar.Day, entries []models.LogEntry, water []models.WaterEntry, goals *models.UserGoals) PeriodReport {
	days := AggregateRange(start, end, entries, water, goals)
	r := summarise(ReportMonthly, start, end, days, monthlyDivisor)

	r.Weeks = scoreWindows(start, end, days)
	if len(r.Weeks) > 0 {
		best, worst := r.Weeks[0], r.Weeks[0]
		for _, w := range r.Weeks[1:] {
			if w.Score > best.Score {
				best = w
			}
			if w.Score < worst.Score {
				worst = w
			}
		}
		r.BestWeek, r.WorstWeek = &best, &worst
	}

	r.TopFoods = TopFoods(entriesInRange(start, end, entries), topFoodsLimit)
	r.LongestStreak = LongestStreak(loggedDays(days))
	r.Insights = buildInsights(r, goals)
	return r
}

func summarise(kind ReportKind, start, end calendar.Day, days []DailyTotals, divisor float64) PeriodReport {
	r := PeriodReport{Kind: kind, Start: start, End: end, Days: days}
	var sum MetricAverages
	for _, d := range days {
		sum.Calories += d.Calories
		sum.Protein += d.Protein
		sum.Carbs += d.Carbs
		sum.Fats += d.Fats
		sum.WaterML += d.WaterML
		r.TotalMeals += d.EntryCount
		if d.HasLog() {
			r.DaysLogged++
		}
		if d.CaloriesHit {
			r.GoalHits.Calories++
		}
		if d.ProteinHit {
			r.GoalHits.Protein++
		}
		if d.CarbsHit {
			r.GoalHits.Carbs++
		}
		if d.WaterHit {
			r.GoalHits.Water++
		}
	}
	r.Averages = MetricAverages{
		Calories: sum.Calories / divisor,
		Protein:  sum.Protein / divisor,
		Carbs:    sum.Carbs / divisor,
		Fats:     sum.Fats / divisor,
		WaterML:  sum.WaterML / divisor,
	}
	return r
}

// scoreWindows splits the range into four 7-day windows from start, clipped to
// end. Days past the fourth window are not scored.
func scoreWindows(start, end calendar.Day, days []DailyTotals) []WeekScore {
	out := make([]WeekScore, 0, monthlyWindows)
	for i := 0; i < monthlyWindows; i++ {
		ws := start.AddDays(i * windowLength)
		if ws.After(end) {
			break
		}
		we := ws.AddDays(windowLength - 1)
		if we.After(end) {
			we = end
		}
		score := 0
		for _, d := range days {
			if d.Date.Before(ws) || d.Date.After(we) {
				continue
			}
			if d.CaloriesHit {
				score++
			}
			if d.ProteinHit {
				score++
			}
		}
		out = append(out, WeekScore{Index: i, Start: ws, End: we, Score: score, Label: WeekLabel(score)})
	}
	return out
}

// WeekLabel grades a window score on the full-range scale.
func WeekLabel(score int) string {
	switch {
	case score >= 20:
		return "Excellent"
	case score >= 15:
		return "Very Good"
	case score >= 10:
		return "Good"
	default:
		return "Needs Improvement"
	}
}

// TopFoods ranks food names by occurrence, highest first. Equal counts keep
// the order in which the names first appeared. limit <= 0 means no limit.
func TopFoods(entries []models.LogEntry, limit int) []FoodCount {
	counts := make([]FoodCount, 0)
	index := map[string]int{}
	for _, e := range entries {
		if e.FoodName == "" {
			continue
		}
		if i, ok := index[e.FoodName]; ok {
			counts[i].Count++
			continue
		}
		index[e.FoodName] = len(counts)
		counts = append(counts, FoodCount{Name: e.FoodName, Count: 1})
	}
	slices.SortStableFunc(counts, func(a, b FoodCount) int { return b.Count - a.Count })
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

func buildInsights(r PeriodReport, goals *models.UserGoals) []string {
	out := make([]string, 0, 4)
	if goals == nil {
		return append(out, fallbackInsight)
	}

	if r.GoalHits.Protein >= insightMinDays {
		out = append(out, fmt.Sprintf("Great job! You met your protein goal on %d days this month.", r.GoalHits.Protein))
	}

	if goals.WaterML > 0 {
		missed := 0
		for _, d := range r.Days {
			if d.WaterML < goals.WaterML {
				missed++
			}
		}
		if missed > waterMissedLimit {
			out = append(out, fmt.Sprintf("You missed your water goal on %d days. Try keeping a water bottle nearby.", missed))
		}
	}

	if goals.Carbs > 0 && r.Averages.Carbs < goals.Carbs*carbsAverageRate {
		out = append(out, "Your average carb intake is below 80% of your goal. Consider adding whole grains or fruit.")
	}

	inRange := 0
	for _, d := range r.Days {
		if withinBand(d.Calories, goals.Calories, insightBandLow, insightBandHigh) {
			inRange++
		}
	}
	if inRange >= insightMinDays {
		out = append(out, fmt.Sprintf("Your calorie intake stayed within range on %d days. Keep it up!", inRange))
	}

	if len(out) == 0 {
		out = append(out, fallbackInsight)
	}
	return out
}

func loggedDays(days []DailyTotals) []calendar.Day {
	out := make([]calendar.Day, 0, len(days))
	for _, d := range days {
		if d.HasLog() {
			out = append(out, d.Date)
		}
	}
	return out
}

func entriesInRange(start, end calendar.Day, entries []models.LogEntry) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.LocalDate.Before(start) || e.LocalDate.After(end) || !ValidEntry(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func sortDays(days []calendar.Day) {
	slices.SortFunc(days, calendar.Compare)
}
