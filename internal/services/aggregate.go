package services

import (
	"math"

	"nutristreak/internal/calendar"
	"nutristreak/internal/models"
)

// DailyTotals is the per-day rollup of one user's entries against their goals.
type DailyTotals struct {
	Date       calendar.Day `json:"date"`
	Calories   float64      `json:"calories"`
	Protein    float64      `json:"protein"`
	Carbs      float64      `json:"carbs"`
	Fats       float64      `json:"fats"`
	WaterML    float64      `json:"water_ml"`
	EntryCount int          `json:"entry_count"`

	CaloriesHit bool `json:"calories_hit"`
	ProteinHit  bool `json:"protein_hit"`
	CarbsHit    bool `json:"carbs_hit"`
	WaterHit    bool `json:"water_hit"`
	GoalsMet    int  `json:"goals_met"`
}

func (d DailyTotals) HasLog() bool { return d.EntryCount > 0 }

// goalMet treats a zero or unset goal as not evaluated, never as trivially met.
func goalMet(total, goal float64) bool {
	return goal > 0 && total >= goal
}

// withinBand reports whether total lies in [lower*goal, upper*goal].
func withinBand(total, goal, lower, upper float64) bool {
	if goal <= 0 {
		return false
	}
	return total >= goal*lower && total <= goal*upper
}

func validMetric(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ValidEntry reports whether every metric on e is a finite non-negative number.
func ValidEntry(e models.LogEntry) bool {
	return validMetric(e.Calories) &&
		validMetric(e.Protein) &&
		validMetric(valueOrZero(e.Carbs)) &&
		validMetric(valueOrZero(e.Fats))
}

func ValidWater(w models.WaterEntry) bool {
	return validMetric(w.AmountML)
}

// AggregateDay sums the entries and water logged on day. Entries for other days
// and invalid entries are ignored; a nil goals value yields no goal hits.
func AggregateDay(day calendar.Day, entries []models.LogEntry, water []models.WaterEntry, goals *models.UserGoals) DailyTotals {
	out := DailyTotals{Date: day}
	for i := range entries {
		if entries[i].LocalDate != day {
			continue
		}
		addEntry(&out, entries[i])
	}
	for i := range water {
		if water[i].LocalDate != day {
			continue
		}
		addWater(&out, water[i])
	}
	applyGoals(&out, goals)
	return out
}

// AggregateRange returns one DailyTotals per calendar day from start to end
// inclusive, ascending and gap-filled. An inverted range yields an empty slice.
func AggregateRange(start, end calendar.Day, entries []models.LogEntry, water []models.WaterEntry, goals *models.UserGoals) []DailyTotals {
	n := calendar.DaysBetween(start, end) + 1
	if n <= 0 {
		return []DailyTotals{}
	}
	days := make([]DailyTotals, n)
	for i := range days {
		days[i].Date = start.AddDays(i)
	}
	slot := func(d calendar.Day) *DailyTotals {
		idx := calendar.DaysBetween(start, d)
		if idx < 0 || idx >= n {
			return nil
		}
		return &days[idx]
	}
	for i := range entries {
		if t := slot(entries[i].LocalDate); t != nil {
			addEntry(t, entries[i])
		}
	}
	for i := range water {
		if t := slot(water[i].LocalDate); t != nil {
			addWater(t, water[i])
		}
	}
	for i := range days {
		applyGoals(&days[i], goals)
	}
	return days
}

// aggregateLoggedDays rolls up only the days that carry data, ascending.
// Used for whole-history counters where gap-filling would be wasteful.
func aggregateLoggedDays(entries []models.LogEntry, water []models.WaterEntry, goals *models.UserGoals) []DailyTotals {
	byDay := map[calendar.Day]*DailyTotals{}
	order := make([]calendar.Day, 0)
	get := func(d calendar.Day) *DailyTotals {
		t, ok := byDay[d]
		if !ok {
			t = &DailyTotals{Date: d}
			byDay[d] = t
			order = append(order, d)
		}
		return t
	}
	for i := range entries {
		addEntry(get(entries[i].LocalDate), entries[i])
	}
	for i := range water {
		addWater(get(water[i].LocalDate), water[i])
	}
	sortDays(order)
	out := make([]DailyTotals, 0, len(order))
	for _, d := range order {
		t := byDay[d]
		applyGoals(t, goals)
		out = append(out, *t)
	}
	return out
}

func addEntry(t *DailyTotals, e models.LogEntry) {
	if !ValidEntry(e) {
		return
	}
	t.Calories += e.Calories
	t.Protein += e.Protein
	t.Carbs += valueOrZero(e.Carbs)
	t.Fats += valueOrZero(e.Fats)
	t.EntryCount++
}

func addWater(t *DailyTotals, w models.WaterEntry) {
	if !ValidWater(w) {
		return
	}
	t.WaterML += w.AmountML
}

func applyGoals(t *DailyTotals, goals *models.UserGoals) {
	t.CaloriesHit, t.ProteinHit, t.CarbsHit, t.WaterHit = false, false, false, false
	t.GoalsMet = 0
	if goals == nil {
		return
	}
	t.CaloriesHit = goalMet(t.Calories, goals.Calories)
	t.ProteinHit = goalMet(t.Protein, goals.Protein)
	t.CarbsHit = goalMet(t.Carbs, goals.Carbs)
	t.WaterHit = goalMet(t.WaterML, goals.WaterML)
	for _, hit := range []bool{t.CaloriesHit, t.ProteinHit, t.CarbsHit, t.WaterHit} {
		if hit {
			t.GoalsMet++
		}
	}
}
