package services

import (
	"time"

	"nutristreak/internal/models"
)

type AchievementID string

const (
	AchievementFirstLog       AchievementID = "first_log"
	AchievementStreak3        AchievementID = "streak_3"
	AchievementStreak7        AchievementID = "streak_7"
	AchievementHydrationHero  AchievementID = "hydration_hero"
	AchievementProteinPerfect AchievementID = "protein_perfect"
	AchievementCalorieCounter AchievementID = "calorie_counter"
)

// Calorie band used by calorie_counter. The monthly insight uses a wider
// 80-120% band; both are kept as observed.
const (
	calorieCounterBandLow  = 0.90
	calorieCounterBandHigh = 1.10
)

// AchievementCounters are the inputs every catalog rule reads from.
type AchievementCounters struct {
	TotalLogs       int `json:"total_logs"`
	CurrentStreak   int `json:"current_streak"`
	WaterGoalDays   int `json:"water_goal_days"`
	ProteinGoalDays int `json:"protein_goal_days"`
	CalorieBandDays int `json:"calorie_band_days"`
}

type AchievementRule struct {
	ID          AchievementID
	Title       string
	Description string
	Target      int
	value       func(AchievementCounters) int
}

// Progress is the 0..100 completion of the rule for c.
func (r AchievementRule) Progress(c AchievementCounters) int {
	if r.Target <= 0 {
		return 100
	}
	v := r.value(c)
	if v <= 0 {
		return 0
	}
	if v >= r.Target {
		return 100
	}
	return v * 100 / r.Target
}

var catalog = []AchievementRule{
	{
		ID:          AchievementFirstLog,
		Title:       "First Bite",
		Description: "Log your first meal",
		Target:      1,
		value:       func(c AchievementCounters) int { return c.TotalLogs },
	},
	{
		ID:          AchievementStreak3,
		Title:       "On a Roll",
		Description: "Log meals 3 days in a row",
		Target:      3,
		value:       func(c AchievementCounters) int { return c.CurrentStreak },
	},
	{
		ID:          AchievementStreak7,
		Title:       "Week Warrior",
		Description: "Log meals 7 days in a row",
		Target:      7,
		value:       func(c AchievementCounters) int { return c.CurrentStreak },
	},
	{
		ID:          AchievementHydrationHero,
		Title:       "Hydration Hero",
		Description: "Reach your water goal on 5 days",
		Target:      5,
		value:       func(c AchievementCounters) int { return c.WaterGoalDays },
	},
	{
		ID:          AchievementProteinPerfect,
		Title:       "Protein Perfect",
		Description: "Reach your protein goal on 5 days",
		Target:      5,
		value:       func(c AchievementCounters) int { return c.ProteinGoalDays },
	},
	{
		ID:          AchievementCalorieCounter,
		Title:       "Calorie Counter",
		Description: "Stay within 10% of your calorie goal on 7 days",
		Target:      7,
		value:       func(c AchievementCounters) int { return c.CalorieBandDays },
	},
}

// Catalog returns the fixed achievement rules in evaluation order.
func Catalog() []AchievementRule {
	out := make([]AchievementRule, len(catalog))
	copy(out, catalog)
	return out
}

func LookupAchievement(id AchievementID) (AchievementRule, bool) {
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return AchievementRule{}, false
}

// CountAchievementProgress derives counters from aggregated history. days
// should cover the user's full history; currentStreak comes from the streak
// record refreshed in the same request.
func CountAchievementProgress(days []DailyTotals, goals *models.UserGoals, currentStreak int) AchievementCounters {
	c := AchievementCounters{CurrentStreak: currentStreak}
	for i := range days {
		c.TotalLogs += days[i].EntryCount
		if days[i].WaterHit {
			c.WaterGoalDays++
		}
		if days[i].ProteinHit {
			c.ProteinGoalDays++
		}
		if goals != nil && withinBand(days[i].Calories, goals.Calories, calorieCounterBandLow, calorieCounterBandHigh) {
			c.CalorieBandDays++
		}
	}
	return c
}

type Award struct {
	ID       AchievementID `json:"id"`
	EarnedAt time.Time     `json:"earned_at"`
}

// EvaluateAndAward returns the rules that reach 100% for c and are absent
// from existing. It never returns an already earned identifier.
func EvaluateAndAward(c AchievementCounters, existing []models.AchievementRecord, now time.Time) []Award {
	earned := earnedSet(existing)
	awards := make([]Award, 0)
	for _, rule := range catalog {
		if _, ok := earned[rule.ID]; ok {
			continue
		}
		if rule.Progress(c) < 100 {
			continue
		}
		awards = append(awards, Award{ID: rule.ID, EarnedAt: now})
	}
	return awards
}

type AchievementProgress struct {
	ID          AchievementID `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Earned      bool          `json:"earned"`
	Progress    int           `json:"progress"`
	EarnedAt    *time.Time    `json:"earned_at,omitempty"`
}

// ProgressOf reports every catalog rule for display. Earned rules report 100.
func ProgressOf(c AchievementCounters, existing []models.AchievementRecord) map[AchievementID]AchievementProgress {
	earned := earnedSet(existing)
	out := make(map[AchievementID]AchievementProgress, len(catalog))
	for _, rule := range catalog {
		p := AchievementProgress{
			ID:          rule.ID,
			Title:       rule.Title,
			Description: rule.Description,
		}
		if at, ok := earned[rule.ID]; ok {
			earnedAt := at
			p.Earned = true
			p.Progress = 100
			p.EarnedAt = &earnedAt
		} else {
			p.Progress = rule.Progress(c)
		}
		out[rule.ID] = p
	}
	return out
}

// OrderedProgress flattens a ProgressOf map into catalog order.
func OrderedProgress(m map[AchievementID]AchievementProgress) []AchievementProgress {
	out := make([]AchievementProgress, 0, len(m))
	for _, rule := range catalog {
		if p, ok := m[rule.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func earnedSet(existing []models.AchievementRecord) map[AchievementID]time.Time {
	out := make(map[AchievementID]time.Time, len(existing))
	for _, rec := range existing {
		id := AchievementID(rec.AchievementID)
		if prev, ok := out[id]; ok && !rec.EarnedAt.Before(prev) {
			continue
		}
		out[id] = rec.EarnedAt
	}
	return out
}
