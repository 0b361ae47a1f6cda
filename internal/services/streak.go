package services

import (
	"nutristreak/internal/calendar"
	"nutristreak/internal/models"
)

// AdvanceStreak applies one day's transition to rec. It is a no-op, reporting
// false, when rec was already advanced on today, unless that earlier
// transition saw no log and one has arrived since.
//
// A day with a log extends the streak when yesterday was logged (or the streak
// is at zero) and restarts it at 1 otherwise. A day without a log keeps the
// streak during a one-day grace period and breaks it once two calendar days
// have passed since the last update, or when yesterday carried no log either.
func AdvanceStreak(rec models.StreakRecord, today calendar.Day, loggedToday, loggedYesterday bool) (models.StreakRecord, bool) {
	if !rec.LastUpdateDay.IsZero() && rec.LastUpdateDay == today {
		if !loggedToday || rec.LastLogDay == today {
			return rec, false
		}
	}

	next := rec
	if loggedToday {
		if loggedYesterday || next.CurrentStreak == 0 {
			next.CurrentStreak++
		} else {
			next.CurrentStreak = 1
		}
		next.LastActiveStreak = next.CurrentStreak
		next.LastLogDay = today
	} else if streakLapsed(rec, today, loggedYesterday) {
		next.CurrentStreak = 0
		next.LastActiveStreak = 0
	}

	if next.CurrentStreak > next.MaxStreak {
		next.MaxStreak = next.CurrentStreak
	}
	next.LastUpdateDay = today
	return next, true
}

// streakLapsed is stricter than a bare "two days since last update" rule: a
// daily visitor who stops logging also lapses once yesterday carried no log.
func streakLapsed(rec models.StreakRecord, today calendar.Day, loggedYesterday bool) bool {
	if rec.LastUpdateDay.IsZero() {
		return true
	}
	if calendar.DaysBetween(rec.LastUpdateDay, today) >= 2 {
		return true
	}
	// Daily refreshes keep the gap at one day; without a log yesterday the
	// last confirmed activity is already two or more days back.
	return !loggedYesterday
}

// DisplayStreak is the value shown to the user: today's count once logged,
// otherwise the count as of the last logged day.
func DisplayStreak(rec models.StreakRecord, loggedToday bool) int {
	if loggedToday {
		return rec.CurrentStreak
	}
	return rec.LastActiveStreak
}

// LongestStreak returns the longest run of consecutive calendar days in days.
// Duplicates and ordering are irrelevant.
func LongestStreak(days []calendar.Day) int {
	if len(days) == 0 {
		return 0
	}
	uniq := make(map[calendar.Day]struct{}, len(days))
	sorted := make([]calendar.Day, 0, len(days))
	for _, d := range days {
		if _, ok := uniq[d]; ok {
			continue
		}
		uniq[d] = struct{}{}
		sorted = append(sorted, d)
	}
	sortDays(sorted)

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if calendar.DaysBetween(sorted[i-1], sorted[i]) == 1 {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 1
	}
	return longest
}
