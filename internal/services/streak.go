package services

import "time"

const dayKeyLayout = "2006-01-02"

// ComputeStreak counts consecutive local calendar days with at least one
// session, walking backwards from today. The streak anchors on today or,
// when today has no session yet, on yesterday; anything older means the
// chain is broken and the streak is zero.
func ComputeStreak(anchorTimes []time.Time, now time.Time, loc *time.Location) int {
	if len(anchorTimes) == 0 {
		return 0
	}

	days := make(map[string]bool, len(anchorTimes))
	for _, t := range anchorTimes {
		days[t.In(loc).Format(dayKeyLayout)] = true
	}

	local := now.In(loc)
	cursor := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if !days[cursor.Format(dayKeyLayout)] {
		cursor = cursor.AddDate(0, 0, -1)
		if !days[cursor.Format(dayKeyLayout)] {
			return 0
		}
	}

	streak := 0
	for days[cursor.Format(dayKeyLayout)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
