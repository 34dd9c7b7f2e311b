package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"studycircle-backend/internal/models"
)

// Time-of-day buckets. Order matters: ties on session counts resolve to the
// earliest bucket in this list.
var timeBuckets = []string{"Morning", "Afternoon", "Evening", "Night"}

// Round1 rounds to one decimal, halves away from zero, matching the
// arithmetic the clients have always displayed.
func Round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

func timeOfDayBucket(t time.Time) string {
	switch hour := t.Hour(); {
	case hour >= 6 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 18:
		return "Afternoon"
	case hour >= 18:
		return "Evening"
	default:
		return "Night"
	}
}

// DailySummary is the computed aggregate for one user's local calendar day.
type DailySummary struct {
	TotalStudyTime     float64
	SessionCount       int
	Subjects           []string
	LongestSession     float64
	MostProductiveTime string
	Insights           []string
}

// BuildDailySummary folds a day's sessions into the materialized summary.
// Session times are interpreted in loc, the user's local zone, so the
// buckets follow the clock the user actually studied by.
func BuildDailySummary(sessions []*models.StudySession, loc *time.Location) DailySummary {
	var (
		total       float64
		longest     float64
		subjects    []string
		seen        = make(map[string]bool)
		bucketCount = make(map[string]int)
	)

	for _, s := range sessions {
		// Quantize each session to a tenth before accumulating so the
		// incremental fold reproduces this sum exactly.
		hours := Round1(SessionHours(s))
		total += hours
		if hours > longest {
			longest = hours
		}
		if s.Subject != "" && !seen[s.Subject] {
			seen[s.Subject] = true
			subjects = append(subjects, s.Subject)
		}
		bucketCount[timeOfDayBucket(s.AnchorTime().In(loc))]++
	}

	summary := DailySummary{
		TotalStudyTime:     Round1(total),
		SessionCount:       len(sessions),
		Subjects:           subjects,
		LongestSession:     Round1(longest),
		MostProductiveTime: mostProductiveBucket(bucketCount),
	}
	summary.Insights = buildInsights(summary)
	return summary
}

// mostProductiveBucket picks the bucket where the most sessions started, not
// where the most hours landed. A day of only zero-length sessions still gets
// a bucket.
func mostProductiveBucket(bucketCount map[string]int) string {
	best := ""
	bestCount := 0
	for _, bucket := range timeBuckets {
		if count := bucketCount[bucket]; count > bestCount {
			best = bucket
			bestCount = count
		}
	}
	return best
}

// buildInsights derives the motivational lines shown on a daily post. The
// rules are intentionally a flat threshold table.
func buildInsights(s DailySummary) []string {
	if s.TotalStudyTime == 0 {
		return []string{"Start a study session to see your daily insights!"}
	}

	insights := []string{
		fmt.Sprintf("You studied for %.1f hours today.", s.TotalStudyTime),
	}

	switch {
	case s.TotalStudyTime < 1:
		insights = append(insights, "Every minute counts - nice work getting started!")
	case s.TotalStudyTime >= 3 && s.TotalStudyTime <= 6:
		insights = append(insights, "Great job! That was a really productive day.")
	case s.TotalStudyTime > 6:
		insights = append(insights, "Incredible dedication! That was a marathon study day.")
	}

	if s.SessionCount > 1 {
		insights = append(insights,
			fmt.Sprintf("You completed %d study sessions.", s.SessionCount))
	}
	if len(s.Subjects) > 1 {
		insights = append(insights,
			"You covered multiple subjects: "+strings.Join(s.Subjects, ", ")+".")
	}
	if s.LongestSession > 2 {
		insights = append(insights,
			fmt.Sprintf("Your longest session ran %.1f hours of deep focus.", s.LongestSession))
	}
	if s.MostProductiveTime == "Evening" || s.MostProductiveTime == "Night" {
		insights = append(insights,
			"Night owl alert - most of your studying happened after dark.")
	}

	return insights
}

// incrementalInsights is the cheaper rule set used when folding a single new
// session into an existing post. It deliberately skips the longest-session
// and time-of-day lines: those need the whole day's sessions, and the
// incremental path only sees one.
func incrementalInsights(total float64, count int, subjects []string) []string {
	insights := []string{
		fmt.Sprintf("You studied for %.1f hours today.", total),
	}
	if count > 1 {
		insights = append(insights,
			fmt.Sprintf("You completed %d study sessions.", count))
	}
	if len(subjects) > 1 {
		insights = append(insights,
			"You covered multiple subjects: "+strings.Join(subjects, ", ")+".")
	}
	return insights
}
