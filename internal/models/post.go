package models

import (
	"time"

	"github.com/google/uuid"
)

// PostDateLayout matches JavaScript's Date.toDateString(), e.g.
// "Mon Jan 02 2006". Post ids built with it must stay byte-identical to the
// ids already stored by the mobile clients.
const PostDateLayout = "Mon Jan 02 2006"

// Post is the materialized daily aggregate: one per user per calendar day.
type Post struct {
	ID                 string    `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	PostDate           time.Time `json:"post_date"`
	TotalStudyTime     float64   `json:"total_study_time"` // hours, 1 decimal
	SessionCount       int       `json:"session_count"`
	Subjects           []string  `json:"subjects"`
	LongestSession     float64   `json:"longest_session"` // hours, 1 decimal
	Insights           []string  `json:"insights"`
	MostProductiveTime string    `json:"most_productive_time"`
	LikesCount         int       `json:"likes_count"`
	Author             Profile   `json:"author"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PostID builds the composite document key for a user's aggregate on the
// given calendar day.
func PostID(userID uuid.UUID, day time.Time) string {
	return userID.String() + "-" + day.Format(PostDateLayout)
}
