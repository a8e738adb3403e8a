package models

import "time"

// Percentiles is a generic struct for storing percentiles for any distribution of data.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// CourseStats summarizes the meetings of one course at a point in time.
type CourseStats struct {
	CourseID    string    `json:"courseId"`
	GeneratedAt time.Time `json:"generatedAt"`

	NumMeetings int `json:"numMeetings"`
	// NumUpcoming are the meetings whose time has not passed yet.
	NumUpcoming int `json:"numUpcoming"`
	// NumFull are the meetings with no spots left.
	NumFull int `json:"numFull"`
	// NumViable are the meetings that reached their minimum number of participants.
	NumViable         int `json:"numViable"`
	TotalParticipants int `json:"totalParticipants"`

	// GroupSize is a distribution over the number of participants per meeting.
	GroupSize Percentiles `json:"groupSize"`
	// FillRate is a distribution over the percentage of capacity taken in each meeting.
	FillRate Percentiles `json:"fillRate"`
}
