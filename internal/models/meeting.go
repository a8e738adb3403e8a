package models

import (
	"strings"
	"time"
)

var (
	FirestoreMeetingsCollection = "meetings"
)

const (
	// MinGroupSize and MaxGroupSize bound both minParticipants and maxParticipants.
	MinGroupSize = 2
	MaxGroupSize = 20
)

type MeetingStatus string

const (
	StatusActive MeetingStatus = "active"
)

// Member identifies a user on a meeting document.
type Member struct {
	ID    string `json:"id" mapstructure:"id"`
	Email string `json:"email" mapstructure:"email"`
	Name  string `json:"name" mapstructure:"name"`
}

// Participant is a Member holding a slot in a meeting.
type Participant struct {
	ID       string    `json:"id" mapstructure:"id"`
	Email    string    `json:"email" mapstructure:"email"`
	Name     string    `json:"name" mapstructure:"name"`
	JoinedAt time.Time `json:"joinedAt" mapstructure:"joinedAt"`
}

type Meeting struct {
	ID              string        `json:"id" mapstructure:"id"`
	CourseID        string        `json:"courseId" mapstructure:"courseId"`
	CourseName      string        `json:"courseName,omitempty" mapstructure:"courseName"`
	MeetingTime     time.Time     `json:"meetingTime" mapstructure:"meetingTime"`
	Location        string        `json:"location" mapstructure:"location"`
	MinParticipants int           `json:"minParticipants" mapstructure:"minParticipants"`
	MaxParticipants int           `json:"maxParticipants" mapstructure:"maxParticipants"`
	Description     string        `json:"description,omitempty" mapstructure:"description"`
	CreatedBy       Member        `json:"createdBy" mapstructure:"createdBy"`
	Participants    []Participant `json:"participants" mapstructure:"participants"`
	// ParticipantIDs mirrors Participants so membership can be queried with array-contains.
	ParticipantIDs []string      `json:"participantIds" mapstructure:"participantIds"`
	CreatedAt      time.Time     `json:"createdAt" mapstructure:"createdAt"`
	Status         MeetingStatus `json:"status" mapstructure:"status"`
}

// DisplayCourseID returns the course ID the way it is shown to users.
func (m *Meeting) DisplayCourseID() string {
	return strings.ToUpper(m.CourseID)
}

func (m *Meeting) HasParticipant(userID string) bool {
	for _, p := range m.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func (m *Meeting) IsCreator(userID string) bool {
	return m.CreatedBy.ID == userID
}

func (m *Meeting) IsFull() bool {
	return len(m.Participants) >= m.MaxParticipants
}

func (m *Meeting) SpotsLeft() int {
	if m.IsFull() {
		return 0
	}
	return m.MaxParticipants - len(m.Participants)
}

// ReachedMinimum reports whether enough people have joined for the meeting to go ahead.
func (m *Meeting) ReachedMinimum() bool {
	return len(m.Participants) >= m.MinParticipants
}

func (m *Meeting) IsPast(now time.Time) bool {
	return !m.MeetingTime.After(now)
}

// CreateMeetingRequest is the parameter struct for the CreateMeeting function.
type CreateMeetingRequest struct {
	CourseID        string    `json:"courseId"`
	CourseName      string    `json:"courseName"`
	MeetingTime     time.Time `json:"meetingTime"`
	Location        string    `json:"location"`
	MinParticipants int       `json:"minParticipants"`
	MaxParticipants int       `json:"maxParticipants"`
	Description     string    `json:"description"`
}

// SearchMeetingsRequest narrows a listing to one course. An empty CourseID lists every active meeting.
type SearchMeetingsRequest struct {
	CourseID string `json:"courseId"`
}

// NormalizeCourseID is the form course IDs are stored and matched in.
func NormalizeCourseID(courseID string) string {
	return strings.ToLower(strings.TrimSpace(courseID))
}
