package analytics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"studygroup/internal/models"
)

func createMeeting(participants int, min int, max int, meetingTime time.Time) *models.Meeting {
	m := &models.Meeting{
		CourseID:        "cs101",
		MeetingTime:     meetingTime,
		MinParticipants: min,
		MaxParticipants: max,
	}
	for i := 0; i < participants; i++ {
		id := fmt.Sprintf("%d", i)
		m.Participants = append(m.Participants, models.Participant{ID: id})
		m.ParticipantIDs = append(m.ParticipantIDs, id)
	}
	return m
}

func createMeetings(now time.Time) []*models.Meeting {
	return []*models.Meeting{
		// Full, viable, upcoming
		createMeeting(4, 2, 4, now.Add(time.Hour)),
		// Viable, upcoming
		createMeeting(2, 2, 8, now.Add(2*time.Hour)),
		// Below minimum, past
		createMeeting(1, 3, 5, now.Add(-time.Hour)),
	}
}

func TestGenerateCourseStats(t *testing.T) {
	now := time.Now()
	stats := GenerateCourseStats("cs101", createMeetings(now), now)

	if stats.NumMeetings != 3 {
		t.Errorf("Expected 3 meetings, got %d", stats.NumMeetings)
	}
	if stats.NumUpcoming != 2 {
		t.Errorf("Expected 2 upcoming meetings, got %d", stats.NumUpcoming)
	}
	if stats.NumFull != 1 {
		t.Errorf("Expected 1 full meeting, got %d", stats.NumFull)
	}
	if stats.NumViable != 2 {
		t.Errorf("Expected 2 viable meetings, got %d", stats.NumViable)
	}
	if stats.TotalParticipants != 7 {
		t.Errorf("Expected 7 participants, got %d", stats.TotalParticipants)
	}

	// Fill rates are 100, 25 and 20 percent.
	if !approximatelyEqual(stats.FillRate.P50, 25) {
		t.Errorf("Expected median fill rate 25, got %f", stats.FillRate.P50)
	}
	if !approximatelyEqual(stats.GroupSize.P50, 2) {
		t.Errorf("Expected median group size 2, got %f", stats.GroupSize.P50)
	}
}

func TestGenerateCourseStatsWithoutMeetings(t *testing.T) {
	stats := GenerateCourseStats("cs101", nil, time.Now())
	if stats.NumMeetings != 0 || stats.GroupSize != (models.Percentiles{}) {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}

func approximatelyEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 0.00001
}

func TestCalculatePercentiles(t *testing.T) {
	basicDistribution := []int{2, 5, 10}
	basicPercentiles := CalculatePercentiles(basicDistribution)
	expectedBasicPercentiles := &models.Percentiles{
		P50: 5,
		P90: 9,
		P99: 9.9,
	}

	if !approximatelyEqual(basicPercentiles.P50, expectedBasicPercentiles.P50) {
		t.Errorf("Expected P50 to be %f, got %f", expectedBasicPercentiles.P50, basicPercentiles.P50)
	}
	if !approximatelyEqual(basicPercentiles.P90, expectedBasicPercentiles.P90) {
		t.Errorf("Expected P90 to be %f, got %f", expectedBasicPercentiles.P90, basicPercentiles.P90)
	}
	if !approximatelyEqual(basicPercentiles.P99, expectedBasicPercentiles.P99) {
		t.Errorf("Expected P99 to be %f, got %f", expectedBasicPercentiles.P99, basicPercentiles.P99)
	}
}
