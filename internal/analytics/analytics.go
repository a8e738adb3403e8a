package analytics

import (
	"sort"
	"time"

	"studygroup/internal/models"
)

// GenerateCourseStats summarizes the given meetings of a course. Does not need/use any Firebase connection.
func GenerateCourseStats(courseID string, meetings []*models.Meeting, now time.Time) *models.CourseStats {
	stats := &models.CourseStats{
		CourseID:    courseID,
		GeneratedAt: now,
		NumMeetings: len(meetings),
	}

	groupSizes := make([]int, 0, len(meetings))
	fillRates := make([]int, 0, len(meetings))
	for _, m := range meetings {
		size := len(m.Participants)
		stats.TotalParticipants += size
		groupSizes = append(groupSizes, size)

		if m.MaxParticipants > 0 {
			fillRates = append(fillRates, size*100/m.MaxParticipants)
		}
		if !m.IsPast(now) {
			stats.NumUpcoming++
		}
		if m.IsFull() {
			stats.NumFull++
		}
		if m.ReachedMinimum() {
			stats.NumViable++
		}
	}

	stats.GroupSize = CalculatePercentiles(groupSizes)
	stats.FillRate = CalculatePercentiles(fillRates)

	return stats
}

func CalculatePercentiles(data []int) models.Percentiles {
	if len(data) == 0 {
		return models.Percentiles{}
	}

	sort.Ints(data)

	calculatePercentile := func(percentile float64) float64 {
		rank := percentile / 100 * float64(len(data)-1)
		rankInt := int(rank)

		// If the rank is an integer, return the value at that index
		if rank == float64(rankInt) {
			return float64(data[rankInt])
		}

		// Otherwise, linearly interpolate
		baseline := data[rankInt]
		interpolation := (rank - float64(rankInt)) * float64(data[rankInt+1]-data[rankInt])

		return float64(baseline) + interpolation
	}

	return models.Percentiles{
		P50: calculatePercentile(50),
		P90: calculatePercentile(90),
		P99: calculatePercentile(99),
	}
}
