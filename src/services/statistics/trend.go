package statistics

import "Backend-Attendance-Sync/src/models"

const (
	trendLimit = 99
	// trendFromZero is reported when the baseline is zero but the value is not.
	trendFromZero = 5
)

// ComputeTrend compares current against previous per metric. previous may be
// nil (no baseline); a missing previous rate counts as DefaultRate.
func ComputeTrend(previous *models.StatisticsSnapshot, current models.StatisticsSnapshot) models.Trend {
	var prev models.StatisticsSnapshot
	if previous != nil {
		prev = *previous
	}
	prevRate := prev.AttendanceRate
	if prevRate == 0 {
		prevRate = DefaultRate
	}

	return models.Trend{
		models.MetricPresent: percentChange(prev.TotalPresent, current.TotalPresent),
		models.MetricAbsent:  percentChange(prev.TotalAbsent, current.TotalAbsent),
		models.MetricLate:    percentChange(prev.TotalLate, current.TotalLate),
		models.MetricRate:    percentChange(prevRate, current.AttendanceRate),
	}
}

func percentChange(prev, cur int) int {
	var t int
	switch {
	case prev > 0:
		t = roundDiv(100*(cur-prev), prev)
	case cur > 0:
		t = trendFromZero
	}
	if t > trendLimit {
		return trendLimit
	}
	if t < -trendLimit {
		return -trendLimit
	}
	return t
}
