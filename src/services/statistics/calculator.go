package statistics

import (
	"time"

	"Backend-Attendance-Sync/src/models"
)

// Profile fallback values used when neither raw records nor profile fields exist.
const (
	DefaultPresent = 18
	DefaultAbsent  = 2
	DefaultLate    = 1
	DefaultRate    = 90
)

// Calculator แปลง record ดิบเป็น StatisticsSnapshot (ไม่มี side effect)
type Calculator struct {
	// Now stamps LastUpdated; nil means time.Now.
	Now func() time.Time
}

type counters struct {
	present, absent, late, leave int
}

func (c *counters) add(s models.AttendanceStatus) {
	switch s {
	case models.StatusPresent:
		c.present++
	case models.StatusAbsent:
		c.absent++
	case models.StatusLate:
		c.late++
	case models.StatusLeave:
		c.leave++
	}
}

func (c counters) total() int {
	return c.present + c.absent + c.late + c.leave
}

func (c *Calculator) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Calculate aggregates every grade's records. When no record has a recognised
// status the profile counters (or the package defaults) are used instead.
func (c *Calculator) Calculate(data *models.AttendanceData, profile *models.UserProfile) models.StatisticsSnapshot {
	var cnt counters
	if data != nil {
		for _, records := range data.GradeData {
			for _, r := range records {
				cnt.add(r.Status)
			}
		}
	}

	if cnt.total() == 0 {
		cnt = counters{
			present: profile.AttendedDaysOr(DefaultPresent),
			absent:  profile.AbsentDaysOr(DefaultAbsent),
			late:    profile.LateDaysOr(DefaultLate),
		}
	}

	rate, ok := Rate(cnt.present+cnt.late, cnt.total())
	if !ok {
		rate = profile.AttendanceRateOr(DefaultRate)
	}

	return models.StatisticsSnapshot{
		TotalPresent:   cnt.present,
		TotalAbsent:    cnt.absent,
		TotalLate:      cnt.late,
		TotalLeave:     cnt.leave,
		AttendanceRate: rate,
		SubjectStats:   SubjectStats(data),
		LastUpdated:    c.now(),
	}
}

// CalculateForUser counts only records that belong to username or carry no
// username at all. There is no profile fallback: an empty match yields zeros.
func (c *Calculator) CalculateForUser(data *models.AttendanceData, username string) models.StatisticsSnapshot {
	var cnt counters
	if data != nil {
		for _, records := range data.GradeData {
			for _, r := range records {
				if r.Username == "" || r.Username == username {
					cnt.add(r.Status)
				}
			}
		}
	}
	rate, _ := Rate(cnt.present+cnt.late, cnt.total())

	return models.StatisticsSnapshot{
		TotalPresent:   cnt.present,
		TotalAbsent:    cnt.absent,
		TotalLate:      cnt.late,
		TotalLeave:     cnt.leave,
		AttendanceRate: rate,
		LastUpdated:    c.now(),
	}
}

// SubjectStats counts present/absent/late per listed subject. Subjects with no
// matching record are omitted.
func SubjectStats(data *models.AttendanceData) []models.SubjectStat {
	if data == nil || len(data.Subjects) == 0 {
		return nil
	}
	var out []models.SubjectStat
	for _, subj := range data.Subjects {
		var cnt counters
		for _, records := range data.GradeData {
			for _, r := range records {
				if r.SubjectID == subj.ID && r.Status != models.StatusLeave {
					cnt.add(r.Status)
				}
			}
		}
		total := cnt.present + cnt.absent + cnt.late
		if total == 0 {
			continue
		}
		rate, _ := Rate(cnt.present+cnt.late, total)
		out = append(out, models.SubjectStat{
			ID:      string(subj.ID),
			Name:    subj.Name,
			Code:    subj.Code,
			Present: cnt.present,
			Absent:  cnt.absent,
			Late:    cnt.late,
			Rate:    rate,
		})
	}
	return out
}

// Rate returns round-half-up(100*attended/total). ok is false when total is 0.
func Rate(attended, total int) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	return roundDiv(100*attended, total), true
}

// roundDiv divides rounding half up (toward +Inf), matching Math.round on both signs.
func roundDiv(num, den int) int {
	if den < 0 {
		num, den = -num, -den
	}
	return floorDiv(2*num+den, 2*den)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
