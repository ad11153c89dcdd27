package models

import (
	"encoding/json"
	"time"
)

// StatisticsSnapshot สถิติการเข้าเรียนที่คำนวณใหม่ทุกครั้ง (ห้ามแก้ด้วยมือ)
type StatisticsSnapshot struct {
	TotalPresent   int           `json:"totalPresent"`
	TotalAbsent    int           `json:"totalAbsent"`
	TotalLate      int           `json:"totalLate"`
	TotalLeave     int           `json:"totalLeave"`
	AttendanceRate int           `json:"attendanceRate"`
	SubjectStats   []SubjectStat `json:"subjectStats,omitempty"`
	LastUpdated    time.Time     `json:"lastUpdated"`
}

// Total คืนผลรวมของทั้งสี่สถานะ
func (s StatisticsSnapshot) Total() int {
	return s.TotalPresent + s.TotalAbsent + s.TotalLate + s.TotalLeave
}

// SameCounts compares two snapshots ignoring LastUpdated.
func (s StatisticsSnapshot) SameCounts(o StatisticsSnapshot) bool {
	if s.TotalPresent != o.TotalPresent ||
		s.TotalAbsent != o.TotalAbsent ||
		s.TotalLate != o.TotalLate ||
		s.TotalLeave != o.TotalLeave ||
		s.AttendanceRate != o.AttendanceRate ||
		len(s.SubjectStats) != len(o.SubjectStats) {
		return false
	}
	for i := range s.SubjectStats {
		if s.SubjectStats[i] != o.SubjectStats[i] {
			return false
		}
	}
	return true
}

// SubjectStat สถิติรายวิชา (ไม่นับการลา)
type SubjectStat struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Late    int    `json:"late"`
	Rate    int    `json:"rate"`
}

// Trend metric names, matching the snapshot JSON fields.
const (
	MetricPresent = "totalPresent"
	MetricAbsent  = "totalAbsent"
	MetricLate    = "totalLate"
	MetricRate    = "attendanceRate"
)

// Trend เปอร์เซ็นต์การเปลี่ยนแปลงเทียบกับสถิติครั้งก่อน ต่อ metric
type Trend map[string]int

// Direction คืน "up", "down" หรือ "neutral" สำหรับ badge บนหน้าจอ
func (t Trend) Direction(metric string) string {
	switch v := t[metric]; {
	case v > 0:
		return "up"
	case v < 0:
		return "down"
	default:
		return "neutral"
	}
}

// StatisticsExport ไฟล์ส่งออก/นำเข้าสถิติ
type StatisticsExport struct {
	Statistics *StatisticsSnapshot `json:"statistics" validate:"required"`
	ExportDate time.Time           `json:"exportDate"`
	User       json.RawMessage     `json:"user,omitempty"`
}
