package models

// UserProfile ค่าใน key userData ใช้เป็นข้อมูลสำรองเมื่อยังไม่มีการเช็คชื่อ
// ฟิลด์ตัวเลขเป็น pointer เพื่อแยก "ไม่มีค่า" ออกจาก "ค่าเป็น 0"
type UserProfile struct {
	Username       string `json:"username,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Role           string `json:"role,omitempty" validate:"omitempty,oneof=student teacher admin"`
	AttendedDays   *int   `json:"attendedDays,omitempty" validate:"omitempty,min=0"`
	AbsentDays     *int   `json:"absentDays,omitempty" validate:"omitempty,min=0"`
	LateDays       *int   `json:"lateDays,omitempty" validate:"omitempty,min=0"`
	AttendanceRate *int   `json:"attendanceRate,omitempty" validate:"omitempty,min=0,max=100"`
}

// Int returns a pointer to v, for filling optional profile fields.
func Int(v int) *int {
	return &v
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// AttendedDaysOr คืนค่า attendedDays หรือ def ถ้าไม่มีค่า
func (u *UserProfile) AttendedDaysOr(def int) int {
	if u == nil {
		return def
	}
	return intOr(u.AttendedDays, def)
}

// AbsentDaysOr คืนค่า absentDays หรือ def ถ้าไม่มีค่า
func (u *UserProfile) AbsentDaysOr(def int) int {
	if u == nil {
		return def
	}
	return intOr(u.AbsentDays, def)
}

// LateDaysOr คืนค่า lateDays หรือ def ถ้าไม่มีค่า
func (u *UserProfile) LateDaysOr(def int) int {
	if u == nil {
		return def
	}
	return intOr(u.LateDays, def)
}

// AttendanceRateOr คืนค่า attendanceRate หรือ def ถ้าไม่มีค่า
func (u *UserProfile) AttendanceRateOr(def int) int {
	if u == nil {
		return def
	}
	return intOr(u.AttendanceRate, def)
}
