package models

import (
	"bytes"
	"encoding/json"
)

// AttendanceStatus สถานะการเข้าเรียนของแต่ละ record
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present" // มาเรียน
	StatusAbsent  AttendanceStatus = "absent"  // ขาดเรียน
	StatusLate    AttendanceStatus = "late"    // มาสาย
	StatusLeave   AttendanceStatus = "leave"   // ลา
)

// Known reports whether the status is one of the four counted statuses.
func (s AttendanceStatus) Known() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusLeave:
		return true
	}
	return false
}

// UnmarshalJSON accepts only JSON strings; any other value becomes an
// unknown status so the record is skipped instead of failing the document.
func (s *AttendanceStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	*s = AttendanceStatus(v)
	return nil
}

// ID is a string or numeric identifier; the portal pages write both.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*id = ID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	*id = ""
	return nil
}

// AttendanceRecord การเช็คชื่อหนึ่งรายการ (เขียนโดยหน้า check-in)
type AttendanceRecord struct {
	Status    AttendanceStatus `json:"status,omitempty"`
	SubjectID ID               `json:"subjectId,omitempty"`
	Username  string           `json:"username,omitempty"`
	StudentID ID               `json:"studentId,omitempty"`
	Name      string           `json:"name,omitempty"`
}

// Subject รายวิชา
type Subject struct {
	ID   ID     `json:"id" validate:"required"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// AttendanceData ค่าใน key studentAttendanceData
type AttendanceData struct {
	GradeData map[string][]AttendanceRecord `json:"gradeData" validate:"dive,keys,required,endkeys"`
	Subjects  []Subject                     `json:"subjects,omitempty" validate:"omitempty,dive"`
}

// UnmarshalJSON decodes every record and subject on its own. A record or
// subject that cannot be decoded is dropped; the rest of the document is kept.
func (d *AttendanceData) UnmarshalJSON(b []byte) error {
	var raw struct {
		GradeData map[string]json.RawMessage `json:"gradeData"`
		Subjects  json.RawMessage            `json:"subjects"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	d.GradeData = make(map[string][]AttendanceRecord, len(raw.GradeData))
	for grade, list := range raw.GradeData {
		var items []json.RawMessage
		if err := json.Unmarshal(list, &items); err != nil {
			continue
		}
		records := make([]AttendanceRecord, 0, len(items))
		for _, item := range items {
			var rec AttendanceRecord
			if err := json.Unmarshal(item, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		d.GradeData[grade] = records
	}

	d.Subjects = nil
	var subjects []json.RawMessage
	if err := json.Unmarshal(raw.Subjects, &subjects); err == nil {
		for _, item := range subjects {
			var subj Subject
			if err := json.Unmarshal(item, &subj); err != nil {
				continue
			}
			d.Subjects = append(d.Subjects, subj)
		}
	}
	return nil
}

// RecordCount คืนจำนวน record ทั้งหมดทุกระดับชั้น
func (d *AttendanceData) RecordCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, records := range d.GradeData {
		n += len(records)
	}
	return n
}
