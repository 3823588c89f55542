package domain

import (
	"slices"
	"time"
)

// DateKeyLayout is the layout of Attendance.DateKey.
const DateKeyLayout = "2006-01-02"

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLeave   = "leave"
	AttendanceSick    = "sick"
	AttendanceHoliday = "holiday"
)

var AttendanceStatuses = []string{
	AttendancePresent,
	AttendanceAbsent,
	AttendanceLeave,
	AttendanceSick,
	AttendanceHoliday,
}

func ValidAttendanceStatus(s string) bool {
	return slices.Contains(AttendanceStatuses, s)
}

// Attendance 考勤：每人每天一条（site, personnel, date_key 唯一）
type Attendance struct {
	ID          string    `json:"id"`
	Site        string    `json:"site"`
	PersonnelID string    `json:"personnelId"`
	DateKey     string    `json:"date"`
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
	RecordedBy  string    `json:"recordedBy,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DailySummary counts attendance statuses for one site and day.
type DailySummary struct {
	Site       string         `json:"site"`
	Date       string         `json:"date"`
	Total      int            `json:"total"`
	Counts     map[string]int `json:"counts"`
	Unrecorded int            `json:"unrecorded"`
}
