package database

import (
	"time"
)

// DayLayout is the wire and storage format of an attendance day.
const DayLayout = "2006-01-02"

// Class is a school class students belong to.
type Class struct {
	ID         int64
	ExternalID string // identifier in the school information system
	Name       string
	CreatedAt  time.Time
}

// Student is an enrollable identity. FaceEnrolled is true iff a face embedding row exists.
type Student struct {
	ID           int64
	ExternalID   string
	FullName     string
	NameKey      string // normalized name for lookups
	ClassID      *int64 // home class, nil when unassigned
	FaceEnrolled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OptionalClassID distinguishes "leave as is" (Set=false) from "clear" (Set=true, Value=nil).
type OptionalClassID struct {
	Set   bool
	Value *int64
}

// StudentUpdate is a partial update. Nil/unset fields are not touched.
type StudentUpdate struct {
	FullName *string
	NameKey  *string // set together with FullName
	ClassID  OptionalClassID
}

// IsEmpty reports whether the update would change nothing.
func (u StudentUpdate) IsEmpty() bool {
	return u.FullName == nil && !u.ClassID.Set
}

// FaceEmbedding is the single current embedding of a student.
type FaceEmbedding struct {
	StudentID int64
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time
}

// PoolScope selects the candidate pool for a verification. Nil ClassID means all enrolled students.
type PoolScope struct {
	ClassID *int64
}

// AttendanceRecord is the fact that a student was present in a class on a day.
// At most one exists per (StudentID, ClassID, Day).
type AttendanceRecord struct {
	ID              string
	StudentID       int64
	ClassID         int64
	Day             time.Time // calendar date, midnight UTC
	ConfidenceScore float64
	MarkedAt        time.Time

	// Joined for listings, empty on insert
	StudentName string
}

// AttendanceSummary aggregates one class on one day.
type AttendanceSummary struct {
	ClassID         int64     `json:"class_id"`
	Day             time.Time `json:"-"`
	TotalStudents   int       `json:"total_students"`
	PresentStudents int       `json:"present_students"`
	AttendanceRate  float64   `json:"attendance_rate"` // percent, two decimals
}

// CalendarDay returns the date of t in loc as midnight UTC, the canonical day key.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a canonical day key.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, s, time.UTC)
}
