package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Reporter lists attendance and computes per-class summaries.
type Reporter struct {
	records database.AttendanceReader
	roster  database.RosterReader
	gate    *Gate
}

// NewReporter creates a new reporter. The gate supplies "today".
func NewReporter(records database.AttendanceReader, roster database.RosterReader, gate *Gate) *Reporter {
	return &Reporter{records: records, roster: roster, gate: gate}
}

func (r *Reporter) requireClass(ctx context.Context, classID int64) error {
	class, err := r.roster.GetClass(ctx, classID)
	if err != nil {
		return fmt.Errorf("get class: %w", err)
	}
	if class == nil {
		return database.ErrClassNotFound
	}
	return nil
}

// Today lists the marks of the current day, optionally for one class.
func (r *Reporter) Today(ctx context.Context, classID *int64) ([]database.AttendanceRecord, error) {
	records, err := r.records.ListByDay(ctx, r.gate.Today(), classID)
	if err != nil {
		return nil, fmt.Errorf("list today's attendance: %w", err)
	}
	return records, nil
}

// ByClass lists a class's marks, optionally for one day.
func (r *Reporter) ByClass(ctx context.Context, classID int64, day *time.Time) ([]database.AttendanceRecord, error) {
	if err := r.requireClass(ctx, classID); err != nil {
		return nil, err
	}
	records, err := r.records.ListByClass(ctx, classID, day)
	if err != nil {
		return nil, fmt.Errorf("list class attendance: %w", err)
	}
	return records, nil
}

// Summary counts present students of a class on a day (today when day is nil).
// Both counts are taken over the current roster, so marks left in the class by
// students who have since moved elsewhere are not counted.
func (r *Reporter) Summary(ctx context.Context, classID int64, day *time.Time) (*database.AttendanceSummary, error) {
	if err := r.requireClass(ctx, classID); err != nil {
		return nil, err
	}

	d := r.gate.Today()
	if day != nil {
		d = *day
	}

	students, err := r.roster.ListStudents(ctx, &classID)
	if err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	records, err := r.records.ListByClass(ctx, classID, &d)
	if err != nil {
		return nil, fmt.Errorf("list class attendance: %w", err)
	}

	enrolled := make(map[int64]bool, len(students))
	for _, s := range students {
		enrolled[s.ID] = true
	}
	present := 0
	for _, rec := range records {
		if enrolled[rec.StudentID] {
			present++
			enrolled[rec.StudentID] = false
		}
	}

	return &database.AttendanceSummary{
		ClassID:         classID,
		Day:             d,
		TotalStudents:   len(students),
		PresentStudents: present,
		AttendanceRate:  Rate(present, len(students)),
	}, nil
}

// Rate returns present/total as a percentage rounded to two decimals, 0 for an empty class.
func Rate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}
