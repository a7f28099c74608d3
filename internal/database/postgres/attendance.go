package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
// Idempotency rests on the UNIQUE (student_id, class_id, day) constraint.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func dayArg(day time.Time) string {
	return day.Format(database.DayLayout)
}

func normalizeDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InsertMark inserts the record unless its key exists. Returns false when already marked.
func (r *AttendanceRepository) InsertMark(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (id, student_id, class_id, day, confidence_score, marked_at)
		VALUES ($1, $2, $3, $4::date, $5, $6)
		ON CONFLICT (student_id, class_id, day) DO NOTHING
	`, rec.ID, rec.StudentID, rec.ClassID, dayArg(rec.Day), rec.ConfidenceScore, rec.MarkedAt)
	if err != nil {
		return false, mapForeignKey(err, "insert attendance")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attendance rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkExists checks whether the (student, class, day) key is already marked.
func (r *AttendanceRepository) MarkExists(ctx context.Context, studentID, classID int64, day time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM attendance WHERE student_id = $1 AND class_id = $2 AND day = $3::date)
	`, studentID, classID, dayArg(day)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

const attendanceColumns = `a.id, a.student_id, a.class_id, a.day, a.confidence_score, a.marked_at, s.full_name`

func scanAttendance(row rowScanner) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	if err := row.Scan(
		&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Day,
		&rec.ConfidenceScore, &rec.MarkedAt, &rec.StudentName,
	); err != nil {
		return nil, err
	}
	rec.Day = normalizeDay(rec.Day)
	return &rec, nil
}

// GetMark retrieves the record for a key, returns nil if not marked.
func (r *AttendanceRepository) GetMark(ctx context.Context, studentID, classID int64, day time.Time) (*database.AttendanceRecord, error) {
	rec, err := scanAttendance(r.pool.QueryRow(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.student_id = $1 AND a.class_id = $2 AND a.day = $3::date
	`, studentID, classID, dayArg(day)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	return rec, nil
}

func (r *AttendanceRepository) queryRecords(ctx context.Context, where string, args ...any) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE `+where+`
		ORDER BY a.marked_at, a.student_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

// ListByClass returns a class's records ordered by mark time, optionally for one day.
func (r *AttendanceRepository) ListByClass(ctx context.Context, classID int64, day *time.Time) ([]database.AttendanceRecord, error) {
	if day == nil {
		return r.queryRecords(ctx, "a.class_id = $1", classID)
	}
	return r.queryRecords(ctx, "a.class_id = $1 AND a.day = $2::date", classID, dayArg(*day))
}

// ListByDay returns all records of a day ordered by mark time, optionally for one class.
func (r *AttendanceRepository) ListByDay(ctx context.Context, day time.Time, classID *int64) ([]database.AttendanceRecord, error) {
	if classID == nil {
		return r.queryRecords(ctx, "a.day = $1::date", dayArg(day))
	}
	return r.queryRecords(ctx, "a.day = $1::date AND a.class_id = $2", dayArg(day), *classID)
}

// Compile-time interface check
var _ database.AttendanceWriter = (*AttendanceRepository)(nil)
