package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// RosterRepository provides PostgreSQL-backed class and student storage.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a new PostgreSQL roster repository.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

const studentColumns = `id, external_id, full_name, name_key, class_id, face_enrolled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*database.Student, error) {
	var s database.Student
	var classID sql.NullInt64
	if err := row.Scan(
		&s.ID, &s.ExternalID, &s.FullName, &s.NameKey, &classID,
		&s.FaceEnrolled, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if classID.Valid {
		s.ClassID = &classID.Int64
	}
	return &s, nil
}

func (r *RosterRepository) queryStudents(ctx context.Context, query string, args ...any) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// GetClass retrieves a class by ID, returns nil if not found.
func (r *RosterRepository) GetClass(ctx context.Context, id int64) (*database.Class, error) {
	var c database.Class
	err := r.pool.QueryRow(ctx,
		"SELECT id, external_id, name, created_at FROM classes WHERE id = $1", id,
	).Scan(&c.ID, &c.ExternalID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query class: %w", err)
	}
	return &c, nil
}

// GetStudent retrieves a student by ID, returns nil if not found.
func (r *RosterRepository) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}
	return s, nil
}

// GetStudentByExternalID retrieves a student by school system ID, returns nil if not found.
func (r *RosterRepository) GetStudentByExternalID(ctx context.Context, externalID string) (*database.Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx,
		"SELECT "+studentColumns+" FROM students WHERE external_id = $1", externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query student by external id: %w", err)
	}
	return s, nil
}

// FindStudentsByNameKey returns students whose normalized name equals key.
func (r *RosterRepository) FindStudentsByNameKey(ctx context.Context, key string) ([]database.Student, error) {
	return r.queryStudents(ctx,
		"SELECT "+studentColumns+" FROM students WHERE name_key = $1 ORDER BY id", key)
}

// ListStudents returns students ordered by ID, optionally restricted to one class.
func (r *RosterRepository) ListStudents(ctx context.Context, classID *int64) ([]database.Student, error) {
	if classID == nil {
		return r.queryStudents(ctx, "SELECT "+studentColumns+" FROM students ORDER BY id")
	}
	return r.queryStudents(ctx,
		"SELECT "+studentColumns+" FROM students WHERE class_id = $1 ORDER BY id", *classID)
}

// CountStudents returns the number of students in a class.
func (r *RosterRepository) CountStudents(ctx context.Context, classID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students WHERE class_id = $1", classID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// UpsertClass inserts or updates a class by external ID.
func (r *RosterRepository) UpsertClass(ctx context.Context, class *database.Class) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO classes (external_id, name)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at
	`, class.ExternalID, class.Name).Scan(&class.ID, &class.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert class: %w", err)
	}
	return nil
}

// UpsertStudent inserts or updates a student by external ID. face_enrolled is left untouched.
func (r *RosterRepository) UpsertStudent(ctx context.Context, student *database.Student) error {
	var classID sql.NullInt64
	if student.ClassID != nil {
		classID = sql.NullInt64{Int64: *student.ClassID, Valid: true}
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (external_id, full_name, name_key, class_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			name_key = EXCLUDED.name_key,
			class_id = EXCLUDED.class_id,
			updated_at = NOW()
		RETURNING id, face_enrolled, created_at, updated_at
	`, student.ExternalID, student.FullName, student.NameKey, classID,
	).Scan(&student.ID, &student.FaceEnrolled, &student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

// UpdateStudent applies a partial update. Returns database.ErrNotFound for unknown IDs.
func (r *RosterRepository) UpdateStudent(ctx context.Context, id int64, update database.StudentUpdate) error {
	if update.IsEmpty() {
		s, err := r.GetStudent(ctx, id)
		if err != nil {
			return err
		}
		if s == nil {
			return database.ErrNotFound
		}
		return nil
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	if update.FullName != nil {
		args = append(args, *update.FullName)
		sets = append(sets, fmt.Sprintf("full_name = $%d", len(args)))
	}
	if update.NameKey != nil {
		args = append(args, *update.NameKey)
		sets = append(sets, fmt.Sprintf("name_key = $%d", len(args)))
	}
	if update.ClassID.Set {
		var classID sql.NullInt64
		if update.ClassID.Value != nil {
			classID = sql.NullInt64{Int64: *update.ClassID.Value, Valid: true}
		}
		args = append(args, classID)
		sets = append(sets, fmt.Sprintf("class_id = $%d", len(args)))
	}

	query := "UPDATE students SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapForeignKey(err, "update student")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteStudent removes a student. Embedding and attendance rows cascade.
func (r *RosterRepository) DeleteStudent(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Compile-time interface check
var _ database.RosterWriter = (*RosterRepository)(nil)
