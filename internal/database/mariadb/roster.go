package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/roster"
)

// The school information system exposes the roster through two views:
//
//	school_classes(id, name)
//	school_students(id, first_name, last_name, class_id, active)
//
// Identifiers are exported as strings so they map onto external_id.

// ListClasses returns all classes of the school information system.
func (p *Pool) ListClasses(ctx context.Context) ([]roster.SourceClass, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT CAST(id AS CHAR), name FROM school_classes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query school classes: %w", err)
	}
	defer rows.Close()

	var classes []roster.SourceClass
	for rows.Next() {
		var c roster.SourceClass
		if err := rows.Scan(&c.ExternalID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan school class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate school classes: %w", err)
	}
	return classes, nil
}

// ListStudents returns active students of the school information system.
func (p *Pool) ListStudents(ctx context.Context) ([]roster.SourceStudent, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT CAST(id AS CHAR), first_name, last_name, CAST(class_id AS CHAR)
		FROM school_students
		WHERE active = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query school students: %w", err)
	}
	defer rows.Close()

	var students []roster.SourceStudent
	for rows.Next() {
		var s roster.SourceStudent
		var first, last string
		var classID sql.NullString
		if err := rows.Scan(&s.ExternalID, &first, &last, &classID); err != nil {
			return nil, fmt.Errorf("scan school student: %w", err)
		}
		s.FullName = strings.TrimSpace(first + " " + last)
		s.ClassExternalID = classID.String
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate school students: %w", err)
	}
	return students, nil
}

// Compile-time interface check
var _ roster.Source = (*Pool)(nil)
