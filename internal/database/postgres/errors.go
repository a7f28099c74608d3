package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// foreignKeyViolation is the PostgreSQL error code for a foreign key violation.
const foreignKeyViolation = "23503"

// mapForeignKey translates foreign key violations into database.ErrStudentNotFound
// or database.ErrClassNotFound and wraps everything else with op.
func mapForeignKey(err error, op string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != foreignKeyViolation {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pqErr.Constraint {
	case "attendance_class_id_fkey", "students_class_id_fkey":
		return fmt.Errorf("%s: %w", op, database.ErrClassNotFound)
	}
	return fmt.Errorf("%s: %w", op, database.ErrStudentNotFound)
}
