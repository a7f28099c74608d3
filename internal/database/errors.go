package database

import "errors"

var (
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("not found")

	// ErrStudentNotFound is returned when an embedding or mark references an unknown student.
	ErrStudentNotFound = errors.New("student not found")

	// ErrClassNotFound is returned when a mark references an unknown class.
	ErrClassNotFound = errors.New("class not found")
)
